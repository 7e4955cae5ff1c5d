// Package manifest composes the per-platform release manifests.
//
// A manifest starts with the fixed top-level files (README, the runtime
// library under each of its install names, the Lua DLL and the platform
// launcher) and continues with every directory and file of the nested
// build-artifact tree in discovery order.
package manifest
