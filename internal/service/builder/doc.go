// Package builder produces the Lua DLL the mod loader ships with.
//
// It downloads the upstream source bundle, drops the standalone interpreter
// and compiler entry points, compiles the remaining sources into a DLL with
// its import library and copies the public headers next to it. The unpacked
// sources and intermediate objects are removed on every exit path.
package builder
