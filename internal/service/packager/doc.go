// Package packager assembles the release archives of the mod loader.
//
// It builds one manifest per platform from the configured layout and the
// artifacts tree, renders the Windows manifest as a zip archive and the Linux
// manifest as a bzip2-compressed tarball, and publishes both only after both
// were rendered, so a failed run never leaves a partial archive behind.
package packager
