// Package archive serializes release manifests into distribution archives.
//
// Zip writes deflate-compressed zip files and packs POSIX permission and
// file-type bits into the upper half of each entry's external attributes.
// Tar writes bzip2-compressed tarballs using the native mode and type fields.
// Both consume the manifest in order and never reorder or merge entries.
//
// Render validates every source before serializing into memory, and Publish
// replaces the output file atomically, so a failed run never leaves a
// truncated archive behind.
package archive
