// Package fetcher downloads a versioned upstream source bundle and unpacks it.
//
// Bundles are tarballs compressed with gzip (.tar.gz, .tgz) or xz (.tar.xz).
// Every fetch starts from a clean tree: a previous extraction of the same
// version is removed first, and the downloaded bundle is deleted afterwards.
package fetcher
