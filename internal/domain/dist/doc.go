// Package dist contains the core types of a release payload.
//
// A Manifest is the ordered list of archive entries for one target platform.
// Each Entry maps a destination path inside the archive to a Source, which is
// either a file on disk or the directory marker, and carries the POSIX mode
// the serializers encode.
package dist
