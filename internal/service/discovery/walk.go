package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
)

// Listing is one directory of the walked tree.
type Listing struct {
	// Dir is slash-separated and relative to the root; the root itself is ".".
	Dir string
	// Files are the names of regular files directly inside Dir, sorted.
	Files []string
}

// Walk returns a lazy pre-order sequence of listings under root.
// A missing root yields nothing. Any other error is yielded once and ends the sequence.
// Each call walks the filesystem again.
func Walk(root string) iter.Seq2[Listing, error] {
	return func(yield func(Listing, error) bool) {
		root = filepath.Clean(root)

		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}

		if err != nil {
			yield(Listing{}, fmt.Errorf("stat artifacts root: %w", err))
			return
		}

		if !info.IsDir() {
			yield(Listing{}, fmt.Errorf("artifacts root %s: %w", root, errNotDirectory))
			return
		}

		walkDir(root, ".", yield)
	}
}

// errNotDirectory is returned when the artifacts root is a file.
var errNotDirectory = errors.New("not a directory")

// walkDir yields the listing of rel and then descends into its subdirectories.
// It returns false once the consumer stops or an error was yielded.
func walkDir(root, rel string, yield func(Listing, error) bool) bool {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		yield(Listing{}, fmt.Errorf("read %s: %w", path.Join(filepath.ToSlash(root), rel), err))
		return false
	}

	listing := Listing{
		Dir:   rel,
		Files: make([]string, 0, len(entries)),
	}
	subdirs := make([]string, 0, len(entries))

	// os.ReadDir returns entries sorted by name.
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			subdirs = append(subdirs, entry.Name())
		case entry.Type().IsRegular():
			listing.Files = append(listing.Files, entry.Name())
		}
	}

	if !yield(listing, nil) {
		return false
	}

	for _, name := range subdirs {
		if !walkDir(root, path.Join(rel, name), yield) {
			return false
		}
	}

	return true
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Listing, error]) ([]Listing, error) {
	var result []Listing

	for listing, err := range seq {
		if err != nil {
			return nil, err
		}

		result = append(result, listing)
	}

	return result, nil
}
