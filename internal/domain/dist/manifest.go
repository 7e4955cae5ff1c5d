package dist

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Platform identifies the target a manifest is built for.
type Platform string

const (
	// Windows is the target of the zip archive.
	Windows Platform = "windows"
	// Linux is the target of the tar archive.
	Linux Platform = "linux"
)

const (
	// DefaultFileMode is rw-r--r--.
	DefaultFileMode fs.FileMode = 0o644
	// ExecutableMode is rwxr-xr-x.
	ExecutableMode fs.FileMode = 0o755
	// DirectoryMode is rwxr-xr-x, traversable by everyone.
	DirectoryMode fs.FileMode = 0o755
)

var (
	// ErrDuplicateDestination is returned when two entries share a destination path.
	ErrDuplicateDestination = errors.New("duplicate destination path")
	// ErrInvalidSource is returned when an entry's source disagrees with its kind.
	ErrInvalidSource = errors.New("invalid entry source")
	// ErrInvalidDestination is returned for empty, absolute or escaping destination paths.
	ErrInvalidDestination = errors.New("invalid destination path")
)

// Source is where an entry's content comes from: a file path or the directory marker.
type Source struct {
	// Path is the file on disk; empty for directories.
	Path string
	// Directory marks an entry without content.
	Directory bool
}

// FileSource returns a Source reading content from path.
func FileSource(path string) Source {
	return Source{Path: path}
}

// DirectorySource returns the directory marker.
func DirectorySource() Source {
	return Source{Directory: true}
}

// Valid reports whether exactly one of path and directory marker is set.
func (s Source) Valid() bool {
	return (s.Path == "") == s.Directory
}

// Entry is a single archive member.
type Entry struct {
	// Destination is the slash-separated archive path; directories end with "/".
	Destination string
	// Source is where the content comes from.
	Source Source
	// Mode holds the permission bits only.
	Mode fs.FileMode
	// IsDirectory marks directory entries.
	IsDirectory bool
}

// File returns a file entry with the given permission bits.
func File(destination, source string, mode fs.FileMode) Entry {
	return Entry{
		Destination: destination,
		Source:      FileSource(source),
		Mode:        mode.Perm(),
	}
}

// Directory returns a directory entry; the destination gets a trailing slash.
func Directory(destination string) Entry {
	if !strings.HasSuffix(destination, "/") {
		destination += "/"
	}

	return Entry{
		Destination: destination,
		Source:      DirectorySource(),
		Mode:        DirectoryMode,
		IsDirectory: true,
	}
}

// Validate checks the entry on its own.
func (e *Entry) Validate() error {
	if !e.Source.Valid() || e.Source.Directory != e.IsDirectory {
		return fmt.Errorf("%s: %w", e.Destination, ErrInvalidSource)
	}

	name := strings.TrimSuffix(e.Destination, "/")
	if name == "" || path.IsAbs(name) || !fs.ValidPath(name) {
		return fmt.Errorf("%q: %w", e.Destination, ErrInvalidDestination)
	}

	if e.IsDirectory != strings.HasSuffix(e.Destination, "/") {
		return fmt.Errorf("%q: trailing slash must mark directories only: %w", e.Destination, ErrInvalidDestination)
	}

	return nil
}

// Manifest is the ordered entry list for one platform.
// Insertion order is preserved and destinations are unique.
type Manifest struct {
	// Platform is the target of this manifest.
	Platform Platform
	// Entries in insertion order.
	Entries []Entry

	// seen indexes Entries by destination.
	seen map[string]struct{}
}

// NewManifest creates an empty manifest for platform.
func NewManifest(platform Platform) *Manifest {
	return &Manifest{
		Platform: platform,
		seen:     make(map[string]struct{}),
	}
}

// Add validates e and appends it, rejecting duplicate destinations.
func (m *Manifest) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if m.seen == nil {
		m.seen = make(map[string]struct{}, len(m.Entries))
		for _, existing := range m.Entries {
			m.seen[existing.Destination] = struct{}{}
		}
	}

	if _, found := m.seen[e.Destination]; found {
		return fmt.Errorf("%s: %w", e.Destination, ErrDuplicateDestination)
	}

	m.seen[e.Destination] = struct{}{}
	m.Entries = append(m.Entries, e)

	return nil
}

// Validate re-checks every entry and destination uniqueness.
// Serializers call it because Entries is exported and may be edited directly.
func (m *Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m.Entries))

	for i := range m.Entries {
		if err := m.Entries[i].Validate(); err != nil {
			return err
		}

		if _, found := seen[m.Entries[i].Destination]; found {
			return fmt.Errorf("%s: %w", m.Entries[i].Destination, ErrDuplicateDestination)
		}

		seen[m.Entries[i].Destination] = struct{}{}
	}

	return nil
}

// Destinations returns the destination paths in order.
func (m *Manifest) Destinations() []string {
	result := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		result = append(result, e.Destination)
	}

	return result
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.Entries)
}
