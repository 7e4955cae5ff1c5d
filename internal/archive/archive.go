package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/modloader-dist/internal/domain/dist"
)

// Serializer writes a manifest into one archive format.
type Serializer interface {
	// Serialize writes every entry of m to w in manifest order.
	Serialize(w io.Writer, m *dist.Manifest) error
}

// POSIX file-type bits (st_mode) used where a format has no native type field.
const (
	modeTypeDirectory uint32 = 0o040000
	modeTypeRegular   uint32 = 0o100000
)

// errSourceIsDirectory is returned when a file entry points at a directory.
var errSourceIsDirectory = errors.New("source is a directory")

// CheckSources verifies that every file entry's source exists and is not a directory.
func CheckSources(m *dist.Manifest) error {
	for _, e := range m.Entries {
		if e.IsDirectory {
			continue
		}

		info, err := os.Stat(filepath.Clean(e.Source.Path))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s (for %s): %w", e.Source.Path, e.Destination, os.ErrNotExist)
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", e.Source.Path, err)
		}

		if info.IsDir() {
			return fmt.Errorf("%s (for %s): %w", e.Source.Path, e.Destination, errSourceIsDirectory)
		}
	}

	return nil
}

// Render checks the sources of m and serializes it into memory.
func Render(s Serializer, m *dist.Manifest) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := CheckSources(m); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.Serialize(&buf, m); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// readContent loads the whole source file of a file entry.
func readContent(e *dist.Entry) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(e.Source.Path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Source.Path, err)
	}

	return data, nil
}
