package archive

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// FileMode is the permission of published archives.
const FileMode fs.FileMode = 0o644

// Publish atomically replaces the file at path with data.
// The content is staged next to the target and verified against its SHA-256
// before the rename, so readers see either the old file or the complete new one.
func Publish(path string, data []byte) error {
	target := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// go-update renames the current target aside first, so it has to exist.
	created, err := ensureExists(target)
	if err != nil {
		return err
	}

	checksum := sha256.Sum256(data)

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: FileMode,
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if created {
			_ = os.Remove(target)
		}

		return fmt.Errorf("publish %s: %w", target, err)
	}

	// The replaced file may be kept aside under either name, depending on the platform.
	for _, old := range []string{
		target + ".old",
		filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old"),
	} {
		if _, statErr := os.Stat(old); statErr == nil {
			_ = os.Remove(old)
		}
	}

	return nil
}

// ensureExists creates an empty placeholder at path when nothing is there yet.
func ensureExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FileMode)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}

	if err = f.Close(); err != nil {
		return true, fmt.Errorf("close %s: %w", path, err)
	}

	return true, nil
}
