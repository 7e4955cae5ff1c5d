package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/modloader-dist/internal/logger"
)

// Cleaner removes the unpacked sources and intermediate objects from the build directory.
// The library, its import stub and the include directory are left alone.
type Cleaner struct {
	// dir is the build directory.
	dir string
	// tree is the unpacked source tree.
	tree string
	// objectPattern matches intermediate objects inside dir.
	objectPattern string
}

// NewCleaner creates a Cleaner.
func NewCleaner(dir, tree, objectPattern string) *Cleaner {
	return &Cleaner{
		dir:           dir,
		tree:          tree,
		objectPattern: objectPattern,
	}
}

// Clean removes the source tree and object files. Anything already absent is ignored.
func (c *Cleaner) Clean(ctx context.Context) error {
	var errs []error

	if err := os.RemoveAll(c.tree); err != nil {
		errs = append(errs, fmt.Errorf("remove source tree: %w", err))
	}

	objects, err := filepath.Glob(filepath.Join(c.dir, c.objectPattern))
	if err != nil {
		errs = append(errs, fmt.Errorf("match objects: %w", err))
	}

	for _, object := range objects {
		if err = os.Remove(object); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", filepath.Base(object), err))
		}
	}

	logger.DebugKV(ctx, "Cleaned build directory", "dir", c.dir, "objects", len(objects))

	return errors.Join(errs...)
}
