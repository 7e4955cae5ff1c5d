package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/oshokin/modloader-dist/internal/config"
	"github.com/oshokin/modloader-dist/internal/logger"
	"github.com/oshokin/modloader-dist/internal/service/toolchain"
)

// includeDir receives the public headers inside the build directory.
const includeDir = "include"

// errNoSources is returned when the source tree has nothing left to compile.
var errNoSources = errors.New("no C sources to compile")

// Fetcher downloads and unpacks a source bundle.
type Fetcher interface {
	Fetch(ctx context.Context, name, version, ext, destDir string) (string, error)
}

// Toolchain compiles and links native code.
type Toolchain interface {
	Compile(ctx context.Context, dir string, sources []string) ([]string, error)
	Link(ctx context.Context, dir string, objects []string, name string) (*toolchain.Library, error)
	Outputs(dir, name string) []string
	ObjectPattern() string
}

// Driver builds the Lua library inside the build directory.
type Driver struct {
	lua       *config.LuaConfig
	fetcher   Fetcher
	toolchain Toolchain
}

// NewDriver creates a Driver.
func NewDriver(lua *config.LuaConfig, f Fetcher, tc Toolchain) *Driver {
	return &Driver{
		lua:       lua,
		fetcher:   f,
		toolchain: tc,
	}
}

// Run fetches, compiles and links the library, then copies the headers.
// The source tree and object files are removed whether or not the build succeeds.
func (d *Driver) Run(ctx context.Context) (_ *toolchain.Library, err error) {
	// Tools run inside the build directory, so every path handed to them must be absolute.
	buildDir, err := filepath.Abs(d.lua.BuildDir)
	if err != nil {
		return nil, fmt.Errorf("resolve build dir: %w", err)
	}

	if err = os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build dir: %w", err)
	}

	cleaner := NewCleaner(buildDir, filepath.Join(buildDir, d.lua.SourceTreeName()), d.toolchain.ObjectPattern())

	defer func() {
		if cleanErr := cleaner.Clean(ctx); cleanErr != nil {
			err = errors.Join(err, cleanErr)
		}
	}()

	tree, err := d.fetcher.Fetch(ctx, d.lua.BundleName, d.lua.Version, d.lua.BundleExtension, buildDir)
	if err != nil {
		return nil, fmt.Errorf("fetch sources: %w", err)
	}

	srcDir := filepath.Join(tree, "src")

	if err = d.removeExcluded(ctx, srcDir); err != nil {
		return nil, err
	}

	sources, err := filepath.Glob(filepath.Join(srcDir, "*.c"))
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%s: %w", srcDir, errNoSources)
	}

	slices.Sort(sources)

	objects, err := d.toolchain.Compile(ctx, buildDir, sources)
	if err != nil {
		return nil, err
	}

	name := d.lua.LibraryName()

	lib, err := d.toolchain.Link(ctx, buildDir, objects, name)
	if err != nil {
		for _, partial := range d.toolchain.Outputs(buildDir, name) {
			_ = os.Remove(partial)
		}

		return nil, err
	}

	if err = copyHeaders(ctx, srcDir, filepath.Join(buildDir, includeDir)); err != nil {
		return nil, err
	}

	return lib, nil
}

// removeExcluded deletes the standalone program entry points from srcDir.
func (d *Driver) removeExcluded(ctx context.Context, srcDir string) error {
	for _, name := range d.lua.ExcludedSources {
		err := os.Remove(filepath.Join(srcDir, name))

		switch {
		case err == nil:
			logger.DebugKV(ctx, "Excluded source", "file", name)
		case errors.Is(err, os.ErrNotExist):
			logger.WarnKV(ctx, "Excluded source is absent", "file", name)
		default:
			return fmt.Errorf("exclude %s: %w", name, err)
		}
	}

	return nil
}

// copyHeaders copies every header of srcDir into dst.
func copyHeaders(ctx context.Context, srcDir, dst string) error {
	headers, err := filepath.Glob(filepath.Join(srcDir, "*.h"))
	if err != nil {
		return err
	}

	if err = os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create include dir: %w", err)
	}

	for _, header := range headers {
		if err = copyFile(header, filepath.Join(dst, filepath.Base(header))); err != nil {
			return fmt.Errorf("copy header %s: %w", filepath.Base(header), err)
		}
	}

	logger.InfoKV(ctx, "Copied headers", "count", len(headers), "destination", dst)

	return nil
}

// copyFile copies src to dst, replacing dst.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)

	return err
}
