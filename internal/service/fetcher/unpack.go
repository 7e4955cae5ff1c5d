package fetcher

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/oshokin/modloader-dist/internal/logger"
)

// decompressor wraps the raw bundle stream.
type decompressor func(r io.Reader) (io.Reader, error)

// decompressorFor selects the decompressor for a bundle extension.
func decompressorFor(ext string) (decompressor, error) {
	switch {
	case isTarGz(ext):
		return func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		}, nil
	case strings.EqualFold(ext, ".tar.xz"):
		return func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBundle, ext)
	}
}

// unpack extracts directories and regular files of the bundle at bundlePath into destDir.
func unpack(ctx context.Context, bundlePath, destDir string, decompress decompressor) error {
	f, err := os.Open(filepath.Clean(bundlePath))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	stream, err := decompress(f)
	if err != nil {
		return fmt.Errorf("open compressed stream: %w", err)
	}

	tr := tar.NewReader(stream)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		if err = extractEntry(ctx, tr, header, destDir); err != nil {
			return err
		}
	}
}

// extractEntry materializes a single tar member under destDir.
func extractEntry(ctx context.Context, r io.Reader, header *tar.Header, destDir string) error {
	name := filepath.FromSlash(strings.TrimSuffix(header.Name, "/"))
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%q: %w", header.Name, ErrUnsafePath)
	}

	target := filepath.Join(destDir, name)

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", target, err)
		}
	case tar.TypeReg:
		if err := writeFile(r, target, os.FileMode(header.Mode).Perm()); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	default:
		logger.DebugKV(ctx, "Skipping bundle entry", "name", header.Name, "type", string(header.Typeflag))
	}

	return nil
}

// writeFile copies r into a new file at target, creating parent directories.
func writeFile(r io.Reader, target string, perm os.FileMode) (err error) {
	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	// Owner must be able to rewrite and delete what it extracted.
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, r)

	return err
}
