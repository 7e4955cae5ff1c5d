package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/modloader-dist/internal/logger"
)

var (
	// ErrBadHTTPStatus is returned when the upstream server does not answer 200 OK.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrUnsupportedBundle is returned for bundle extensions without a decompressor.
	ErrUnsupportedBundle = errors.New("unsupported bundle format")
	// ErrUnsafePath is returned for bundle entries that would land outside the destination.
	ErrUnsafePath = errors.New("bundle entry escapes destination")
	// ErrMissingTree is returned when the bundle did not contain the expected top directory.
	ErrMissingTree = errors.New("bundle did not contain the expected source tree")
)

// Fetcher downloads source bundles from one upstream folder.
type Fetcher struct {
	// baseURL is the upstream folder, e.g. https://www.lua.org/ftp.
	baseURL string
	// client performs the download.
	client *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds the whole download.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.client = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a Fetcher for bundles published under baseURL.
func New(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// URL returns the download address of <name>-<version><ext>.
func (f *Fetcher) URL(name, version, ext string) (string, error) {
	bundleURL, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	bundleURL.Path = path.Join(bundleURL.Path, bundleName(name, version, ext))

	return bundleURL.String(), nil
}

// Fetch downloads <name>-<version><ext> and unpacks it into destDir.
// It returns the path of the unpacked tree, destDir/<name>-<version>.
func (f *Fetcher) Fetch(ctx context.Context, name, version, ext, destDir string) (string, error) {
	decompress, err := decompressorFor(ext)
	if err != nil {
		return "", err
	}

	treeDir := filepath.Join(destDir, name+"-"+version)

	// A stale tree from an earlier run would mix old and new sources.
	if err = os.RemoveAll(treeDir); err != nil {
		return "", fmt.Errorf("remove stale tree: %w", err)
	}

	if err = os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	bundleURL, err := f.URL(name, version, ext)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Downloading source bundle", "url", bundleURL)

	bundlePath, err := f.download(ctx, bundleURL, destDir)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = os.Remove(bundlePath)
	}()

	logger.InfoKV(ctx, "Unpacking source bundle", "destination", destDir)

	if err = unpack(ctx, bundlePath, destDir, decompress); err != nil {
		return "", fmt.Errorf("unpack %s: %w", bundleName(name, version, ext), err)
	}

	if info, statErr := os.Stat(treeDir); statErr != nil || !info.IsDir() {
		return "", fmt.Errorf("%s: %w", treeDir, ErrMissingTree)
	}

	return treeDir, nil
}

// download saves the body of url into a temporary file inside dir.
func (f *Fetcher) download(ctx context.Context, bundleURL, dir string) (_ string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", bundleURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", bundleURL, response.Status, ErrBadHTTPStatus)
	}

	tmp, err := os.CreateTemp(dir, "bundle-*.download")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}

		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, response.Body); err != nil {
		return "", fmt.Errorf("save %s: %w", bundleURL, err)
	}

	return tmp.Name(), nil
}

// bundleName returns the file name of a bundle.
func bundleName(name, version, ext string) string {
	return name + "-" + version + ext
}

// isTarGz reports whether ext names a gzip-compressed tarball.
func isTarGz(ext string) bool {
	switch strings.ToLower(ext) {
	case ".tar.gz", ".tgz":
		return true
	default:
		return false
	}
}
