package integration

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"maps"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/modloader-dist/internal/config"
	"github.com/oshokin/modloader-dist/internal/service/builder"
	"github.com/oshokin/modloader-dist/internal/service/fetcher"
	"github.com/oshokin/modloader-dist/internal/service/packager"
	"github.com/oshokin/modloader-dist/internal/service/toolchain"
)

// luaBundle renders a gzip-compressed tarball shaped like an upstream Lua release.
func luaBundle(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	files := map[string]string{
		"lua-5.4.4/src/lapi.c": "/* lapi */",
		"lua-5.4.4/src/lvm.c":  "/* lvm */",
		"lua-5.4.4/src/lua.c":  "/* interpreter */",
		"lua-5.4.4/src/luac.c": "/* compiler */",
		"lua-5.4.4/src/lua.h":  "/* lua.h */",
	}

	for _, name := range slices.Sorted(maps.Keys(files)) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(files[name])),
			Typeflag: tar.TypeReg,
		}))

		_, err := tw.Write([]byte(files[name]))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// gnuRunner pretends to be a mingw-w64 driver: it writes the files the real one would.
func gnuRunner(_ context.Context, dir string, argv []string) ([]byte, error) {
	var outputs []string

	if slices.Contains(argv, "-c") {
		for _, arg := range argv {
			if strings.HasSuffix(arg, ".c") {
				outputs = append(outputs, strings.TrimSuffix(filepath.Base(arg), ".c")+".o")
			}
		}
	} else {
		outputs = []string{"lua54.dll", "liblua54.dll.a"}
	}

	for _, name := range outputs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600); err != nil {
			return nil, err
		}
	}

	return []byte("ok\n"), nil
}

// TestRelease_BuildThenPackage builds the Lua library and packages it with the rest of the release.
func TestRelease_BuildThenPackage(t *testing.T) {
	t.Chdir(t.TempDir())

	bundle := luaBundle(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ftp/lua-5.4.4.tar.gz" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write(bundle)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := config.Default()
	cfg.Lua.BaseURL = server.URL + "/ftp"
	cfg.Toolchain.Flavor = config.FlavorGNU
	require.NoError(t, config.Validate(cfg))

	native, err := toolchain.New(cfg.Toolchain, toolchain.WithRunner(gnuRunner))
	require.NoError(t, err)

	driver := builder.NewDriver(&cfg.Lua, fetcher.New(cfg.Lua.BaseURL, fetcher.WithHTTPClient(server.Client())), native)

	_, err = driver.Run(ctx)
	require.NoError(t, err)

	// The remaining release inputs come from the Rust build.
	for name, content := range map[string]string{
		"README.md":                      "# mod loader\n",
		"target/release/chaudloader.dll": "MZ loader",
		"target/release/install.exe":     "MZ installer",

		"target/x86_64-unknown-linux-musl/release/install": "\x7fELF installer",
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
	}

	require.NoError(t, packager.Run(ctx, &packager.Options{}))

	zr, err := zip.OpenReader("dist.zip")
	require.NoError(t, err)

	defer func() {
		require.NoError(t, zr.Close())
	}()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	require.Equal(t, []string{
		"README.md",
		"chaudloader.dll",
		"dxgi.dll",
		"lua54.dll",
		"install.exe",
		"build/",
		"build/lua54/",
		"build/lua54/liblua54.dll.a",
		"build/lua54/lua54.dll",
		"build/lua54/include/",
		"build/lua54/include/lua.h",
	}, names)

	_, err = os.Stat("dist.tar.bz2")
	require.NoError(t, err)
}
