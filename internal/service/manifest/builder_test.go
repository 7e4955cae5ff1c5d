package manifest

import (
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/modloader-dist/internal/config"
	"github.com/oshokin/modloader-dist/internal/domain/dist"
	"github.com/oshokin/modloader-dist/internal/service/discovery"
)

// listingsOf turns an in-memory listing slice into a discovery sequence.
func listingsOf(listings ...discovery.Listing) iter.Seq2[discovery.Listing, error] {
	return func(yield func(discovery.Listing, error) bool) {
		for _, l := range listings {
			if !yield(l, nil) {
				return
			}
		}
	}
}

// testLayout returns the stock layout with the artifacts tree at root.
func testLayout(t *testing.T, root, prefix string) *Layout {
	t.Helper()

	cfg := config.Default()
	cfg.Dist.ArtifactsDir = root
	cfg.Dist.ArtifactsPrefix = prefix
	require.NoError(t, config.Validate(cfg))

	return LayoutFromConfig(&cfg.Dist)
}

// topLevelWindows is the fixed head of the stock Windows manifest.
var topLevelWindows = []string{"README.md", "chaudloader.dll", "dxgi.dll", "lua54.dll", "install.exe"}

// TestBuildFrom_StockLayout checks order, sources and modes against synthetic listings.
func TestBuildFrom_StockLayout(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testLayout(t, "build", "build"))

	m, err := b.BuildFrom(dist.Windows, listingsOf(
		discovery.Listing{Dir: ".", Files: []string{}},
		discovery.Listing{Dir: "lua54", Files: []string{"lua54.dll", "lua54.lib"}},
		discovery.Listing{Dir: "lua54/include", Files: []string{"lua.h"}},
	))
	require.NoError(t, err)

	require.Equal(t, append(append([]string(nil), topLevelWindows...),
		"build/",
		"build/lua54/",
		"build/lua54/lua54.dll",
		"build/lua54/lua54.lib",
		"build/lua54/include/",
		"build/lua54/include/lua.h",
	), m.Destinations())

	// The runtime library appears twice with identical sources.
	require.Equal(t, "target/release/chaudloader.dll", m.Entries[1].Source.Path)
	require.Equal(t, m.Entries[1].Source, m.Entries[2].Source)

	require.Equal(t, filepath.Join("build", "lua54", "lua54.dll"), m.Entries[3].Source.Path)
	require.Equal(t, filepath.Join("build", "lua54", "include", "lua.h"), m.Entries[10].Source.Path)

	for _, e := range m.Entries {
		if e.IsDirectory {
			require.Equal(t, dist.DirectoryMode, e.Mode, e.Destination)
			require.True(t, e.Source.Directory, e.Destination)

			continue
		}

		require.Equal(t, dist.DefaultFileMode, e.Mode, e.Destination)
	}

	require.NoError(t, m.Validate())
}

// TestBuildFrom_Launchers ensures each manifest carries exactly its own launcher.
func TestBuildFrom_Launchers(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testLayout(t, "build", "build"))

	windows, err := b.BuildFrom(dist.Windows, listingsOf())
	require.NoError(t, err)

	linux, err := b.BuildFrom(dist.Linux, listingsOf())
	require.NoError(t, err)

	count := func(m *dist.Manifest, name string) int {
		n := 0

		for _, e := range m.Entries {
			if e.Destination == name {
				n++
			}
		}

		return n
	}

	require.Equal(t, 1, count(windows, "install.exe"))
	require.Zero(t, count(windows, "install"))
	require.Equal(t, 1, count(linux, "install"))
	require.Zero(t, count(linux, "install.exe"))

	launcher := linux.Entries[len(linux.Entries)-1]
	require.Equal(t, "install", launcher.Destination)
	require.Equal(t, "target/x86_64-unknown-linux-musl/release/install", launcher.Source.Path)
	require.Equal(t, dist.ExecutableMode, launcher.Mode)

	require.Equal(t, dist.DefaultFileMode, windows.Entries[len(windows.Entries)-1].Mode)
}

// TestBuild_CacheAndEmptyScenario walks a real tree with an empty prefix.
func TestBuild_CacheAndEmptyScenario(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cache"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache", "a.bin"), []byte{0xDE, 0xAD}, 0o644))

	b := NewBuilder(testLayout(t, root, ""))

	for _, platform := range []dist.Platform{dist.Windows, dist.Linux} {
		m, err := b.Build(platform)
		require.NoError(t, err)

		tail := m.Entries[len(topLevelWindows):]
		require.Len(t, tail, 3)

		require.Equal(t, "cache/", tail[0].Destination)
		require.True(t, tail[0].IsDirectory)

		require.Equal(t, "cache/a.bin", tail[1].Destination)
		require.False(t, tail[1].IsDirectory)
		require.Equal(t, filepath.Join(root, "cache", "a.bin"), tail[1].Source.Path)

		require.Equal(t, "empty/", tail[2].Destination)
		require.True(t, tail[2].IsDirectory)
	}
}

// TestBuildFrom_Collision rejects discovered paths that shadow top-level entries.
func TestBuildFrom_Collision(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testLayout(t, "build", ""))

	_, err := b.BuildFrom(dist.Linux, listingsOf(
		discovery.Listing{Dir: ".", Files: []string{"README.md"}},
	))
	require.ErrorIs(t, err, dist.ErrDuplicateDestination)
}

// TestBuildFrom_DiscoveryError propagates walk failures.
func TestBuildFrom_DiscoveryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	b := NewBuilder(testLayout(t, "build", "build"))

	_, err := b.BuildFrom(dist.Linux, func(yield func(discovery.Listing, error) bool) {
		yield(discovery.Listing{}, boom)
	})
	require.ErrorIs(t, err, boom)
}

// TestBuildFrom_UnknownPlatform requires a launcher for the platform.
func TestBuildFrom_UnknownPlatform(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testLayout(t, "build", "build"))

	_, err := b.BuildFrom(dist.Platform("darwin"), listingsOf())
	require.ErrorIs(t, err, errUnknownPlatform)
}
