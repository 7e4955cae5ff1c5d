package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTree creates files (with content) and empty directories under root.
func writeTree(t *testing.T, root string, files map[string]string, dirs ...string) {
	t.Helper()

	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755))
	}

	for name, contents := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
	}
}

// TestWalk_PreOrderWithEmptyDirectories covers the cache/empty scenario.
func TestWalk_PreOrderWithEmptyDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"cache/a.bin": "\xde\xad"}, "empty")

	listings, err := Collect(Walk(root))
	require.NoError(t, err)
	require.Equal(t, []Listing{
		{Dir: ".", Files: []string{}},
		{Dir: "cache", Files: []string{"a.bin"}},
		{Dir: "empty", Files: []string{}},
	}, listings)
}

// TestWalk_FilesGroupedBeforeSubdirectories mirrors a real build tree.
func TestWalk_FilesGroupedBeforeSubdirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lua54/lua54.dll":         "dll",
		"lua54/lua54.lib":         "lib",
		"lua54/include/lua.h":     "h",
		"lua54/include/lauxlib.h": "h",
		"zz.txt":                  "z",
		"a/b/c/deep.txt":          "d",
	})

	listings, err := Collect(Walk(root))
	require.NoError(t, err)

	dirs := make([]string, 0, len(listings))
	for _, l := range listings {
		dirs = append(dirs, l.Dir)
	}

	require.Equal(t, []string{".", "a", "a/b", "a/b/c", "lua54", "lua54/include"}, dirs)
	require.Equal(t, []string{"zz.txt"}, listings[0].Files)
	require.Equal(t, []string{"lua54.dll", "lua54.lib"}, listings[4].Files)
	require.Equal(t, []string{"lauxlib.h", "lua.h"}, listings[5].Files)
}

// TestWalk_MissingRootYieldsNothing matches the tolerant walk of an absent build directory.
func TestWalk_MissingRootYieldsNothing(t *testing.T) {
	t.Parallel()

	listings, err := Collect(Walk(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	require.Empty(t, listings)
}

// TestWalk_RootIsFile reports an error.
func TestWalk_RootIsFile(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, nil, 0o644))

	_, err := Collect(Walk(root))
	require.ErrorIs(t, err, errNotDirectory)
}

// TestWalk_StopsWhenConsumerBreaks ensures early termination is honored.
func TestWalk_StopsWhenConsumerBreaks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, nil, "a", "b", "c")

	count := 0

	for _, err := range Walk(root) {
		require.NoError(t, err)

		count++
		if count == 2 {
			break
		}
	}

	require.Equal(t, 2, count)
}
