package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/modloader-dist/internal/config"
)

// fakeTool records invocations and writes the files a real toolchain would.
type fakeTool struct {
	calls   [][]string
	outputs []string
	output  string
	err     error
}

// run satisfies Runner.
func (f *fakeTool) run(_ context.Context, dir string, argv []string) ([]byte, error) {
	f.calls = append(f.calls, argv)

	for _, name := range f.outputs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("bin"), 0o600); err != nil {
			return nil, err
		}
	}

	return []byte(f.output), f.err
}

// newNative validates cfg and builds a toolchain around tool.
func newNative(t *testing.T, tc config.ToolchainConfig, tool *fakeTool) *Native {
	t.Helper()

	cfg := config.Default()
	cfg.Toolchain = tc
	require.NoError(t, config.Validate(cfg))

	n, err := New(cfg.Toolchain, WithRunner(tool.run))
	require.NoError(t, err)

	return n
}

// TestCompile_MSVC builds the cl.exe command line and collects .obj files.
func TestCompile_MSVC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tool := &fakeTool{outputs: []string{"lapi.obj", "lcode.obj"}}
	n := newNative(t, config.ToolchainConfig{Flavor: config.FlavorMSVC, CompileFlags: []string{"/W3"}}, tool)

	sources := []string{filepath.Join("lua-5.4.4", "src", "lapi.c"), filepath.Join("lua-5.4.4", "src", "lcode.c")}

	objects, err := n.Compile(context.Background(), dir, sources)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "lapi.obj"), filepath.Join(dir, "lcode.obj")}, objects)

	require.Len(t, tool.calls, 1)
	require.Equal(t, append([]string{"cl", "/nologo", "/MD", "/DLUA_BUILD_AS_DLL", "/O2", "/c", "/W3"}, sources...), tool.calls[0])
	require.Equal(t, "*.obj", n.ObjectPattern())
}

// TestLink_MSVC builds the link.exe command line and checks both outputs.
func TestLink_MSVC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tool := &fakeTool{outputs: []string{"lua54.dll", "lua54.lib"}}
	n := newNative(t, config.ToolchainConfig{Flavor: config.FlavorMSVC}, tool)

	lib, err := n.Link(context.Background(), dir, []string{"a.obj", "b.obj"}, "lua54")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "lua54.dll"), lib.Path)
	require.Equal(t, filepath.Join(dir, "lua54.lib"), lib.Stub)

	require.Equal(t, []string{"link", "/nologo", "/DLL", "/IMPLIB:lua54.lib", "/OUT:lua54.dll", "a.obj", "b.obj"}, tool.calls[0])
}

// TestGNU_CommandLines splits a compiler command with leading arguments.
func TestGNU_CommandLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tool := &fakeTool{outputs: []string{"lapi.o", "lua54.dll", "liblua54.dll.a"}}
	n := newNative(t, config.ToolchainConfig{
		Flavor:    config.FlavorGNU,
		Compiler:  `ccache "x86_64-w64-mingw32-gcc"`,
		LinkFlags: []string{"-s"},
	}, tool)

	objects, err := n.Compile(context.Background(), dir, []string{"lapi.c"})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "lapi.o")}, objects)

	lib, err := n.Link(context.Background(), dir, objects, "lua54")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "liblua54.dll.a"), lib.Stub)

	require.Equal(t, []string{"ccache", "x86_64-w64-mingw32-gcc", "-O2", "-DLUA_BUILD_AS_DLL", "-c", "lapi.c"}, tool.calls[0])
	require.Equal(t, []string{
		"ccache", "x86_64-w64-mingw32-gcc",
		"-shared", "-o", "lua54.dll", "-Wl,--out-implib,liblua54.dll.a",
		"-s", filepath.Join(dir, "lapi.o"),
	}, tool.calls[1])
	require.Equal(t, "*.o", n.ObjectPattern())
}

// TestCompile_Failure wraps the exit error and keeps the tail of the output.
func TestCompile_Failure(t *testing.T) {
	t.Parallel()

	lines := make([]string, 0, 30)
	for i := range 30 {
		lines = append(lines, "line "+strings.Repeat("x", i))
	}

	tool := &fakeTool{output: strings.Join(lines, "\n"), err: errors.New("exit status 2")}
	n := newNative(t, config.ToolchainConfig{Flavor: config.FlavorMSVC}, tool)

	_, err := n.Compile(context.Background(), t.TempDir(), []string{"lapi.c"})
	require.ErrorIs(t, err, ErrCompileFailed)
	require.Contains(t, err.Error(), lines[29])
	require.NotContains(t, err.Error(), lines[9]+"\n")
}

// TestLink_MissingStub fails when the linker did not produce the import library.
func TestLink_MissingStub(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{outputs: []string{"lua54.dll"}}
	n := newNative(t, config.ToolchainConfig{Flavor: config.FlavorMSVC}, tool)

	_, err := n.Link(context.Background(), t.TempDir(), []string{"a.obj"}, "lua54")
	require.ErrorIs(t, err, ErrMissingOutput)
}

// TestLink_Failure maps a linker exit error.
func TestLink_Failure(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{err: errors.New("exit status 1120")}
	n := newNative(t, config.ToolchainConfig{Flavor: config.FlavorMSVC}, tool)

	_, err := n.Link(context.Background(), t.TempDir(), []string{"a.obj"}, "lua54")
	require.ErrorIs(t, err, ErrLinkFailed)
}

// TestNew_Rejects refuses unknown flavors and blank commands.
func TestNew_Rejects(t *testing.T) {
	t.Parallel()

	_, err := New(config.ToolchainConfig{Flavor: "borland", Compiler: "bcc", Linker: "ilink"})
	require.ErrorIs(t, err, ErrUnknownFlavor)

	_, err = New(config.ToolchainConfig{Flavor: config.FlavorGNU, Compiler: "  ", Linker: "cc"})
	require.ErrorIs(t, err, errEmptyCommand)

	_, err = New(config.ToolchainConfig{Flavor: config.FlavorGNU, Compiler: `"unterminated`, Linker: "cc"})
	require.Error(t, err)
}

// TestExecRunner runs a real process in the requested directory.
func TestExecRunner(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no POSIX shell available")
	}

	dir := t.TempDir()

	output, err := ExecRunner(context.Background(), dir, []string{"/bin/sh", "-c", "pwd"})
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := filepath.EvalSymlinks(strings.TrimSpace(string(output)))
	require.NoError(t, err)
	require.Equal(t, want, got)
}
