package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/oshokin/modloader-dist/internal/config"
	"github.com/oshokin/modloader-dist/internal/logger"
)

// outputTailLines is how many trailing lines of tool output end up in an error.
const outputTailLines = 20

var (
	// ErrCompileFailed is returned when the compiler exits with an error.
	ErrCompileFailed = errors.New("compilation failed")
	// ErrLinkFailed is returned when the linker exits with an error.
	ErrLinkFailed = errors.New("linking failed")
	// ErrMissingOutput is returned when a tool succeeded but an expected file is absent.
	ErrMissingOutput = errors.New("expected tool output is missing")
	// ErrUnknownFlavor is returned for flavors other than msvc and gnu.
	ErrUnknownFlavor = errors.New("unknown toolchain flavor")
	// errEmptyCommand is returned when the compiler or linker command is blank.
	errEmptyCommand = errors.New("empty command")
)

// Runner executes argv in dir and returns its combined output.
type Runner func(ctx context.Context, dir string, argv []string) ([]byte, error)

// Library is the result of a successful link.
type Library struct {
	// Path is the dynamic library.
	Path string
	// Stub is the import library other binaries link against.
	Stub string
}

// Native compiles and links with an external toolchain.
type Native struct {
	flavor   flavor
	compiler []string
	linker   []string
	cfg      config.ToolchainConfig
	run      Runner
}

// Option configures Native.
type Option func(*Native)

// WithRunner replaces the subprocess runner.
func WithRunner(run Runner) Option {
	return func(n *Native) {
		if run != nil {
			n.run = run
		}
	}
}

// New prepares a toolchain from validated settings.
func New(cfg config.ToolchainConfig, opts ...Option) (*Native, error) {
	f, ok := flavors[cfg.Flavor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlavor, cfg.Flavor)
	}

	compiler, err := splitCommand(cfg.Compiler)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}

	linker, err := splitCommand(cfg.Linker)
	if err != nil {
		return nil, fmt.Errorf("linker: %w", err)
	}

	n := &Native{
		flavor:   f,
		compiler: compiler,
		linker:   linker,
		cfg:      cfg,
		run:      ExecRunner,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n, nil
}

// ExecRunner runs argv as a child process.
func ExecRunner(ctx context.Context, dir string, argv []string) ([]byte, error) {
	//nolint:gosec // The command comes from the operator's own configuration.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	return cmd.CombinedOutput()
}

// ObjectPattern returns the glob matching intermediate object files.
func (n *Native) ObjectPattern() string {
	return "*" + n.flavor.objectExt
}

// Compile compiles sources in one invocation inside dir.
// Object files land in dir and are returned in source order.
func (n *Native) Compile(ctx context.Context, dir string, sources []string) ([]string, error) {
	argv := make([]string, 0, len(n.compiler)+len(n.flavor.compileFlags)+len(n.cfg.CompileFlags)+len(sources))
	argv = append(argv, n.compiler...)
	argv = append(argv, n.flavor.compileFlags...)
	argv = append(argv, n.cfg.CompileFlags...)
	argv = append(argv, sources...)

	logger.InfoKV(ctx, "Compiling", "sources", len(sources), "compiler", n.compiler[0])

	if err := n.invoke(ctx, dir, argv, ErrCompileFailed); err != nil {
		return nil, err
	}

	objects := make([]string, 0, len(sources))

	for _, source := range sources {
		stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		object := filepath.Join(dir, stem+n.flavor.objectExt)

		if err := requireFile(object); err != nil {
			return nil, err
		}

		objects = append(objects, object)
	}

	return objects, nil
}

// Link links objects into <name>.dll and its stub inside dir.
func (n *Native) Link(ctx context.Context, dir string, objects []string, name string) (*Library, error) {
	fixed := n.flavor.linkArgs(name)

	argv := make([]string, 0, len(n.linker)+len(fixed)+len(n.cfg.LinkFlags)+len(objects))
	argv = append(argv, n.linker...)
	argv = append(argv, fixed...)
	argv = append(argv, n.cfg.LinkFlags...)
	argv = append(argv, objects...)

	logger.InfoKV(ctx, "Linking", "library", name+".dll", "linker", n.linker[0])

	if err := n.invoke(ctx, dir, argv, ErrLinkFailed); err != nil {
		return nil, err
	}

	lib := &Library{
		Path: filepath.Join(dir, name+".dll"),
		Stub: filepath.Join(dir, n.flavor.stubName(name)),
	}

	for _, output := range []string{lib.Path, lib.Stub} {
		if err := requireFile(output); err != nil {
			return nil, err
		}
	}

	return lib, nil
}

// Outputs returns the files Link writes for name, whether or not they exist yet.
func (n *Native) Outputs(dir, name string) []string {
	return []string{
		filepath.Join(dir, name+".dll"),
		filepath.Join(dir, n.flavor.stubName(name)),
	}
}

// invoke runs argv and maps a failure to sentinel, keeping the tail of the output.
func (n *Native) invoke(ctx context.Context, dir string, argv []string, sentinel error) error {
	output, err := n.run(ctx, dir, argv)
	if len(output) > 0 {
		logger.DebugKV(ctx, "Tool output", "tool", argv[0], "output", string(output))
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w\n%s", sentinel, argv[0], err, tail(output, outputTailLines))
	}

	return nil
}

// splitCommand splits a command line the way a POSIX shell would, without expanding variables.
func splitCommand(command string) ([]string, error) {
	fields, err := shell.Fields(command, func(string) string { return "" })
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, errEmptyCommand
	}

	return fields, nil
}

// requireFile fails with ErrMissingOutput unless path is a regular file.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrMissingOutput)
	}

	return nil
}

// tail returns the last n lines of output.
func tail(output []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(output), "\r\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.Join(lines, "\n")
}
