package builder

import (
	"context"
	"fmt"

	"github.com/oshokin/modloader-dist/internal/config"
	"github.com/oshokin/modloader-dist/internal/logger"
	"github.com/oshokin/modloader-dist/internal/service/fetcher"
	"github.com/oshokin/modloader-dist/internal/service/toolchain"
	"github.com/oshokin/modloader-dist/internal/version"
)

// Options contains inputs for the build-lua entry point.
type Options struct {
	// ConfigPath is an optional YAML file overriding the built-in defaults.
	ConfigPath string
}

// Run executes the fetch, compile and link workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "build-lua")

	logger.InfoKV(ctx, "Starting", "version", version.Version)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	native, err := toolchain.New(cfg.Toolchain)
	if err != nil {
		return fmt.Errorf("initialize toolchain: %w", err)
	}

	driver := NewDriver(&cfg.Lua, fetcher.New(cfg.Lua.BaseURL, fetcher.WithTimeout(cfg.Timeout)), native)

	lib, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	logger.InfoKV(ctx, "Build completed successfully", "library", lib.Path, "stub", lib.Stub)

	return nil
}
