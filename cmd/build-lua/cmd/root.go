package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/modloader-dist/internal/logger"
	"github.com/oshokin/modloader-dist/internal/service/builder"
	"github.com/oshokin/modloader-dist/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string
	// logLevel is the minimum level of printed messages.
	logLevel string

	// rootCmd represents the base command for building the Lua library.
	rootCmd = &cobra.Command{
		Use:   "build-lua",
		Short: "Download the Lua sources and build the Lua DLL",
		Long: "Download the configured Lua release, compile it into a DLL with its import library " +
			"and copy the public headers into the build directory.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return applyLogLevel(logLevel)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return builder.Run(ctx, &builder.Options{ConfigPath: configPath})
		},
	}
)

// Execute runs the build-lua CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()
	if err != nil {
		logger.Error(context.Background(), err)
	}

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

// applyLogLevel switches the global logger to the named level.
func applyLogLevel(name string) error {
	level, ok := logger.ParseLogLevel(name)
	if !ok {
		return fmt.Errorf("unknown log level %q", name)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error or fatal")
}
