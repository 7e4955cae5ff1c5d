package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/modloader-dist/internal/logger"
	"github.com/oshokin/modloader-dist/internal/service/packager"
	"github.com/oshokin/modloader-dist/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string
	// logLevel is the minimum level of printed messages.
	logLevel string

	// rootCmd represents the base command for packaging the release.
	rootCmd = &cobra.Command{
		Use:   "make-dist",
		Short: "Package the mod loader release archives",
		Long: "Collect the release payload and write the Windows zip archive " +
			"and the Linux bzip2-compressed tarball.",
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

			return packager.Run(ctx, &packager.Options{ConfigPath: configPath})
		},
	}
)

// Execute runs the make-dist CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(configCmd)

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
