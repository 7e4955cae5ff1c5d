package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/modloader-dist/internal/config"
)

var (
	// outputPath is where the effective configuration is saved; stdout when empty.
	outputPath string

	// configCmd prints or saves the effective configuration.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: "Print the configuration make-dist and build-lua would run with, " +
			"built-in defaults merged with the --config file, or save it with --output.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if outputPath != "" {
				return config.Save(outputPath, cfg)
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configCmd.Flags().StringVarP(&outputPath, "output", "o", "", "save the configuration to this file instead of printing it")
}
