package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ecgprep/internal/config"
	"ecgprep/internal/infrastructure"
)

// env is the state shared by every subcommand once the root has loaded the
// configuration.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

type rootOptions struct {
	configPath string
	logLevel   string
	dataDir    string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	e := &env{}

	cmd := &cobra.Command{
		Use:          config.AppName,
		Short:        "PTB-XL ECG dataset preparation and signal normalization",
		Version:      config.AppVersion,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			if opts.dataDir != "" {
				cfg.Dataset.DataDir = opts.dataDir
			}

			// Progress goes to stdout; structured logs to stderr.
			logger, err := infrastructure.NewLogger(cfg.Logging, os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			slog.SetDefault(logger)

			e.cfg = cfg
			e.logger = logger
			e.out = cmd.OutOrStdout()
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "dataset directory (overrides dataset.data_dir)")

	cmd.AddCommand(
		newSetupCmd(e),
		newConvertCmd(e),
		newNormalizeCmd(e),
		newInferCmd(e),
		newServeCmd(e),
		newSchemaCmd(),
	)

	return cmd
}
