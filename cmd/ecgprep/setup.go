package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ecgprep/internal/config"
	"ecgprep/internal/converter"
	"ecgprep/internal/dataset"
	"ecgprep/internal/fetch"
	"ecgprep/internal/infrastructure"
)

// datasetFlags are the dataset overrides shared by setup and convert.
type datasetFlags struct {
	resolution    string
	xlsx          bool
	resolveLatest bool
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.resolution, "resolution", "", "record resolution to convert (hr or lr)")
	cmd.Flags().BoolVar(&f.xlsx, "xlsx", false, "also write an XLSX conversion report")
}

func (f *datasetFlags) apply(cmd *cobra.Command, cfg *config.DatasetConfig) error {
	if f.resolution != "" {
		if _, _, ok := dataset.Preset(f.resolution); !ok {
			return fmt.Errorf("unknown resolution %q, expected %s or %s",
				f.resolution, dataset.ResolutionHigh, dataset.ResolutionLow)
		}
		cfg.Resolution = f.resolution
	}
	if cmd.Flags().Changed("xlsx") {
		cfg.XLSXReport = f.xlsx
	}
	if cmd.Flags().Changed("resolve-latest") {
		cfg.ResolveLatest = f.resolveLatest
	}
	return nil
}

func newSetupCmd(e *env) *cobra.Command {
	var (
		flags       datasetFlags
		skipConvert bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download, extract and convert the PTB-XL dataset",
		Long: `Download the dataset archive (skipped when it is already present), extract it
unless the manifest is already in place, locate the dataset root and convert
every record into NumPy arrays under the processed directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, &e.cfg.Dataset); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			providers, metrics, err := initMetrics(e)
			if err != nil {
				return err
			}
			defer providers.Shutdown(context.Background())

			downloader := fetch.NewDownloader(e.logger, fetch.WithMetrics(metrics))
			root, err := fetch.NewPreparer(downloader, e.cfg.Dataset, e.out, e.logger).Prepare(ctx)
			if err != nil {
				return err
			}
			if skipConvert {
				fmt.Fprintf(e.out, "Dataset ready at %s\n", root)
				return nil
			}
			return runConversion(ctx, e, root, metrics)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.resolveLatest, "resolve-latest", false, "resolve the archive link from the project page")
	cmd.Flags().BoolVar(&skipConvert, "skip-convert", false, "stop after the dataset is extracted")
	return cmd
}

// runConversion converts root with console progress and prints the summary.
func runConversion(ctx context.Context, e *env, root string, metrics *infrastructure.ConversionMetrics) error {
	pipeline := converter.NewPipeline(e.cfg.Dataset, e.logger,
		converter.WithPipelineObserver(converter.NewConsoleObserver(e.out)),
		converter.WithPipelineMetrics(metrics),
	)

	result, err := pipeline.Run(ctx, root)
	if result != nil {
		printSummary(e.out, result)
	}
	return err
}

func initMetrics(e *env) (*infrastructure.OTelProviders, *infrastructure.ConversionMetrics, error) {
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(e.cfg.Telemetry), e.logger)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := infrastructure.CreateConversionMetrics(providers.Meter)
	if err != nil {
		providers.Shutdown(context.Background())
		return nil, nil, err
	}
	return providers, metrics, nil
}
