package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ecgprep/internal/fetch"
)

func newConvertCmd(e *env) *cobra.Command {
	var (
		flags datasetFlags
		root  string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an extracted dataset into NumPy arrays",
		Long: `Convert every record listed in the dataset manifest. The dataset root is
located under the data directory unless --root is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, &e.cfg.Dataset); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if root == "" {
				located, err := fetch.LocateDatasetRoot(e.cfg.Dataset.DataDir, e.cfg.Dataset.ManifestFile, e.cfg.Dataset.RootHint)
				if err != nil {
					return err
				}
				root = located
			}

			providers, metrics, err := initMetrics(e)
			if err != nil {
				return err
			}
			defer providers.Shutdown(context.Background())

			return runConversion(ctx, e, root, metrics)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&root, "root", "", "dataset root containing the manifest")
	return cmd
}
