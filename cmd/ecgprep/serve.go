package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ecgprep/internal/app"
)

func newServeCmd(e *env) *cobra.Command {
	var (
		port     int
		modelURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve normalization, inference and conversions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}
			if modelURL != "" {
				e.cfg.Inference.ModelURL = modelURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApplication(e.cfg, e.logger)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().StringVar(&modelURL, "model-url", "", "model server endpoint (overrides inference.model_url)")
	return cmd
}
