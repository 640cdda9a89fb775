package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/exporter"
	"ecgprep/internal/inference"
	"ecgprep/internal/preprocess"
	"ecgprep/pkg/contracts/domain"
)

type inferOutput struct {
	Input      string        `json:"input"`
	Device     domain.Device `json:"device"`
	InputShape []int         `json:"input_shape"`
	Output     any           `json:"output"`
}

func newInferCmd(e *env) *cobra.Command {
	var (
		modelURL string
		device   string
	)

	cmd := &cobra.Command{
		Use:   "infer <signal.npy>",
		Short: "Normalize a stored signal and run it through the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			icfg := e.cfg.Inference
			if modelURL != "" {
				icfg.ModelURL = modelURL
			}
			if device != "" {
				icfg.Device = device
			}
			if icfg.ModelURL == "" {
				return apperrors.NewConfigError("no model configured, set --model-url or inference.model_url", nil)
			}

			sig, err := exporter.ReadSignalFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			seq, err := preprocess.Normalize(sig, e.cfg.Preprocess.Options())
			if err != nil {
				return err
			}

			adapter := inference.NewAdapter(
				inference.NewRemoteModel(icfg.ModelURL, icfg.Timeout),
				inference.DetectDevice(icfg.Device),
				inference.WithLogger(e.logger),
			)

			ctx := cmd.Context()
			out, err := adapter.InferSequence(ctx, seq)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(e.out)
			enc.SetIndent("", "  ")
			return enc.Encode(inferOutput{
				Input:      args[0],
				Device:     adapter.Device(),
				InputShape: seq.Batch().Shape,
				Output:     out,
			})
		},
	}

	cmd.Flags().StringVar(&modelURL, "model-url", "", "model server endpoint (overrides inference.model_url)")
	cmd.Flags().StringVar(&device, "device", "", "execution device: auto, cpu or cuda")
	return cmd
}
