package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ecgprep/internal/exporter"
	"ecgprep/internal/files"
	"ecgprep/internal/preprocess"
	"ecgprep/pkg/contracts/domain"
)

type normalizeOutput struct {
	Input          string             `json:"input"`
	InputShape     []int              `json:"input_shape"`
	Options        preprocess.Options `json:"options"`
	Leads          int                `json:"leads"`
	SamplesPerLead int                `json:"samples_per_lead"`
	Length         int                `json:"length"`
	Output         string             `json:"output,omitempty"`
	Values         []float32          `json:"values,omitempty"`
}

func newNormalizeCmd(e *env) *cobra.Command {
	var (
		output       string
		targetLength int
		factor       int
	)

	cmd := &cobra.Command{
		Use:   "normalize <signal.npy>",
		Short: "Normalize a stored signal to a fixed-length sequence",
		Long: `Read a (leads, samples) or bare sample .npy array, fit every lead to the
target length, downsample it and flatten the result lead by lead. The sequence
is printed as JSON, or stored with --output as a (1, leads*samples_per_lead)
array, the batched shape the model consumes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := e.cfg.Preprocess.Options()
			if cmd.Flags().Changed("target-length") {
				opts.TargetLength = targetLength
			}
			if cmd.Flags().Changed("downsampling-factor") {
				opts.DownsamplingFactor = factor
			}

			sig, err := exporter.ReadSignalFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			seq, err := preprocess.Normalize(sig, opts)
			if err != nil {
				return err
			}

			result := normalizeOutput{
				Input:          args[0],
				InputShape:     sig.Shape,
				Options:        opts,
				Leads:          seq.Leads,
				SamplesPerLead: seq.SamplesPerLead,
				Length:         seq.Len(),
			}
			if output == "" {
				result.Values = seq.Values
			} else {
				if err := writeSequence(e, output, seq); err != nil {
					return err
				}
				result.Output = output
			}

			enc := json.NewEncoder(e.out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the sequence to this .npy file")
	cmd.Flags().IntVar(&targetLength, "target-length", 0, "per-lead length before downsampling")
	cmd.Flags().IntVar(&factor, "downsampling-factor", 0, "keep every n-th sample")
	return cmd
}

// writeSequence stores seq as a float64 (1, N) array, the batched shape the
// model consumes.
func writeSequence(e *env, path string, seq domain.NormalizedSequence) error {
	data := make([]float64, len(seq.Values))
	for i, v := range seq.Values {
		data[i] = float64(v)
	}
	sig, err := domain.NewRawSignal(1, seq.Len(), data)
	if err != nil {
		return err
	}
	encoded, err := exporter.EncodeSignal(sig)
	if err != nil {
		return err
	}
	return files.NewManager(nil, e.logger).WriteFileAtomic(path, encoded)
}
