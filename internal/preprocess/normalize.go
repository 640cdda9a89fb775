package preprocess

import (
	"fmt"

	apperrors "ecgprep/internal/errors"
	"ecgprep/pkg/contracts/domain"
)

// Options configures Normalize.
type Options struct {
	// SamplingRate is informational. Any value is accepted and reported; it
	// does not affect the transform.
	SamplingRate       int `json:"sampling_rate" yaml:"sampling_rate"`
	TargetLength       int `json:"target_length" yaml:"target_length" validate:"gt=0"`
	DownsamplingFactor int `json:"downsampling_factor" yaml:"downsampling_factor" validate:"gt=0"`
}

// DefaultOptions returns the settings the model was trained with.
func DefaultOptions() Options {
	return Options{
		SamplingRate:       500,
		TargetLength:       5000,
		DownsamplingFactor: 5,
	}
}

// Validate checks the options independently of any signal. SamplingRate is
// not checked.
func (o Options) Validate() error {
	if o.TargetLength <= 0 {
		return apperrors.NewShapeError("target_length must be positive, got %d", o.TargetLength)
	}
	if o.DownsamplingFactor <= 0 {
		return apperrors.NewShapeError("downsampling_factor must be positive, got %d", o.DownsamplingFactor)
	}
	return nil
}

// SamplesPerLead is the per-lead length after fitting and downsampling:
// ceil(TargetLength / DownsamplingFactor).
func (o Options) SamplesPerLead() int {
	return (o.TargetLength + o.DownsamplingFactor - 1) / o.DownsamplingFactor
}

// OutputLength is the flattened sequence length for the given lead count.
func (o Options) OutputLength(leads int) int {
	return leads * o.SamplesPerLead()
}

// Normalize maps a raw (leads, samples) signal, or a bare sample vector, to a
// fixed-length lead-major sequence. It never modifies the input.
func Normalize(signal domain.RawSignal, opts Options) (domain.NormalizedSequence, error) {
	if err := opts.Validate(); err != nil {
		return domain.NormalizedSequence{}, err
	}

	leads, samples, err := coerceShape(signal)
	if err != nil {
		return domain.NormalizedSequence{}, err
	}

	fitted := FitLength(signal.Data, leads, samples, opts.TargetLength)
	down := Downsample(fitted, leads, opts.TargetLength, opts.DownsamplingFactor)

	values := make([]float32, len(down))
	for i, v := range down {
		values[i] = float32(v)
	}

	return domain.NormalizedSequence{
		Leads:          leads,
		SamplesPerLead: len(down) / leads,
		Values:         values,
	}, nil
}

func coerceShape(signal domain.RawSignal) (int, int, error) {
	var leads, samples int
	switch signal.Rank() {
	case 1:
		leads, samples = 1, signal.Shape[0]
	case 2:
		leads, samples = signal.Shape[0], signal.Shape[1]
	default:
		return 0, 0, apperrors.NewShapeError("signal must have 1 or 2 dimensions, got %d", signal.Rank())
	}

	if leads < 1 {
		return 0, 0, apperrors.NewShapeError("signal has no leads")
	}
	if samples < 1 {
		return 0, 0, apperrors.NewShapeError("signal has no samples")
	}
	if len(signal.Data) != leads*samples {
		return 0, 0, apperrors.NewShapeError("data length %d does not match shape (%d, %d)", len(signal.Data), leads, samples)
	}
	return leads, samples, nil
}

// FitLength right-pads each lead with zeros, or truncates it to its first
// target samples, returning a new row-major (leads, target) buffer.
func FitLength(data []float64, leads, samples, target int) []float64 {
	out := make([]float64, leads*target)
	n := samples
	if n > target {
		n = target
	}
	for l := 0; l < leads; l++ {
		copy(out[l*target:l*target+n], data[l*samples:l*samples+n])
	}
	return out
}

// Downsample keeps every factor-th sample of each lead starting at index 0.
// A factor of 1 returns the input unchanged.
func Downsample(data []float64, leads, samples, factor int) []float64 {
	if factor <= 1 {
		return data
	}
	kept := (samples + factor - 1) / factor
	out := make([]float64, 0, leads*kept)
	for l := 0; l < leads; l++ {
		row := data[l*samples : (l+1)*samples]
		for i := 0; i < samples; i += factor {
			out = append(out, row[i])
		}
	}
	return out
}

// String renders the options for logs.
func (o Options) String() string {
	return fmt.Sprintf("sampling_rate=%d target_length=%d downsampling_factor=%d",
		o.SamplingRate, o.TargetLength, o.DownsamplingFactor)
}
