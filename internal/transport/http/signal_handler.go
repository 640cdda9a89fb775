package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/infrastructure"
	"ecgprep/internal/middleware"
	"ecgprep/internal/preprocess"
	"ecgprep/pkg/contracts/domain"
)

// Inferer runs model forward passes.
type Inferer interface {
	Infer(ctx context.Context, input domain.Tensor) (any, error)
	InferSequence(ctx context.Context, seq domain.NormalizedSequence) (any, error)
	Device() domain.Device
}

// NormalizeRequest carries a raw signal, either as per-lead sample slices or
// as a single bare sample vector. Zero option fields fall back to the server
// configuration.
type NormalizeRequest struct {
	Leads              [][]float64 `json:"leads,omitempty" validate:"required_without=Samples"`
	Samples            []float64   `json:"samples,omitempty" validate:"required_without=Leads"`
	TargetLength       int         `json:"target_length,omitempty" validate:"omitempty,gt=0"`
	DownsamplingFactor int         `json:"downsampling_factor,omitempty" validate:"omitempty,gt=0"`
}

// NormalizeResponse is the normalized sequence plus its geometry.
type NormalizeResponse struct {
	Leads          int       `json:"leads"`
	SamplesPerLead int       `json:"samples_per_lead"`
	Length         int       `json:"length"`
	SamplingRate   int       `json:"sampling_rate"`
	Values         []float32 `json:"values"`
}

// InferRequest carries either a raw signal, which is normalized first, or a
// ready tensor.
type InferRequest struct {
	Leads   [][]float64    `json:"leads,omitempty" validate:"required_without_all=Samples Tensor"`
	Samples []float64      `json:"samples,omitempty" validate:"required_without_all=Leads Tensor"`
	Tensor  *domain.Tensor `json:"tensor,omitempty" validate:"required_without_all=Leads Samples"`
}

// InferResponse wraps the model output.
type InferResponse struct {
	Device     domain.Device `json:"device"`
	InputShape []int         `json:"input_shape"`
	Output     any           `json:"output"`
}

// SignalHandler serves normalization and inference.
type SignalHandler struct {
	opts         preprocess.Options
	model        Inferer
	validator    *middleware.RequestValidator
	errorHandler *apperrors.ErrorHandler
	metrics      *infrastructure.ConversionMetrics
	logger       *slog.Logger
}

// NewSignalHandler creates a signal handler. model and metrics may be nil;
// inference then fails with a model error.
func NewSignalHandler(
	opts preprocess.Options,
	model Inferer,
	validator *middleware.RequestValidator,
	errorHandler *apperrors.ErrorHandler,
	metrics *infrastructure.ConversionMetrics,
	logger *slog.Logger,
) *SignalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalHandler{
		opts:         opts,
		model:        model,
		validator:    validator,
		errorHandler: errorHandler,
		metrics:      metrics,
		logger:       logger.With(slog.String("handler", "signal")),
	}
}

// Normalize handles POST /api/v1/normalize
func (h *SignalHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	opts := h.opts
	if req.TargetLength > 0 {
		opts.TargetLength = req.TargetLength
	}
	if req.DownsamplingFactor > 0 {
		opts.DownsamplingFactor = req.DownsamplingFactor
	}

	seq, err := h.normalize(r.Context(), req.Leads, req.Samples, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, NormalizeResponse{
		Leads:          seq.Leads,
		SamplesPerLead: seq.SamplesPerLead,
		Length:         seq.Len(),
		SamplingRate:   opts.SamplingRate,
		Values:         seq.Values,
	})
}

// Infer handles POST /api/v1/infer
func (h *SignalHandler) Infer(w http.ResponseWriter, r *http.Request) {
	var req InferRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if h.model == nil {
		h.errorHandler.HandleError(w, r, apperrors.NewModelError("no model configured", nil))
		return
	}

	ctx := r.Context()
	var (
		out   any
		shape []int
		err   error
	)
	start := time.Now()
	if req.Tensor != nil {
		if err := checkTensor(*req.Tensor); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		shape = req.Tensor.Shape
		out, err = h.model.Infer(ctx, *req.Tensor)
	} else {
		seq, nerr := h.normalize(ctx, req.Leads, req.Samples, h.opts)
		if nerr != nil {
			h.errorHandler.HandleError(w, r, nerr)
			return
		}
		shape = seq.Batch().Shape
		out, err = h.model.InferSequence(ctx, seq)
	}
	h.metrics.RecordInference(ctx, err == nil, time.Since(start))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, InferResponse{
		Device:     h.model.Device(),
		InputShape: shape,
		Output:     out,
	})
}

func (h *SignalHandler) normalize(ctx context.Context, leads [][]float64, samples []float64, opts preprocess.Options) (domain.NormalizedSequence, error) {
	signal, err := rawSignal(leads, samples)
	if err == nil {
		var seq domain.NormalizedSequence
		seq, err = preprocess.Normalize(signal, opts)
		if err == nil {
			h.metrics.RecordNormalize(ctx, true)
			return seq, nil
		}
	}

	h.metrics.RecordNormalize(ctx, false)
	h.logger.WarnContext(ctx, "normalization rejected",
		slog.String("error", err.Error()),
		slog.String("options", opts.String()))
	return domain.NormalizedSequence{}, err
}

func rawSignal(leads [][]float64, samples []float64) (domain.RawSignal, error) {
	if len(leads) == 0 {
		return domain.FromSamples(samples), nil
	}
	signal, err := domain.FromLeads(leads)
	if err != nil {
		return domain.RawSignal{}, apperrors.NewShapeError("%v", err)
	}
	return signal, nil
}

func checkTensor(t domain.Tensor) error {
	if t.Rank() == 0 {
		return apperrors.NewShapeError("tensor shape is empty")
	}
	for i, d := range t.Shape {
		if d <= 0 {
			return apperrors.NewShapeError("tensor dimension %d is %d, must be positive", i, d)
		}
	}
	if t.NumElements() != len(t.Data) {
		return apperrors.NewShapeError("tensor shape %v does not match %d values", t.Shape, len(t.Data))
	}
	return nil
}
