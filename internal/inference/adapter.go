package inference

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "ecgprep/internal/errors"
	"ecgprep/pkg/contracts/domain"
)

// TracerName identifies spans emitted by the adapter.
const TracerName = "ecgprep.inference"

// Model is a sequence model the adapter can drive.
type Model interface {
	// Eval switches the model out of training mode.
	Eval()
	// SetGradEnabled toggles gradient bookkeeping and returns the previous
	// setting.
	SetGradEnabled(enabled bool) bool
	// Forward runs one forward pass.
	Forward(ctx context.Context, input domain.Tensor) (any, error)
}

// Adapter wraps a Model bound to one execution device.
type Adapter struct {
	model  Model
	device domain.Device
	logger *slog.Logger
	tracer trace.Tracer
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter binds model to device. Use DetectDevice to pick the device once
// at startup; tests pass a fixed value.
func NewAdapter(model Model, device domain.Device, opts ...AdapterOption) *Adapter {
	if device == "" {
		device = domain.DeviceCPU
	}
	a := &Adapter{
		model:  model,
		device: device,
		logger: slog.Default(),
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(slog.String("component", "inference"), slog.String("device", string(device)))
	return a
}

// Device is the device inputs are moved to.
func (a *Adapter) Device() domain.Device { return a.device }

// InferSequence runs a normalized sequence as a (1, N) batch.
func (a *Adapter) InferSequence(ctx context.Context, seq domain.NormalizedSequence) (any, error) {
	return a.forward(ctx, seq.Batch())
}

// Infer runs an arbitrary tensor. Inputs with more than two dimensions are
// reshaped to (batch, rest) first. Errors from the model are returned as is.
func (a *Adapter) Infer(ctx context.Context, input domain.Tensor) (any, error) {
	reshaped, err := Reconcile(input)
	if err != nil {
		return nil, err
	}
	return a.forward(ctx, reshaped)
}

func (a *Adapter) forward(ctx context.Context, input domain.Tensor) (any, error) {
	if a.model == nil {
		return nil, apperrors.NewModelError("no model configured", nil)
	}

	ctx, span := a.tracer.Start(ctx, "inference.forward",
		trace.WithAttributes(
			attribute.String("device", string(a.device)),
			attribute.IntSlice("input.shape", input.Shape),
		),
	)
	defer span.End()

	a.model.Eval()
	prev := a.model.SetGradEnabled(false)
	defer a.model.SetGradEnabled(prev)

	start := time.Now()
	out, err := a.model.Forward(ctx, input.To(a.device))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.ErrorContext(ctx, "forward pass failed",
			slog.Any("shape", input.Shape),
			slog.String("error", err.Error()))
		return nil, err
	}

	a.logger.DebugContext(ctx, "forward pass complete",
		slog.Any("shape", input.Shape),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// Reconcile flattens every dimension after the first into one, turning a
// (batch, leads, samples) tensor into (batch, leads*samples). Tensors of rank
// one or two pass through.
func Reconcile(t domain.Tensor) (domain.Tensor, error) {
	if t.Rank() <= 2 {
		return t, nil
	}
	rest := 1
	for _, d := range t.Shape[1:] {
		rest *= d
	}
	if t.Shape[0]*rest != len(t.Data) {
		return domain.Tensor{}, apperrors.NewShapeError("tensor shape %v does not match %d values", t.Shape, len(t.Data))
	}
	return domain.Tensor{
		Shape:  []int{t.Shape[0], rest},
		Data:   t.Data,
		Device: t.Device,
	}, nil
}
