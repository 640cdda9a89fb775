package converter

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecgprep/internal/dataset"
	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/infrastructure"
	"ecgprep/pkg/contracts/domain"
)

// TracerName is the instrumentation scope of conversion spans.
const TracerName = "ecgprep.converter"

// Converter converts every row of a manifest into an array file.
type Converter struct {
	loader   RecordLoader
	writer   SignalWriter
	naming   dataset.NamingRule
	observer Observer
	metrics  *infrastructure.ConversionMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(c *Converter) { c.observer = o }
}

// WithMetrics records row outcomes.
func WithMetrics(m *infrastructure.ConversionMetrics) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a converter that names outputs with rule.
func New(loader RecordLoader, writer SignalWriter, rule dataset.NamingRule, opts ...Option) *Converter {
	c := &Converter{
		loader:   loader,
		writer:   writer,
		naming:   rule,
		observer: nopObserver{},
		tracer:   otel.Tracer(TracerName),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "converter"))
	return c
}

// ConvertAll converts the manifest rows in order into outputDir. Per-row
// failures are recorded in the report and do not produce an error. A nil
// manifest is a manifest error. On context cancellation the report covers the
// rows processed so far and the context error is returned with it.
func (c *Converter) ConvertAll(ctx context.Context, manifest *domain.DatasetManifest, outputDir string) (*domain.ConversionReport, error) {
	if manifest == nil {
		return nil, apperrors.NewManifestError("no manifest to convert", nil)
	}

	runID := uuid.NewString()
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := c.tracer.Start(ctx, "converter.convert_all",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("manifest", manifest.Source),
			attribute.Int("rows", manifest.Len()),
		))
	defer span.End()

	logger := c.logger.With(slog.String("run_id", runID))

	if err := c.writer.EnsureDir(outputDir); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "output directory unavailable")
		return nil, apperrors.NewStorageError("failed to prepare output directory", err).
			WithContext("path", outputDir)
	}

	report := &domain.ConversionReport{
		RunID:        runID,
		ManifestPath: manifest.Source,
		OutputDir:    outputDir,
		StartedAt:    c.now(),
		Results:      make([]domain.RowResult, 0, manifest.Len()),
	}

	total := manifest.Len()
	c.metrics.RunStarted(ctx)
	defer c.metrics.RunFinished(ctx)
	c.observer.RunStarted(runID, total)
	logger.InfoContext(ctx, "Conversion started",
		slog.String("manifest", manifest.Source),
		slog.String("output_dir", outputDir),
		slog.Int("rows", total))

	var runErr error
	for i, row := range manifest.Rows {
		if err := ctx.Err(); err != nil {
			runErr = err
			logger.WarnContext(ctx, "Conversion cancelled",
				slog.Int("processed", i),
				slog.Int("rows", total))
			break
		}

		res := c.convertRow(ctx, logger, i, row, outputDir)
		report.Results = append(report.Results, res)
		c.observer.RowFinished(runID, total, res)
	}

	report.FinishedAt = c.now()
	report.Finalize()

	span.SetAttributes(
		attribute.Int("converted", report.Summary.Converted),
		attribute.Int("failed", report.Summary.Failed),
	)
	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
	}

	logger.InfoContext(ctx, "Conversion finished",
		slog.Int("total", report.Summary.Total),
		slog.Int("converted", report.Summary.Converted),
		slog.Int("failed", report.Summary.Failed),
		slog.Duration("duration", report.Duration()))
	c.observer.RunFinished(report)

	return report, runErr
}

func (c *Converter) convertRow(ctx context.Context, logger *slog.Logger, index int, row domain.ManifestRow, outputDir string) domain.RowResult {
	start := c.now()
	ctx, span := c.tracer.Start(ctx, "converter.row",
		trace.WithAttributes(
			attribute.String("ecg_id", row.ID),
			attribute.Int("index", index),
		))
	defer span.End()

	res := domain.RowResult{Index: index, ID: row.ID}
	rec, err := c.processRow(row, outputDir)
	if err != nil {
		res.Err = err
		res.ErrorType = string(apperrors.TypeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, res.ErrorType)
		c.metrics.RecordRow(ctx, false, c.now().Sub(start), 0)
		logger.ErrorContext(ctx, "Error processing record",
			slog.String("ecg_id", row.ID),
			slog.String("path", row.Path),
			slog.String("error_type", res.ErrorType),
			slog.String("error", err.Error()))
		return res
	}

	rec.ID = row.ID
	rec.SourcePath = row.Path
	res.Record = rec
	c.metrics.RecordRow(ctx, true, c.now().Sub(start), rec.Bytes)
	logger.InfoContext(ctx, "Record converted",
		slog.String("ecg_id", row.ID),
		slog.String("output", rec.OutputPath),
		slog.Any("shape", rec.Shape))
	return res
}

func (c *Converter) processRow(row domain.ManifestRow, outputDir string) (*domain.ConvertedRecord, error) {
	sig, err := c.loader.LoadRecord(row.Path)
	if err != nil {
		return nil, err
	}
	name := dataset.OutputFilename(row.Path, c.naming)
	return c.writer.WriteSignal(filepath.Join(outputDir, name), sig)
}
