package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ConversionMetrics are the application metrics. A nil *ConversionMetrics is
// valid and records nothing.
type ConversionMetrics struct {
	RunsTotal        metric.Int64Counter
	ActiveRuns       metric.Int64UpDownCounter
	RowsTotal        metric.Int64Counter
	RowDuration      metric.Float64Histogram
	BytesWritten     metric.Int64Counter
	NormalizeTotal   metric.Int64Counter
	InferenceTotal   metric.Int64Counter
	InferenceLatency metric.Float64Histogram
	DownloadBytes    metric.Int64Counter

	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

// CreateConversionMetrics registers the application instruments on meter.
func CreateConversionMetrics(meter metric.Meter) (*ConversionMetrics, error) {
	m := &ConversionMetrics{}
	var err error

	if m.RunsTotal, err = meter.Int64Counter("conversion_runs_total",
		metric.WithDescription("Total number of dataset conversion runs")); err != nil {
		return nil, err
	}
	if m.ActiveRuns, err = meter.Int64UpDownCounter("conversion_active_runs",
		metric.WithDescription("Number of conversion runs in progress")); err != nil {
		return nil, err
	}
	if m.RowsTotal, err = meter.Int64Counter("conversion_rows_total",
		metric.WithDescription("Manifest rows processed, by status")); err != nil {
		return nil, err
	}
	if m.RowDuration, err = meter.Float64Histogram("conversion_row_duration_seconds",
		metric.WithDescription("Time to load and persist one record"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.BytesWritten, err = meter.Int64Counter("conversion_bytes_written",
		metric.WithDescription("Bytes of converted array files written"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.NormalizeTotal, err = meter.Int64Counter("normalize_requests_total",
		metric.WithDescription("Signals normalized, by status")); err != nil {
		return nil, err
	}
	if m.InferenceTotal, err = meter.Int64Counter("inference_requests_total",
		metric.WithDescription("Forward passes, by status")); err != nil {
		return nil, err
	}
	if m.InferenceLatency, err = meter.Float64Histogram("inference_duration_seconds",
		metric.WithDescription("Forward pass latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.DownloadBytes, err = meter.Int64Counter("dataset_download_bytes",
		metric.WithDescription("Bytes downloaded while fetching the dataset archive"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

func statusAttr(ok bool) attribute.KeyValue {
	if ok {
		return attribute.String("status", "success")
	}
	return attribute.String("status", "failure")
}

// RecordRow records one manifest row outcome.
func (m *ConversionMetrics) RecordRow(ctx context.Context, ok bool, d time.Duration, bytes int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(statusAttr(ok))
	m.RowsTotal.Add(ctx, 1, attrs)
	m.RowDuration.Record(ctx, d.Seconds(), attrs)
	if bytes > 0 {
		m.BytesWritten.Add(ctx, bytes)
	}
}

// RunStarted marks a conversion run as active.
func (m *ConversionMetrics) RunStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.RunsTotal.Add(ctx, 1)
	m.ActiveRuns.Add(ctx, 1)
}

// RunFinished marks a conversion run as done.
func (m *ConversionMetrics) RunFinished(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveRuns.Add(ctx, -1)
}

// RecordNormalize records one normalization.
func (m *ConversionMetrics) RecordNormalize(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.NormalizeTotal.Add(ctx, 1, metric.WithAttributes(statusAttr(ok)))
}

// RecordInference records one forward pass.
func (m *ConversionMetrics) RecordInference(ctx context.Context, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(statusAttr(ok))
	m.InferenceTotal.Add(ctx, 1, attrs)
	m.InferenceLatency.Record(ctx, d.Seconds(), attrs)
}

// RecordDownload adds downloaded bytes.
func (m *ConversionMetrics) RecordDownload(ctx context.Context, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.DownloadBytes.Add(ctx, bytes)
}

// RecordHTTPRequest records one served request.
func (m *ConversionMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), attrs)
}
