package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"ecgprep/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{
		EnableMetrics:  true,
		MetricExporter: "prometheus",
		TraceExporter:  "none",
		SampleRatio:    0.5,
	})

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
	assert.Equal(t, 0.5, cfg.SampleRatio)
}

func TestInitializeOTel(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *OTelConfig
		wantErr     bool
		wantMetrics bool
		wantTracing bool
	}{
		{
			name:        "metrics only",
			cfg:         &OTelConfig{ServiceName: ServiceName, EnableMetrics: true, MetricExporter: "prometheus"},
			wantMetrics: true,
		},
		{
			name:        "tracing to stdout",
			cfg:         &OTelConfig{ServiceName: ServiceName, EnableTracing: true, TraceExporter: "stdout", SampleRatio: 1},
			wantTracing: true,
		},
		{
			name: "everything off",
			cfg:  &OTelConfig{ServiceName: ServiceName},
		},
		{
			name:    "unknown metric exporter",
			cfg:     &OTelConfig{ServiceName: ServiceName, EnableMetrics: true, MetricExporter: "statsd"},
			wantErr: true,
		},
		{
			name:    "unknown trace exporter",
			cfg:     &OTelConfig{ServiceName: ServiceName, EnableTracing: true, TraceExporter: "jaeger"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantMetrics, providers.PrometheusHTTP != nil)
			assert.Equal(t, tt.wantMetrics, providers.MeterProvider != nil)
			assert.Equal(t, tt.wantTracing, providers.TracerProvider != nil)
		})
	}
}

func TestInitializeOTelTwice(t *testing.T) {
	cfg := &OTelConfig{ServiceName: ServiceName, EnableMetrics: true, MetricExporter: "prometheus"}

	first, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer first.Shutdown(context.Background())

	second, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer second.Shutdown(context.Background())

	assert.NotSame(t, first.Registry, second.Registry)
}

func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		EnableMetrics:  true,
		MetricExporter: "prometheus",
	}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateConversionMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordRow(context.Background(), true, 10*time.Millisecond, 1024)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "conversion_rows_total")
	assert.Contains(t, rec.Body.String(), "conversion_bytes_written")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestConversionMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := CreateConversionMetrics(mp.Meter(MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RunStarted(ctx)
	m.RecordRow(ctx, true, time.Millisecond, 100)
	m.RecordRow(ctx, false, time.Millisecond, 0)
	m.RecordRow(ctx, true, time.Millisecond, 50)
	m.RunFinished(ctx)
	m.RecordNormalize(ctx, true)
	m.RecordInference(ctx, false, time.Second)
	m.RecordDownload(ctx, 4096)
	m.RecordDownload(ctx, 0)
	m.RecordHTTPRequest(ctx, "POST", "/api/v1/normalize", 200, time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumInt(t, got["conversion_runs_total"]))
	assert.Equal(t, int64(0), sumInt(t, got["conversion_active_runs"]))
	assert.Equal(t, int64(3), sumInt(t, got["conversion_rows_total"]))
	assert.Equal(t, int64(150), sumInt(t, got["conversion_bytes_written"]))
	assert.Equal(t, int64(1), sumInt(t, got["normalize_requests_total"]))
	assert.Equal(t, int64(1), sumInt(t, got["inference_requests_total"]))
	assert.Equal(t, int64(4096), sumInt(t, got["dataset_download_bytes"]))
	assert.Equal(t, int64(1), sumInt(t, got["http_requests_total"]))
}

func TestNilConversionMetrics(t *testing.T) {
	var m *ConversionMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RunStarted(ctx)
		m.RecordRow(ctx, true, time.Second, 10)
		m.RunFinished(ctx)
		m.RecordNormalize(ctx, false)
		m.RecordInference(ctx, true, time.Second)
		m.RecordDownload(ctx, 10)
		m.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	})
}

func TestTraceIDFromContext(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))

	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   ServiceName,
		EnableTracing: true,
		TraceExporter: "stdout",
		SampleRatio:   1,
	}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "convert")
	defer span.End()
	assert.Len(t, TraceIDFromContext(ctx), 32)
}
