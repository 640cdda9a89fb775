package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/infrastructure"
	"ecgprep/internal/shared/testutil"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "client-supplied-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chiID, traceID string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				chiID = chimw.GetReqID(r.Context())
				traceID = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, chiID)
			assert.Equal(t, chiID, traceID)
			assert.Equal(t, chiID, rec.Header().Get(RequestIDHeader))
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, chiID)
			}
		})
	}
}

func TestStructuredLogger(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	h := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "request completed")
	assert.True(t, handler.ContainsAttr("status", int64(http.StatusTeapot)))
	assert.True(t, handler.ContainsAttr("path", "/brew"))
}

func TestRecoverer(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	h := RequestID(Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/normalize", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, apperrors.TypeInternal, body["type"])
	assert.NotEmpty(t, body["trace_id"])
	testutil.AssertLogContains(t, handler, slog.LevelError, "panic recovered")
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.001, 1, logger)

	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, apperrors.TypeRateLimit, decodeProblem(t, second)["type"])
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantAllow  string
		wantStatus int
	}{
		{
			name:       "allowed origin",
			origins:    []string{"http://localhost:8080"},
			origin:     "http://localhost:8080",
			method:     http.MethodGet,
			wantAllow:  "http://localhost:8080",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed origin",
			origins:    []string{"http://localhost:8080"},
			origin:     "http://evil.example",
			method:     http.MethodGet,
			wantAllow:  "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard preflight",
			origins:    []string{"*"},
			origin:     "http://anywhere.example",
			method:     http.MethodOptions,
			wantAllow:  "http://anywhere.example",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(CORSConfig{AllowedOrigins: tt.origins})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tt.method, "/api/v1/normalize", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestOTelMiddleware_RecordsRoute(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := infrastructure.CreateConversionMetrics(mp.Meter(infrastructure.MeterName))
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	mw := NewOTelMiddleware(&infrastructure.OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer("test"),
		Logger: logger,
	}, metrics)

	r := chi.NewRouter()
	r.Use(mw.Handler)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			dp := sum.DataPoints[0]
			assert.Equal(t, int64(2), dp.Value)
			route, ok := dp.Attributes.Value("route")
			require.True(t, ok)
			assert.Equal(t, "/items/{id}", route.AsString())
			found = true
		}
	}
	assert.True(t, found, "http_requests_total not recorded")
}

type normalizeBody struct {
	Signal []float64 `json:"signal" validate:"required,min=1"`
	Mode   string    `json:"mode" validate:"omitempty,oneof=fast exact"`
}

func TestRequestValidator_DecodeAndValidate(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewRequestValidator(logger, 64)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantType   string
		wantField  string
	}{
		{name: "valid", body: `{"signal":[1,2,3]}`},
		{name: "invalid json", body: `{"signal":`, wantStatus: http.StatusBadRequest, wantType: apperrors.TypeValidation},
		{name: "wrong type", body: `{"signal":"abc"}`, wantStatus: http.StatusBadRequest, wantType: apperrors.TypeValidation},
		{name: "missing field", body: `{}`, wantStatus: http.StatusBadRequest, wantType: apperrors.TypeValidation, wantField: "signal"},
		{name: "bad enum", body: `{"signal":[1],"mode":"slow"}`, wantStatus: http.StatusBadRequest, wantType: apperrors.TypeValidation, wantField: "mode"},
		{
			name:       "too large",
			body:       `{"signal":[` + strings.Repeat("1,", 40) + `1]}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   apperrors.TypePayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/normalize", strings.NewReader(tt.body))
			var dst normalizeBody
			err := v.DecodeAndValidate(req, &dst)

			if tt.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, []float64{1, 2, 3}, dst.Signal)
				return
			}

			var problem *apperrors.ProblemDetails
			require.ErrorAs(t, err, &problem)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			if tt.wantField != "" {
				fields, ok := problem.Extensions["errors"].([]apperrors.FieldError)
				require.True(t, ok)
				require.Len(t, fields, 1)
				assert.Equal(t, tt.wantField, fields[0].Field)
			}
		})
	}
}

func TestRequestValidator_EmptyBody(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewRequestValidator(logger, 0)
	assert.Equal(t, DefaultMaxBodySize, v.MaxBodySize())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/normalize", nil)
	var dst normalizeBody
	var problem *apperrors.ProblemDetails
	require.ErrorAs(t, v.DecodeAndValidate(req, &dst), &problem)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("application/json")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{name: "json post", method: http.MethodPost, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "form post", method: http.MethodPost, contentType: "text/plain", want: http.StatusUnsupportedMediaType},
		{name: "get skips check", method: http.MethodGet, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/infer", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
