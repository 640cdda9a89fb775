package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "shape error maps to bad request",
			err:        NewShapeError("zero leads"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeShape,
		},
		{
			name:       "wrapped manifest error",
			err:        fmt.Errorf("run: %w", NewManifestError("missing id column", nil)),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeManifest,
		},
		{
			name:       "model error maps to bad gateway",
			err:        NewModelError("backend returned 500", nil),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeModel,
		},
		{
			name:       "context deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
		{
			name:       "problem details pass through",
			err:        NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", "run in progress", ""),
			wantStatus: http.StatusConflict,
			wantType:   TypeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewErrorHandler(nil, false)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/normalize", nil)
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/v1/normalize", body["instance"])
		})
	}
}

func TestErrorHandler_NilErrorIsNoop(t *testing.T) {
	h := NewErrorHandler(nil, false)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeShape, "Invalid Signal Shape", "zero leads", "/x").
		WithExtension("trace_id", "abc")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc", got["trace_id"])
	assert.Equal(t, "zero leads", got["detail"])
	assert.Equal(t, TypeShape, got["type"])
}
