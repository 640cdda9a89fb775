package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ecgprep/internal/errors"
	"ecgprep/pkg/contracts/domain"
)

func TestRemoteModel_ForwardThroughAdapter(t *testing.T) {
	var got ForwardRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":{"logits":[0.25,0.75]}}`))
	}))
	defer srv.Close()

	model := NewRemoteModel(srv.URL, time.Second)
	adapter := NewAdapter(model, domain.DeviceCUDA)

	seq := domain.NormalizedSequence{Leads: 1, SamplesPerLead: 2, Values: []float32{1, 2}}
	out, err := adapter.InferSequence(context.Background(), seq)
	require.NoError(t, err)

	assert.JSONEq(t, `{"logits":[0.25,0.75]}`, string(out.(json.RawMessage)))
	assert.Equal(t, []int{1, 2}, got.Input.Shape)
	assert.Equal(t, domain.DeviceCUDA, got.Device)
	assert.True(t, got.Eval)
	assert.True(t, got.NoGrad)

	// gradient state restored after the call
	assert.True(t, model.SetGradEnabled(true))
}

func TestRemoteModel_ServerError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"json error", http.StatusUnprocessableEntity, `{"error":"expected 12000 inputs"}`},
		{"plain error", http.StatusInternalServerError, `oops`},
		{"error in ok response", http.StatusOK, `{"error":"model not loaded"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			model := NewRemoteModel(srv.URL, time.Second)
			_, err := model.Forward(context.Background(), domain.Tensor{Shape: []int{1, 1}, Data: []float32{1}})
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeModel))
		})
	}
}

func TestRemoteModel_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	model := NewRemoteModel(url, 200*time.Millisecond)
	_, err := model.Forward(context.Background(), domain.Tensor{Shape: []int{1, 1}, Data: []float32{1}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
}
