package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "ecgprep/internal/errors"
	"ecgprep/pkg/contracts/domain"
)

// ForwardRequest is the body posted to a model server.
type ForwardRequest struct {
	Input  domain.Tensor `json:"input"`
	Device domain.Device `json:"device"`
	Eval   bool          `json:"eval"`
	NoGrad bool          `json:"no_grad"`
}

// ForwardResponse is the body a model server answers with.
type ForwardResponse struct {
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error,omitempty"`
}

// RemoteModel is a Model served over HTTP. Mode and gradient state are kept
// locally and sent with every forward request.
type RemoteModel struct {
	endpoint string
	client   *http.Client

	mu          sync.Mutex
	training    bool
	gradEnabled bool
}

// NewRemoteModel creates a client for the model server at endpoint.
func NewRemoteModel(endpoint string, timeout time.Duration) *RemoteModel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteModel{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: timeout},
		training:    true,
		gradEnabled: true,
	}
}

// Eval implements Model.
func (m *RemoteModel) Eval() {
	m.mu.Lock()
	m.training = false
	m.mu.Unlock()
}

// SetGradEnabled implements Model.
func (m *RemoteModel) SetGradEnabled(enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.gradEnabled
	m.gradEnabled = enabled
	return prev
}

// Forward implements Model. The raw "output" member of the response is
// returned as json.RawMessage.
func (m *RemoteModel) Forward(ctx context.Context, input domain.Tensor) (any, error) {
	m.mu.Lock()
	req := ForwardRequest{
		Input:  input,
		Device: input.Device,
		Eval:   !m.training,
		NoGrad: !m.gradEnabled,
	}
	m.mu.Unlock()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.NewModelError("failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewModelError("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewNetworkError("model server unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read model response", err)
	}

	var out ForwardResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, apperrors.NewModelError(fmt.Sprintf("model server returned %d", resp.StatusCode), nil).
				WithContext("status", resp.StatusCode)
		}
		return nil, apperrors.NewModelError("invalid model response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || out.Error != "" {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, apperrors.NewModelError(msg, nil).WithContext("status", resp.StatusCode)
	}
	return out.Output, nil
}
