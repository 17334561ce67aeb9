// Package httpbackend implements a backend that posts tasks to an HTTP endpoint.
package httpbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/dispatch/retry"
)

const maxErrorBody = 512

// DefaultMaxResponseBytes caps a response body when no limit is configured.
const DefaultMaxResponseBytes int64 = 4 << 20

// Backend posts tasks as JSON to a single endpoint.
type Backend struct {
	name       string
	endpoint   string
	headers    map[string]string
	maxBody    int64
	httpClient *http.Client
}

// Option configures a Backend.
type Option func(*Backend)

// WithMaxResponseBytes sets the largest accepted response body. n <= 0 keeps
// the default.
func WithMaxResponseBytes(n int64) Option {
	return func(b *Backend) {
		if n > 0 {
			b.maxBody = n
		}
	}
}

// New creates a new HTTP backend.
func New(name, endpoint string, timeout time.Duration, headers map[string]string, opts ...Option) *Backend {
	b := &Backend{
		name:     name,
		endpoint: endpoint,
		headers:  headers,
		maxBody:  DefaultMaxResponseBytes,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend's name.
func (b *Backend) Name() string {
	return b.name
}

type request struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Invoke posts the task and classifies the response.
func (b *Backend) Invoke(ctx context.Context, task domain.Task) domain.Outcome {
	body, err := json.Marshal(request{ID: task.ID, Kind: task.Kind, Payload: task.Payload})
	if err != nil {
		return domain.TerminalFailure(fmt.Errorf("marshal task: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.TerminalFailure(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return retry.OutcomeOf(nil, fmt.Errorf("%s: %w", b.name, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxBody+1))
	if err != nil {
		return domain.TransientFailure(fmt.Errorf("%s: read response: %w", b.name, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp, data)
	}

	// The backend already ran the task, so retrying would only repeat it.
	if int64(len(data)) > b.maxBody {
		return domain.TerminalFailure(fmt.Errorf("%s: %w: limit %d bytes", b.name, errResponseTooLarge, b.maxBody))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Success(nil)
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		// Non-JSON bodies are passed through as text.
		return domain.Success(string(data))
	}
	return domain.Success(result)
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}

var (
	errHTTPStatus       = errors.New("unexpected http status")
	errResponseTooLarge = errors.New("response body too large")
)

// classifyStatus maps non-2xx responses: throttling, timeouts and 5xx are
// transient, other 4xx mean this backend will never accept the task.
func classifyStatus(resp *http.Response, body []byte) domain.Outcome {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	err := fmt.Errorf("%w: http %d: %s", errHTTPStatus, resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			err = fmt.Errorf("%w (retry after %s)", err, ra)
		}
		return domain.TransientFailure(err)
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooEarly,
		resp.StatusCode >= 500:
		return domain.TransientFailure(err)
	default:
		return domain.TerminalFailure(err)
	}
}
