package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/dispatcher/internal/backend"
	"github.com/vietddude/dispatcher/internal/core/domain"
)

// =============================================================================
// Stubs
// =============================================================================

type stubStats map[string]domain.HealthStats

func (s stubStats) Stats(id string) domain.HealthStats { return s[id] }

type stubExecutor struct {
	stats    map[string]domain.HealthStats
	err      error
	lastTask domain.Task
	override []string
}

func (e *stubExecutor) Execute(
	_ context.Context,
	task domain.Task,
	override []string,
) (*domain.ExecutionResult, error) {
	e.lastTask = task
	e.override = override
	res := &domain.ExecutionResult{TaskID: task.ID, FallbackChain: []string{}, Attempts: []domain.AttemptRecord{}}
	if e.err == nil {
		res.Success = true
		res.WinningBackend = "a"
	}
	return res, e.err
}

func (e *stubExecutor) AllStats() map[string]domain.HealthStats { return e.stats }

func nopInvoker() backend.Invoker {
	return backend.InvokerFunc(func(context.Context, domain.Task) domain.Outcome {
		return domain.Success(nil)
	})
}

func newRegistry(t *testing.T, enabled map[string]bool) *backend.Registry {
	t.Helper()
	r := backend.NewRegistry()
	for id, on := range enabled {
		if err := r.Register(id, nopInvoker(), on); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

// =============================================================================
// Monitor
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	reg := newRegistry(t, map[string]bool{"a": true, "b": true})
	m := NewMonitor(reg, stubStats{
		"a": {Successes: 20, TotalAttempts: 20},
	}, Thresholds{})

	report := m.CheckHealth()
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	// b has no history yet and is not judged.
	if report.Backends["b"].Status != StatusHealthy {
		t.Errorf("expected healthy for unused backend, got %s", report.Backends["b"].Status)
	}
}

func TestMonitor_Degraded(t *testing.T) {
	reg := newRegistry(t, map[string]bool{"a": true, "b": true})
	m := NewMonitor(reg, stubStats{
		"a": {Successes: 5, Failures: 5, TotalAttempts: 10},
		"b": {Successes: 10, TotalAttempts: 10},
	}, Thresholds{})

	report := m.CheckHealth()
	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
	if report.Backends["a"].Status != StatusDegraded {
		t.Errorf("expected a degraded, got %s", report.Backends["a"].Status)
	}
}

func TestMonitor_Critical(t *testing.T) {
	reg := newRegistry(t, map[string]bool{"a": true, "off": false})
	m := NewMonitor(reg, stubStats{
		"a": {Successes: 1, Failures: 19, TotalAttempts: 20},
	}, Thresholds{})

	report := m.CheckHealth()
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	if report.Backends["off"].Status != StatusDisabled {
		t.Errorf("expected disabled, got %s", report.Backends["off"].Status)
	}
}

func TestMonitor_NoEnabledBackends(t *testing.T) {
	reg := newRegistry(t, map[string]bool{"a": false})
	m := NewMonitor(reg, stubStats{}, Thresholds{})

	if got := m.CheckHealth().SystemStatus; got != StatusCritical {
		t.Errorf("expected critical, got %s", got)
	}
}

// =============================================================================
// Server
// =============================================================================

func newTestServer(t *testing.T, exec *stubExecutor, enabled map[string]bool) (*Server, *backend.Registry) {
	t.Helper()
	reg := newRegistry(t, enabled)
	m := NewMonitor(reg, stubStats(exec.stats), Thresholds{})
	return NewServer(m, reg, exec, 0, nil), reg
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, &stubExecutor{}, map[string]bool{"a": false})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with no enabled backends, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"critical"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestServer_Stats(t *testing.T) {
	exec := &stubExecutor{stats: map[string]domain.HealthStats{
		"a": {Successes: 3, Failures: 1, TotalAttempts: 4},
	}}
	srv, _ := newTestServer(t, exec, map[string]bool{"a": true})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var body map[string]map[string]float64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["a"]["success_rate"] != 0.75 || body["a"]["total_attempts"] != 4 {
		t.Errorf("unexpected stats body %v", body)
	}
}

func TestServer_ToggleBackend(t *testing.T) {
	srv, reg := newTestServer(t, &stubExecutor{}, map[string]bool{"a": true})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backends/a/disable", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if b, _ := reg.Get("a"); b.Enabled() {
		t.Error("expected backend disabled")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backends/ghost/enable", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown backend, got %d", rec.Code)
	}
}

func TestServer_ExecuteTask(t *testing.T) {
	exec := &stubExecutor{}
	srv, _ := newTestServer(t, exec, map[string]bool{"a": true})

	body := `{"id":"t1","kind":"summarize","payload":{"x":1},"backends":["b","a"]}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if exec.lastTask.ID != "t1" || exec.lastTask.Kind != "summarize" {
		t.Errorf("task not decoded: %+v", exec.lastTask)
	}
	if len(exec.override) != 2 || exec.override[0] != "b" {
		t.Errorf("override not passed: %v", exec.override)
	}
}

func TestServer_ExecuteTaskErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("dispatch: %w", domain.ErrNoAvailableBackends), http.StatusServiceUnavailable},
		{fmt.Errorf("dispatch: %w", domain.ErrDeadlineExceeded), http.StatusGatewayTimeout},
		{context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		srv, _ := newTestServer(t, &stubExecutor{err: tt.err}, map[string]bool{"a": true})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"kind":"k"}`)))
		if rec.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, rec.Code)
		}
	}

	srv, _ := newTestServer(t, &stubExecutor{}, map[string]bool{"a": true})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}
}

func TestServer_ExecuteTaskBodyTooLarge(t *testing.T) {
	exec := &stubExecutor{}
	srv, _ := newTestServer(t, exec, map[string]bool{"a": true})

	body := `{"kind":"big","payload":"` + strings.Repeat("x", maxTaskBody) + `"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(body)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	if exec.lastTask.Kind != "" {
		t.Errorf("expected oversized task not to be dispatched, got %+v", exec.lastTask)
	}
}
