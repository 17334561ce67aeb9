package control

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/dispatcher/internal/core/config"
	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/storage"
)

func testConfig(t *testing.T, urls ...string) *config.AppConfig {
	t.Helper()

	yaml := "dispatch:\n  base_delay: 1ms\nbackends:\n"
	ids := []string{"primary", "secondary"}
	for i, u := range urls {
		yaml += "  - id: " + ids[i] + "\n    type: http\n    url: " + u + "\n    timeout: 2s\n"
	}

	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// Random port
	cfg.Server.Port = 0
	return cfg
}

func TestApp_DispatchesAndRecordsHistory(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer failing.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer working.Close()

	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(t, failing.URL, working.URL), nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	res, err := app.Dispatcher().Execute(ctx, domain.Task{ID: "t1", Kind: "demo"}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success || res.WinningBackend != "secondary" {
		t.Errorf("Expected secondary to win, got %+v", res)
	}

	exec, err := app.History().Get(ctx, "t1")
	if err != nil {
		t.Fatalf("History lookup failed: %v", err)
	}
	if exec.WinningBackend != "secondary" || exec.TotalAttempts != 2 || exec.Kind != "demo" {
		t.Errorf("Unexpected history record: %+v", exec)
	}

	if _, err := app.History().Get(ctx, "unknown"); !errors.Is(err, storage.ErrExecutionNotFound) {
		t.Errorf("Expected ErrExecutionNotFound, got %v", err)
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBuildBackends(t *testing.T) {
	disabled := false
	reg, err := BuildBackends([]config.BackendConfig{
		{ID: "h", Type: config.BackendHTTP, URL: "http://localhost:1", Timeout: time.Second},
		{ID: "g", Type: config.BackendGRPC, URL: "localhost:50051", Method: "/x.Y/Z", Timeout: time.Second},
		{ID: "k", Type: config.BackendKafka, Brokers: "localhost:9092", Topic: "tasks", Enabled: &disabled},
	})
	if err != nil {
		t.Fatalf("BuildBackends failed: %v", err)
	}
	defer reg.Close()

	list := reg.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 backends, got %d", len(list))
	}
	for _, b := range list {
		if b.ID == "k" && b.Enabled {
			t.Error("Expected kafka backend to start disabled")
		}
	}

	if _, err := BuildBackends([]config.BackendConfig{{ID: "x", Type: "smtp"}}); err == nil {
		t.Error("Expected error for unknown type")
	}
	if _, err := BuildBackends([]config.BackendConfig{
		{ID: "d", Type: config.BackendHTTP, URL: "http://a"},
		{ID: "d", Type: config.BackendHTTP, URL: "http://b"},
	}); !errors.Is(err, domain.ErrDuplicateBackend) {
		t.Errorf("Expected ErrDuplicateBackend, got %v", err)
	}
}
