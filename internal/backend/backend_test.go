package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

func okInvoker() Invoker {
	return InvokerFunc(func(ctx context.Context, task domain.Task) domain.Outcome {
		return domain.Success(task.ID)
	})
}

type closingInvoker struct {
	closed bool
}

func (c *closingInvoker) Invoke(context.Context, domain.Task) domain.Outcome {
	return domain.Success(nil)
}

func (c *closingInvoker) Close() error {
	c.closed = true
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("a", okInvoker(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("a", okInvoker(), true); !errors.Is(err, domain.ErrDuplicateBackend) {
		t.Errorf("expected ErrDuplicateBackend, got %v", err)
	}
	if err := r.Register("", okInvoker(), true); err == nil {
		t.Error("expected error for empty id")
	}
	if err := r.Register("b", nil, true); err == nil {
		t.Error("expected error for nil invoker")
	}
}

func TestRegistry_SnapshotHonoursEnabled(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("a", okInvoker(), true)
	_ = r.Register("b", okInvoker(), false)

	enabled, invokers := r.Snapshot()
	if !enabled["a"] || enabled["b"] {
		t.Errorf("unexpected enabled set: %v", enabled)
	}
	if _, ok := invokers["b"]; ok {
		t.Error("disabled backend must not be in snapshot")
	}

	if err := r.SetEnabled("b", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.SetEnabled("a", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The old snapshot is unaffected.
	if !enabled["a"] {
		t.Error("earlier snapshot changed after SetEnabled")
	}

	enabled, _ = r.Snapshot()
	if enabled["a"] || !enabled["b"] {
		t.Errorf("unexpected enabled set after toggle: %v", enabled)
	}
}

func TestRegistry_UnknownBackend(t *testing.T) {
	r := NewRegistry()
	if err := r.SetEnabled("ghost", true); !errors.Is(err, domain.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestRegistry_ListAndClose(t *testing.T) {
	r := NewRegistry()
	c := &closingInvoker{}
	_ = r.Register("z", c, false)
	_ = r.Register("a", okInvoker(), true)

	list := r.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "z" || list[1].Enabled {
		t.Errorf("unexpected list: %+v", list)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !c.closed {
		t.Error("expected closer to be closed")
	}
}
