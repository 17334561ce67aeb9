// Package backend defines the contract every execution backend implements and
// the registry the dispatcher reads backends from.
//
// This package contains:
//   - Invoker: the single capability a backend must provide
//   - Backend: a registered invoker with an externally toggled enabled flag
//   - Registry: backends keyed by id, read by the dispatcher on every dispatch
//
// Concrete transports live in sub-packages (httpbackend, grpcbackend,
// kafkabackend).
package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Invoker submits a task to one backend and classifies what happened.
// Implementations must not panic on failure; every failure is reported as a
// transient or terminal outcome.
type Invoker interface {
	Invoke(ctx context.Context, task domain.Task) domain.Outcome
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, task domain.Task) domain.Outcome

func (f InvokerFunc) Invoke(ctx context.Context, task domain.Task) domain.Outcome {
	return f(ctx, task)
}

// Backend is a registered execution target.
type Backend struct {
	ID      string
	Invoker Invoker

	enabled atomic.Bool
}

// Enabled reports whether the backend may appear in new fallback chains.
func (b *Backend) Enabled() bool {
	return b.enabled.Load()
}

// Info is a read-only view of a registered backend.
type Info struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// Registry holds the set of known backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]*Backend),
	}
}

// Register adds a backend. Ids must be unique.
func (r *Registry) Register(id string, invoker Invoker, enabled bool) error {
	if id == "" {
		return fmt.Errorf("backend id is empty")
	}
	if invoker == nil {
		return fmt.Errorf("backend %s: invoker is nil", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[id]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateBackend, id)
	}

	b := &Backend{ID: id, Invoker: invoker}
	b.enabled.Store(enabled)
	r.backends[id] = b
	return nil
}

// SetEnabled toggles a backend. It takes effect on the next dispatch.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	b, err := r.Get(id)
	if err != nil {
		return err
	}
	b.enabled.Store(enabled)
	return nil
}

// Get returns a backend by id.
func (r *Registry) Get(id string) (*Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownBackend, id)
	}
	return b, nil
}

// Snapshot returns the enabled set and the invokers of enabled backends as of
// now. The dispatcher resolves a chain against one snapshot so later toggles
// never affect an in-flight dispatch.
func (r *Registry) Snapshot() (map[string]bool, map[string]Invoker) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := make(map[string]bool, len(r.backends))
	invokers := make(map[string]Invoker, len(r.backends))
	for id, b := range r.backends {
		if b.Enabled() {
			enabled[id] = true
			invokers[id] = b.Invoker
		}
	}
	return enabled, invokers
}

// List returns every registered backend sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.backends))
	for id, b := range r.backends {
		out = append(out, Info{ID: id, Enabled: b.Enabled()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Closer is implemented by backends that hold connections.
type Closer interface {
	Close() error
}

// Close closes every backend invoker that implements Closer.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for id, b := range r.backends {
		c, ok := b.Invoker.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close backend %s: %w", id, err)
		}
	}
	return firstErr
}
