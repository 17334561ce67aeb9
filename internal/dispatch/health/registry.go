// Package health tracks per-backend attempt counters.
//
// Each backend owns its own lock so that recording against one backend never
// contends with another. The registry-level lock only guards lazy creation of
// entries; entries are never removed.
package health

import (
	"sort"
	"sync"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

type entry struct {
	mu        sync.Mutex
	successes int64
	failures  int64
	total     int64
}

func (e *entry) snapshot() domain.HealthStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.HealthStats{
		Successes:     e.successes,
		Failures:      e.failures,
		TotalAttempts: e.total,
	}
}

// Registry holds health counters for every backend that has been attempted.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

func (r *Registry) get(backendID string) *entry {
	r.mu.RLock()
	e, ok := r.entries[backendID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.entries[backendID]; !ok {
		e = &entry{}
		r.entries[backendID] = e
	}
	return e
}

// Record counts one attempt against backendID.
func (r *Registry) Record(backendID string, kind domain.OutcomeKind) {
	e := r.get(backendID)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.total++
	if kind == domain.OutcomeSuccess {
		e.successes++
	} else {
		e.failures++
	}
}

// Stats returns a snapshot for backendID. Unknown backends report zeros.
func (r *Registry) Stats(backendID string) domain.HealthStats {
	r.mu.RLock()
	e, ok := r.entries[backendID]
	r.mu.RUnlock()
	if !ok {
		return domain.HealthStats{}
	}
	return e.snapshot()
}

// AllStats returns a snapshot of every backend that has recorded an attempt.
func (r *Registry) AllStats() map[string]domain.HealthStats {
	r.mu.RLock()
	entries := make(map[string]*entry, len(r.entries))
	for id, e := range r.entries {
		entries[id] = e
	}
	r.mu.RUnlock()

	out := make(map[string]domain.HealthStats, len(entries))
	for id, e := range entries {
		out[id] = e.snapshot()
	}
	return out
}

// Backends returns the ids known to the registry, sorted.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
