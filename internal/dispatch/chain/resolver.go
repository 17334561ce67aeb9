// Package chain resolves the ordered list of backends a task is tried against.
package chain

import (
	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Resolve builds the fallback chain.
//
// A non-empty override replaces defaultOrder. Ids that are not enabled
// (unregistered or switched off) are skipped silently, duplicates keep their
// first position. Health statistics are never consulted: order is exactly what
// the caller or configuration asked for.
func Resolve(defaultOrder, override []string, enabled map[string]bool) ([]string, error) {
	base := defaultOrder
	if len(override) > 0 {
		base = override
	}

	seen := make(map[string]struct{}, len(base))
	resolved := make([]string, 0, len(base))
	for _, id := range base {
		if !enabled[id] {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}

	if len(resolved) == 0 {
		return nil, domain.ErrNoAvailableBackends
	}
	return resolved, nil
}
