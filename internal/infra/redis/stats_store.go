package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

const (
	fieldSuccesses     = "successes"
	fieldFailures      = "failures"
	fieldTotalAttempts = "total_attempts"
)

// Snapshot is a point-in-time copy of all backend statistics.
type Snapshot struct {
	Stats     map[string]domain.HealthStats `json:"stats"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// Backends returns snapshot ids sorted.
func (s Snapshot) Backends() []string {
	ids := make([]string, 0, len(s.Stats))
	for id := range s.Stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SaveStats writes one hash per backend plus an index set, atomically.
func (c *Client) SaveStats(ctx context.Context, stats map[string]domain.HealthStats, at time.Time) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, st := range stats {
			pipe.HSet(ctx, statsKey(c.prefix, id), encodeStats(st))
			pipe.SAdd(ctx, indexKey(c.prefix), id)
		}
		pipe.Set(ctx, updatedAtKey(c.prefix), at.UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// LoadStats reads the latest snapshot. A missing snapshot is empty, not an error.
func (c *Client) LoadStats(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Stats: make(map[string]domain.HealthStats)}

	ids, err := c.rdb.SMembers(ctx, indexKey(c.prefix)).Result()
	if err != nil {
		return snap, fmt.Errorf("smembers failed: %w", err)
	}

	for _, id := range ids {
		fields, err := c.rdb.HGetAll(ctx, statsKey(c.prefix, id)).Result()
		if err != nil {
			return snap, fmt.Errorf("hgetall %s failed: %w", id, err)
		}
		st, err := decodeStats(fields)
		if err != nil {
			return snap, fmt.Errorf("decode stats for %s: %w", id, err)
		}
		snap.Stats[id] = st
	}

	val, err := c.rdb.Get(ctx, updatedAtKey(c.prefix)).Result()
	if err == redis.Nil {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("get failed: %w", err)
	}
	if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, val); err != nil {
		return snap, fmt.Errorf("invalid updated_at %q: %w", val, err)
	}
	return snap, nil
}

func encodeStats(st domain.HealthStats) map[string]any {
	return map[string]any{
		fieldSuccesses:     st.Successes,
		fieldFailures:      st.Failures,
		fieldTotalAttempts: st.TotalAttempts,
	}
}

func decodeStats(fields map[string]string) (domain.HealthStats, error) {
	var st domain.HealthStats
	for name, dst := range map[string]*int64{
		fieldSuccesses:     &st.Successes,
		fieldFailures:      &st.Failures,
		fieldTotalAttempts: &st.TotalAttempts,
	} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return st, fmt.Errorf("field %s: %w", name, err)
		}
		*dst = v
	}
	return st, nil
}
