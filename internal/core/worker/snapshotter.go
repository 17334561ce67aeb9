package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/metrics"
)

// StatsSource provides the live health counters.
type StatsSource interface {
	AllStats() map[string]domain.HealthStats
}

// StatsSink persists a copy of the counters.
type StatsSink interface {
	SaveStats(ctx context.Context, stats map[string]domain.HealthStats, at time.Time) error
}

// Snapshotter periodically copies health statistics to a sink so operators
// can inspect them without reaching the running process.
type Snapshotter struct {
	interval time.Duration
	source   StatsSource
	sink     StatsSink
	logger   *slog.Logger
}

// NewSnapshotter creates a new Snapshotter worker.
func NewSnapshotter(interval time.Duration, source StatsSource, sink StatsSink, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{
		interval: interval,
		source:   source,
		sink:     sink,
		logger:   logger,
	}
}

// Run saves a snapshot every interval and a final one when ctx is done.
func (s *Snapshotter) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Last snapshot on shutdown
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			s.Save(finalCtx)
			cancel()
			return nil
		case <-ticker.C:
			s.Save(ctx)
		}
	}
}

// Save writes one snapshot. Failures are logged and counted, not returned.
func (s *Snapshotter) Save(ctx context.Context) {
	if err := s.sink.SaveStats(ctx, s.source.AllStats(), time.Now()); err != nil {
		metrics.SnapshotsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Failed to save health snapshot", "error", err)
		return
	}
	metrics.SnapshotsTotal.WithLabelValues("ok").Inc()
}
