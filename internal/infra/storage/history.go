package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

const saveTimeout = 5 * time.Second

// HistoryObserver writes every dispatch result to a repository. Write failures
// are logged and never reach the caller of the dispatch.
type HistoryObserver struct {
	repo   ExecutionRepository
	logger *slog.Logger
}

// NewHistoryObserver creates a new history observer.
func NewHistoryObserver(repo ExecutionRepository, logger *slog.Logger) *HistoryObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryObserver{repo: repo, logger: logger}
}

func (h *HistoryObserver) OnAttempt(context.Context, domain.Task, domain.AttemptRecord) {}

func (h *HistoryObserver) OnResult(ctx context.Context, task domain.Task, res *domain.ExecutionResult, err error) {
	// The dispatch context may already be cancelled; history is still written.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if serr := h.repo.Save(sctx, NewExecution(task, res, err)); serr != nil {
		h.logger.Warn("Failed to save execution",
			"task_id", res.TaskID,
			"error", serr,
		)
	}
}
