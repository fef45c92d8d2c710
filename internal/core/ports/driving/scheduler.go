package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Scheduler runs background maintenance tasks such as the embedding sweep.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// RunTask runs a task immediately and records its result.
	RunTask(ctx context.Context, taskID string) (*domain.TaskResult, error)

	// Tasks returns the known tasks and their last run state.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns up to limit results for a task, most recent first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
