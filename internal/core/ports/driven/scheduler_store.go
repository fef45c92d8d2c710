package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SchedulerStore keeps task state and run history across restarts.
type SchedulerStore interface {
	// GetTask returns nil and no error for an unknown task.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask inserts or replaces the task with the same ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// TaskHistory returns up to limit results, newest first.
	TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps only the newest keep results of each task.
	PruneHistory(ctx context.Context, keep int) error
}
