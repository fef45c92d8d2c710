package memory

import (
	"context"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
type SchedulerStore struct {
	s *Store
}

// GetTask retrieves a scheduled task by ID, or nil if absent.
func (st *SchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	task, ok := st.s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// ListTasks returns all scheduled tasks ordered by ID.
func (st *SchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	tasks := make([]domain.ScheduledTask, 0, len(st.s.tasks))
	for _, task := range st.s.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// SaveTask creates or updates a task.
func (st *SchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	st.s.tasks[task.ID] = *task
	return nil
}

// RecordResult logs a task execution result.
func (st *SchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	st.s.results = append(st.s.results, *result)
	return nil
}

// TaskHistory returns up to limit results for a task, most recent first.
func (st *SchedulerStore) TaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	var history []domain.TaskResult
	for i := len(st.s.results) - 1; i >= 0 && len(history) < limit; i-- {
		if st.s.results[i].TaskID == taskID {
			history = append(history, st.s.results[i])
		}
	}
	return history, nil
}

// PruneHistory keeps the most recent keep results per task.
func (st *SchedulerStore) PruneHistory(_ context.Context, keep int) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	counts := make(map[string]int)
	kept := make([]domain.TaskResult, 0, len(st.s.results))
	for i := len(st.s.results) - 1; i >= 0; i-- {
		r := st.s.results[i]
		if counts[r.TaskID] < keep {
			counts[r.TaskID]++
			kept = append(kept, r)
		}
	}
	// Restore chronological order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	st.s.results = kept
	return nil
}
