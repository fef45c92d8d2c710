package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

type schedulerStore struct {
	s *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const taskColumns = `id, name, interval_seconds, last_run, next_run, last_error, last_success`

// GetTask retrieves a scheduled task by ID, or nil if absent.
func (st *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := st.s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = $1`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}
	return task, nil
}

// ListTasks returns all scheduled tasks ordered by ID.
func (st *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := st.s.db.Query(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scheduled task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask creates or updates a task.
func (st *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	_, err := st.s.db.Exec(ctx, `INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			interval_seconds = EXCLUDED.interval_seconds,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			last_error = EXCLUDED.last_error,
			last_success = EXCLUDED.last_success`,
		task.ID, task.Name, int64(task.Interval.Seconds()),
		nullableTime(task.LastRun), nullableTime(task.NextRun),
		nullableString(task.LastError), nullableTime(task.LastSuccess))
	if err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

// RecordResult logs a task execution result.
func (st *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	var errMsg *string
	if result.Err != nil {
		msg := result.Err.Error()
		errMsg = &msg
	}
	_, err := st.s.db.Exec(ctx, `INSERT INTO task_results
		(task_id, started_at, ended_at, success, error, items_processed)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.TaskID, result.StartedAt, result.EndedAt, result.Success(), errMsg, result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// TaskHistory returns up to limit results for a task, most recent first.
func (st *schedulerStore) TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	rows, err := st.s.db.Query(ctx, `SELECT task_id, started_at, ended_at, success, error, items_processed
		FROM task_results WHERE task_id = $1 ORDER BY started_at DESC, id DESC LIMIT $2`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	defer rows.Close()

	var results []domain.TaskResult
	for rows.Next() {
		var (
			r       domain.TaskResult
			success bool
			errMsg  *string
		)
		if err := rows.Scan(&r.TaskID, &r.StartedAt, &r.EndedAt, &success, &errMsg, &r.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		if !success {
			r.Err = errors.New(fromNullableString(errMsg))
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task history: %w", err)
	}
	return results, nil
}

// PruneHistory keeps the most recent keep results per task.
func (st *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := st.s.db.Exec(ctx, `DELETE FROM task_results WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) ranked WHERE rn > $1
		)`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.ScheduledTask, error) {
	var (
		task                          domain.ScheduledTask
		intervalSeconds               int64
		lastRun, nextRun, lastSuccess *time.Time
		lastError                     *string
	)
	if err := row.Scan(&task.ID, &task.Name, &intervalSeconds,
		&lastRun, &nextRun, &lastError, &lastSuccess); err != nil {
		return nil, err
	}
	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.LastRun = fromNullableTime(lastRun)
	task.NextRun = fromNullableTime(nextRun)
	task.LastError = fromNullableString(lastError)
	task.LastSuccess = fromNullableTime(lastSuccess)
	return &task, nil
}
