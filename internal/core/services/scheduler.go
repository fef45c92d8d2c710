package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is the number of results kept per task.
const historyKeep = 100

// sweepConcurrency bounds the documents embedded at once by the sweep.
const sweepConcurrency = 4

// Scheduler runs background maintenance tasks on an interval.
// Its only built-in task is the embedding sweep, which picks up chunks
// that earlier embedding passes left behind.
type Scheduler struct {
	sweepInterval time.Duration
	store         driven.SchedulerStore
	docs          driven.DocumentStore
	retriever     driving.Retriever
	now           func() time.Time
	tick          time.Duration

	mu       sync.Mutex
	running  bool
	inflight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. A zero sweepInterval disables the sweep.
func NewScheduler(
	sweepInterval time.Duration,
	store driven.RecordStore,
	retriever driving.Retriever,
) *Scheduler {
	return &Scheduler{
		sweepInterval: sweepInterval,
		store:         store.Scheduler(),
		docs:          store.Documents(),
		retriever:     retriever,
		now:           time.Now,
		tick:          time.Minute,
		inflight:      make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// RunTask runs a task immediately and records its result.
func (s *Scheduler) RunTask(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		if taskID != domain.TaskIDEmbedSweep {
			return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
		}
		task = &domain.ScheduledTask{ID: taskID, Name: "Embedding Sweep", Interval: s.sweepInterval}
	}
	return s.execute(ctx, task), nil
}

// Tasks returns the stored tasks.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.ListTasks(ctx)
}

// History returns up to limit results for a task, most recent first.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.TaskHistory(ctx, taskID, limit)
}

// initialiseTasks ensures all enabled tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if s.sweepInterval <= 0 {
		return nil
	}
	return s.ensureTask(ctx, domain.TaskIDEmbedSweep, "Embedding Sweep", s.sweepInterval)
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, interval time.Duration) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: interval,
			NextRun:  s.now().Add(interval),
		}
	} else if task.Interval != interval {
		task.Interval = interval
		task.NextRun = s.now().Add(interval)
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	if s.sweepInterval <= 0 {
		return
	}

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.Due(now) {
			continue
		}
		if !s.claim(task.ID) {
			continue // Previous run still in progress
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(task.ID)
			s.execute(ctx, &task)
		}()
	}
}

func (s *Scheduler) claim(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[taskID] {
		return false
	}
	s.inflight[taskID] = true
	return true
}

func (s *Scheduler) release(taskID string) {
	s.mu.Lock()
	delete(s.inflight, taskID)
	s.mu.Unlock()
}

// execute runs a single task and persists its state and result.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.TaskResult {
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: s.now(),
	}

	switch task.ID {
	case domain.TaskIDEmbedSweep:
		result.ItemsProcessed, result.Err = s.runEmbedSweep(ctx)
	default:
		result.Err = fmt.Errorf("%w: unknown task %s", domain.ErrNotFound, task.ID)
	}

	result.EndedAt = s.now()
	if result.Err != nil {
		logger.Warn("scheduler: task %s failed: %v", task.ID, result.Err)
		task.LastError = result.Err.Error()
	} else {
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	task.LastRun = result.StartedAt
	if task.Interval > 0 {
		task.NextRun = result.EndedAt.Add(task.Interval)
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, historyKeep); err != nil {
		logger.Warn("scheduler: failed to prune history: %v", err)
	}
	return result
}

// runEmbedSweep embeds pending chunks of every completed document and
// returns the number of chunks embedded. Chunks that still fail are
// reported in the error.
func (s *Scheduler) runEmbedSweep(ctx context.Context) (int, error) {
	if s.retriever == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	docs, err := s.docs.ListByState(ctx, domain.StateCompleted)
	if err != nil {
		return 0, fmt.Errorf("list completed documents: %w", err)
	}

	var (
		embedded atomic.Int64
		mu       sync.Mutex
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for i := range docs {
		doc := docs[i]
		g.Go(func() error {
			summary, err := s.retriever.EmbedPendingChunks(gctx, doc.ID)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.ID, err)
			}
			embedded.Add(int64(summary.Embedded))
			if !summary.Complete() {
				mu.Lock()
				failures = append(failures, fmt.Errorf("document %s: %d chunks not embedded: %w",
					doc.ID, summary.Failed(), summary.Failures[0].Err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(embedded.Load()), err
	}
	return int(embedded.Load()), errors.Join(failures...)
}
