package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	scheduler := NewScheduler(10*time.Minute, memory.NewStore(), nil)

	require.NotNil(t, scheduler)
	assert.Equal(t, 10*time.Minute, scheduler.sweepInterval)
	assert.Equal(t, time.Minute, scheduler.tick)
}

func TestScheduler_StartStop(t *testing.T) {
	store := memory.NewStore()
	scheduler := NewScheduler(10*time.Minute, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	// Give it time to start
	require.Eventually(t, func() bool {
		task, err := store.Scheduler().GetTask(ctx, domain.TaskIDEmbedSweep)
		return err == nil && task != nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	wg.Wait()

	task, err := store.Scheduler().GetTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	assert.Equal(t, "Embedding Sweep", task.Name)
	assert.Equal(t, 10*time.Minute, task.Interval)
	assert.True(t, task.LastRun.IsZero(), "not due yet")
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(time.Minute, memory.NewStore(), nil)

	// Stop without starting should be safe
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_ContextCancelStopsLoop(t *testing.T) {
	scheduler := NewScheduler(time.Minute, memory.NewStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_ZeroIntervalDisablesSweep(t *testing.T) {
	store := memory.NewStore()
	scheduler := NewScheduler(0, store, nil)
	ctx := context.Background()

	require.NoError(t, scheduler.initialiseTasks(ctx))
	tasks, err := store.Scheduler().ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestScheduler_EnsureTaskUpdatesInterval(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, NewScheduler(10*time.Minute, store, nil).initialiseTasks(ctx))
	require.NoError(t, NewScheduler(time.Hour, store, nil).initialiseTasks(ctx))

	task, err := store.Scheduler().GetTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, task.Interval)
}

func TestScheduler_DueTaskRunsOnStart(t *testing.T) {
	store := memory.NewStore()
	embedder := newKeywordEmbedder("sky")
	seedDocument(t, store, "doc-1", "alice", "Sky", "sky", "blue sky")
	ctx := context.Background()
	require.NoError(t, store.Scheduler().SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDEmbedSweep,
		Name:     "Embedding Sweep",
		Interval: time.Hour,
	}))

	scheduler := NewScheduler(time.Hour, store, NewRetriever(store.Chunks(), embedder, 0))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = scheduler.Start(runCtx) }()

	require.Eventually(t, func() bool {
		history, err := store.Scheduler().TaskHistory(ctx, domain.TaskIDEmbedSweep, 1)
		return err == nil && len(history) == 1
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, scheduler.Stop())

	count, err := store.Chunks().CountEmbedded(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	task, err := store.Scheduler().GetTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	assert.False(t, task.LastSuccess.IsZero())
	assert.True(t, task.NextRun.After(task.LastRun))
}

func TestScheduler_RunTask_EmbedSweep(t *testing.T) {
	store := memory.NewStore()
	embedder := newKeywordEmbedder("sky")
	seedDocument(t, store, "doc-1", "alice", "Sky", "sky", "blue sky")
	seedDocument(t, store, "doc-22", "bob", "Other", "sky sky")

	// Pending documents are not swept
	ctx := context.Background()
	require.NoError(t, store.Documents().Save(ctx, &domain.Document{ID: "doc-333", UserID: "alice", Title: "New"}))
	require.NoError(t, store.Chunks().Create(ctx, &domain.Chunk{ID: "p-c0", DocumentID: "doc-333", Text: "sky"}))

	scheduler := NewScheduler(10*time.Minute, store, NewRetriever(store.Chunks(), embedder, 0))
	result, err := scheduler.RunTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, 3, result.ItemsProcessed)
	assert.Equal(t, 3, embedder.callCount())

	pending, err := store.Chunks().ListWithoutEmbedding(ctx, "doc-333")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	history, err := store.Scheduler().TaskHistory(ctx, domain.TaskIDEmbedSweep, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success())
	assert.Equal(t, 3, history[0].ItemsProcessed)

	// A second sweep finds nothing to do
	result, err = scheduler.RunTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsProcessed)
	assert.Equal(t, 3, embedder.callCount())
}

func TestScheduler_RunTask_SweepDuringEmbeddingFollowOn(t *testing.T) {
	p := newPipeline(t, chunker.WithChunkSize(40), chunker.WithOverlap(5))
	p.embedder.delay = 5 * time.Millisecond
	ctx := context.Background()

	doc := register(t, p.documents, driving.NewDocument{
		UserID: "alice",
		Text:   strings.Repeat("The sky is blue. Water is wet. ", 6),
	})
	require.NoError(t, p.ingestion.Process(ctx, doc.ID))

	scheduler := NewScheduler(time.Hour, p.store, p.retriever)
	_, err := scheduler.RunTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	p.ingestion.Wait()

	chunks, err := p.store.Chunks().List(ctx, doc.ID)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, len(chunks), p.embedder.callCount(), "each chunk embedded once")
	for _, c := range chunks {
		assert.NotNil(t, c.Embedding)
	}
}

func TestScheduler_RunTask_RecordsChunkFailures(t *testing.T) {
	store := memory.NewStore()
	embedder := newKeywordEmbedder("sky")
	embedder.failOn("blue sky", errors.New("quota exceeded"))
	seedDocument(t, store, "doc-1", "alice", "Sky", "sky", "blue sky")
	ctx := context.Background()

	scheduler := NewScheduler(10*time.Minute, store, NewRetriever(store.Chunks(), embedder, 0))
	result, err := scheduler.RunTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.ErrorIs(t, result.Err, domain.ErrEmbedding)
	assert.Contains(t, result.Err.Error(), "doc-1")

	task, err := store.Scheduler().GetTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	assert.Contains(t, task.LastError, "quota exceeded")
	assert.True(t, task.LastSuccess.IsZero())
}

func TestScheduler_RunTask_WithoutEmbedder(t *testing.T) {
	scheduler := NewScheduler(10*time.Minute, memory.NewStore(), nil)
	result, err := scheduler.RunTask(context.Background(), domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, domain.ErrEmbeddingUnavailable)
}

func TestScheduler_RunTask_Unknown(t *testing.T) {
	scheduler := NewScheduler(10*time.Minute, memory.NewStore(), nil)
	_, err := scheduler.RunTask(context.Background(), "reindex")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_ClaimPreventsOverlap(t *testing.T) {
	scheduler := NewScheduler(time.Minute, memory.NewStore(), nil)

	assert.True(t, scheduler.claim(domain.TaskIDEmbedSweep))
	assert.False(t, scheduler.claim(domain.TaskIDEmbedSweep))
	scheduler.release(domain.TaskIDEmbedSweep)
	assert.True(t, scheduler.claim(domain.TaskIDEmbedSweep))
}

func TestScheduler_TasksAndHistory(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	scheduler := NewScheduler(10*time.Minute, store, nil)

	require.NoError(t, scheduler.initialiseTasks(ctx))
	_, err := scheduler.RunTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	_, err = scheduler.RunTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)

	tasks, err := scheduler.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskIDEmbedSweep, tasks[0].ID)

	history, err := scheduler.History(ctx, domain.TaskIDEmbedSweep, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	history, err = scheduler.History(ctx, domain.TaskIDEmbedSweep, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
