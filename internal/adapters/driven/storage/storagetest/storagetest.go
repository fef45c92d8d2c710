// Package storagetest provides a conformance suite for driven.RecordStore
// implementations.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) driven.RecordStore

// Run exercises every RecordStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s driven.RecordStore)
	}{
		{"DocumentSaveAndGet", testDocumentSaveAndGet},
		{"DocumentDuplicate", testDocumentDuplicate},
		{"DocumentNotFound", testDocumentNotFound},
		{"DocumentListScopedAndOrdered", testDocumentList},
		{"DocumentListByState", testDocumentListByState},
		{"UpdateStateHappyPath", testUpdateState},
		{"UpdateStateRejectsStaleFrom", testUpdateStateStale},
		{"UpdateStateMissingDocument", testUpdateStateMissing},
		{"DeleteRemovesChunks", testDeleteRemovesChunks},
		{"ChunkCreateAndList", testChunkCreateAndList},
		{"ChunkDuplicateIndex", testChunkDuplicateIndex},
		{"ChunkEmbeddings", testChunkEmbeddings},
		{"ListEmbeddedScoping", testListEmbeddedScoping},
		{"Conversations", testConversations},
		{"Questions", testQuestions},
		{"Scheduler", testScheduler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer func() { assert.NoError(t, s.Close()) }()
			tt.fn(t, s)
		})
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// NewDocument returns a pending document created offset seconds after a fixed base time.
func NewDocument(id, userID string, offset int) *domain.Document {
	return &domain.Document{
		ID:            id,
		UserID:        userID,
		Title:         id + ".txt",
		FileType:      domain.FileTypeText,
		ExtractedText: "text of " + id,
		State:         domain.StatePending,
		CreatedAt:     base.Add(time.Duration(offset) * time.Second),
	}
}

// NewChunk returns a chunk of documentID with a derived ID.
func NewChunk(documentID string, index int, embedding []float32) *domain.Chunk {
	return &domain.Chunk{
		ID:         fmt.Sprintf("%s-c%d", documentID, index),
		DocumentID: documentID,
		Index:      index,
		PageNumber: index + 1,
		Text:       fmt.Sprintf("chunk %d of %s", index, documentID),
		Embedding:  embedding,
	}
}

func saveDoc(t *testing.T, s driven.RecordStore, doc *domain.Document) {
	t.Helper()
	require.NoError(t, s.Documents().Save(context.Background(), doc))
}

func complete(t *testing.T, s driven.RecordStore, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Documents().UpdateState(ctx, id, domain.StateChange{
		From: domain.StatePending, To: domain.StateProcessing,
	}))
	require.NoError(t, s.Documents().UpdateState(ctx, id, domain.StateChange{
		From: domain.StateProcessing, To: domain.StateCompleted,
		PageCount: 2, WordCount: 40, ProcessedAt: base.Add(time.Hour),
	}))
}

func testDocumentSaveAndGet(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	doc := NewDocument("doc-1", "alice", 0)
	doc.PageCount = 3
	saveDoc(t, s, doc)

	got, err := s.Documents().Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "doc-1.txt", got.Title)
	assert.Equal(t, domain.FileTypeText, got.FileType)
	assert.Equal(t, "text of doc-1", got.ExtractedText)
	assert.Equal(t, 3, got.PageCount)
	assert.Equal(t, domain.StatePending, got.State)
	assert.True(t, got.CreatedAt.Equal(doc.CreatedAt))
	assert.True(t, got.ProcessedAt.IsZero())
}

func testDocumentDuplicate(t *testing.T, s driven.RecordStore) {
	saveDoc(t, s, NewDocument("doc-1", "alice", 0))
	err := s.Documents().Save(context.Background(), NewDocument("doc-1", "bob", 1))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func testDocumentNotFound(t *testing.T, s driven.RecordStore) {
	_, err := s.Documents().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDocumentList(t *testing.T, s driven.RecordStore) {
	saveDoc(t, s, NewDocument("a1", "alice", 0))
	saveDoc(t, s, NewDocument("b1", "bob", 1))
	saveDoc(t, s, NewDocument("a2", "alice", 2))

	docs, err := s.Documents().List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a2", docs[0].ID)
	assert.Equal(t, "a1", docs[1].ID)

	docs, err = s.Documents().List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testDocumentListByState(t *testing.T, s driven.RecordStore) {
	saveDoc(t, s, NewDocument("a1", "alice", 0))
	saveDoc(t, s, NewDocument("b1", "bob", 1))
	complete(t, s, "a1")

	docs, err := s.Documents().ListByState(context.Background(), domain.StateCompleted)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a1", docs[0].ID)

	docs, err = s.Documents().ListByState(context.Background(), domain.StatePending)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b1", docs[0].ID)
}

func testUpdateState(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	saveDoc(t, s, NewDocument("doc-1", "alice", 0))
	complete(t, s, "doc-1")

	got, err := s.Documents().Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, got.State)
	assert.Equal(t, 2, got.PageCount)
	assert.Equal(t, 40, got.WordCount)
	assert.True(t, got.ProcessedAt.Equal(base.Add(time.Hour)))
	assert.Empty(t, got.ErrorMessage)

	saveDoc(t, s, NewDocument("doc-2", "alice", 1))
	require.NoError(t, s.Documents().UpdateState(ctx, "doc-2", domain.StateChange{
		From: domain.StatePending, To: domain.StateProcessing,
	}))
	require.NoError(t, s.Documents().UpdateState(ctx, "doc-2", domain.StateChange{
		From: domain.StateProcessing, To: domain.StateFailed, ErrorMessage: "boom",
	}))
	got, err = s.Documents().Get(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, got.State)
	assert.Equal(t, "boom", got.ErrorMessage)
}

func testUpdateStateStale(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	saveDoc(t, s, NewDocument("doc-1", "alice", 0))
	change := domain.StateChange{From: domain.StatePending, To: domain.StateProcessing}
	require.NoError(t, s.Documents().UpdateState(ctx, "doc-1", change))

	// A second job claiming the same document loses.
	err := s.Documents().UpdateState(ctx, "doc-1", change)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Illegal edges are rejected before touching storage.
	err = s.Documents().UpdateState(ctx, "doc-1", domain.StateChange{
		From: domain.StateCompleted, To: domain.StatePending,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := s.Documents().Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessing, got.State)
}

func testUpdateStateMissing(t *testing.T, s driven.RecordStore) {
	err := s.Documents().UpdateState(context.Background(), "missing", domain.StateChange{
		From: domain.StatePending, To: domain.StateProcessing,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDeleteRemovesChunks(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	saveDoc(t, s, NewDocument("doc-1", "alice", 0))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("doc-1", 0, []float32{1, 0})))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("doc-1", 1, nil)))

	require.NoError(t, s.Documents().Delete(ctx, "doc-1"))

	_, err := s.Documents().Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err := s.Chunks().List(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	err = s.Documents().Delete(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testChunkCreateAndList(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	saveDoc(t, s, NewDocument("doc-1", "alice", 0))
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, s.Chunks().Create(ctx, NewChunk("doc-1", i, nil)))
	}

	chunks, err := s.Chunks().List(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, i+1, c.PageNumber)
		assert.False(t, c.HasEmbedding())
		assert.False(t, c.CreatedAt.IsZero())
	}
}

func testChunkDuplicateIndex(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	saveDoc(t, s, NewDocument("doc-1", "alice", 0))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("doc-1", 0, nil)))

	dup := NewChunk("doc-1", 0, nil)
	dup.ID = "other-id"
	assert.ErrorIs(t, s.Chunks().Create(ctx, dup), domain.ErrAlreadyExists)
}

func testChunkEmbeddings(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	saveDoc(t, s, NewDocument("doc-1", "alice", 0))
	for i := range 3 {
		require.NoError(t, s.Chunks().Create(ctx, NewChunk("doc-1", i, nil)))
	}

	require.NoError(t, s.Chunks().SaveEmbedding(ctx, "doc-1-c1", []float32{0.5, -1.25, 3}))

	pending, err := s.Chunks().ListWithoutEmbedding(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 0, pending[0].Index)
	assert.Equal(t, 2, pending[1].Index)

	chunks, err := s.Chunks().List(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1.25, 3}, chunks[1].Embedding)

	err = s.Chunks().SaveEmbedding(ctx, "missing", []float32{1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Chunks().DeleteByDocument(ctx, "doc-1"))
	chunks, err = s.Chunks().List(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func testListEmbeddedScoping(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	saveDoc(t, s, NewDocument("a1", "alice", 0))
	saveDoc(t, s, NewDocument("a2", "alice", 1))
	saveDoc(t, s, NewDocument("b1", "bob", 2))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("a2", 0, []float32{1, 1})))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("a1", 1, []float32{0, 1})))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("a1", 0, []float32{1, 0})))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("a1", 2, nil)))
	require.NoError(t, s.Chunks().Create(ctx, NewChunk("b1", 0, []float32{2, 2})))

	chunks, err := s.Chunks().ListEmbedded(ctx, "alice", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a1-c0", chunks[0].ID)
	assert.Equal(t, "a1-c1", chunks[1].ID)
	assert.Equal(t, "a2-c0", chunks[2].ID)
	assert.Equal(t, "a1.txt", chunks[0].DocumentTitle)

	chunks, err = s.Chunks().ListEmbedded(ctx, "alice", []string{"a2", "b1"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a2-c0", chunks[0].ID)

	n, err := s.Chunks().CountEmbedded(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Chunks().CountEmbedded(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testConversations(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	store := s.Conversations()

	older := &domain.Conversation{ID: "c1", UserID: "alice", Title: "first", CreatedAt: base, UpdatedAt: base}
	newer := &domain.Conversation{ID: "c2", UserID: "alice", Title: "second",
		CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)}
	other := &domain.Conversation{ID: "c3", UserID: "bob", Title: "bob's", CreatedAt: base, UpdatedAt: base}
	for _, c := range []*domain.Conversation{older, newer, other} {
		require.NoError(t, store.SaveConversation(ctx, c))
	}

	convs, err := store.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "c2", convs[0].ID)

	// Touching the older one moves it to the front.
	older.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, store.SaveConversation(ctx, older))
	convs, err = store.ListConversations(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "c1", convs[0].ID)

	got, err := store.GetConversation(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.UserID)

	_, err = store.GetConversation(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testQuestions(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	store := s.Conversations()
	require.NoError(t, store.SaveConversation(ctx, &domain.Conversation{ID: "c1", UserID: "alice", Title: "t"}))

	q1 := &domain.Question{
		ID: "q1", ConversationID: "c1", UserID: "alice",
		Text: "What color is the sky?", Answer: "Blue [Source 1].",
		Citations: []domain.Citation{{
			DocumentID: "d1", DocumentTitle: "sky.txt", ChunkID: "d1-c0",
			PageNumber: 1, TextPreview: "The sky is blue.", Score: 0.9,
		}},
		Model:          "llama3.2",
		ProcessingTime: 1500 * time.Millisecond,
		CreatedAt:      base,
	}
	q2 := &domain.Question{
		ID: "q2", ConversationID: "c1", UserID: "alice",
		Text: "Anything else?", Answer: domain.NoDocumentsAnswer,
		CreatedAt: base.Add(time.Second),
	}
	require.NoError(t, store.SaveQuestion(ctx, q1))
	require.NoError(t, store.SaveQuestion(ctx, q2))
	assert.ErrorIs(t, store.SaveQuestion(ctx, q1), domain.ErrAlreadyExists)

	got, err := store.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, q1.Citations, got.Citations)
	assert.Equal(t, 1500*time.Millisecond, got.ProcessingTime)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Nil(t, got.Helpful)

	require.NoError(t, store.SetFeedback(ctx, "q1", false))
	got, err = store.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	require.NotNil(t, got.Helpful)
	assert.False(t, *got.Helpful)

	assert.ErrorIs(t, store.SetFeedback(ctx, "missing", true), domain.ErrNotFound)

	list, err := store.ListQuestions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].ID)
	assert.Equal(t, "q2", list[1].ID)
	assert.Empty(t, list[1].Citations)

	n, err := store.CountQuestions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testScheduler(t *testing.T, s driven.RecordStore) {
	ctx := context.Background()
	store := s.Scheduler()

	task, err := store.GetTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	assert.Nil(t, task)

	task = &domain.ScheduledTask{
		ID: domain.TaskIDEmbedSweep, Name: "Embedding Sweep",
		Interval: 10 * time.Minute, NextRun: base.Add(10 * time.Minute),
	}
	require.NoError(t, store.SaveTask(ctx, task))

	task.LastRun = base
	task.LastError = "provider down"
	require.NoError(t, store.SaveTask(ctx, task))

	got, err := store.GetTask(ctx, domain.TaskIDEmbedSweep)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10*time.Minute, got.Interval)
	assert.True(t, got.LastRun.Equal(base))
	assert.Equal(t, "provider down", got.LastError)
	assert.True(t, got.LastSuccess.IsZero())

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	for i := range 5 {
		var runErr error
		if i == 4 {
			runErr = errors.New("provider down")
		}
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDEmbedSweep,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			EndedAt:        base.Add(time.Duration(i)*time.Minute + time.Second),
			Err:            runErr,
			ItemsProcessed: i,
		}))
	}
	require.NoError(t, store.PruneHistory(ctx, 3))

	history, err := store.TaskHistory(ctx, domain.TaskIDEmbedSweep, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 4, history[0].ItemsProcessed)
	assert.False(t, history[0].Success())
	assert.EqualError(t, history[0].Err, "provider down")
	assert.True(t, history[1].Success())
	assert.Equal(t, 2, history[2].ItemsProcessed)

	assert.ErrorIs(t, store.SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.RecordResult(ctx, nil), domain.ErrInvalidInput)
}
