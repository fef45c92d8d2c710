package memory

import (
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RecordStore = (*Store)(nil)

// Store is an in-memory implementation of driven.RecordStore.
// All sub-stores share one lock so cross-entity queries see a consistent view.
type Store struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	documents     map[string]*docRecord
	chunks        map[string]*chunkRecord
	conversations map[string]*convRecord
	questions     map[string]*questionRecord
	tasks         map[string]domain.ScheduledTask
	results       []domain.TaskResult
}

// Records carry an insertion sequence used to break timestamp ties.
type docRecord struct {
	doc domain.Document
	seq int64
}

type chunkRecord struct {
	chunk domain.Chunk
	seq   int64
}

type convRecord struct {
	conv domain.Conversation
	seq  int64
}

type questionRecord struct {
	q   domain.Question
	seq int64
}

// NewStore creates a new in-memory record store.
func NewStore() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		documents:     make(map[string]*docRecord),
		chunks:        make(map[string]*chunkRecord),
		conversations: make(map[string]*convRecord),
		questions:     make(map[string]*questionRecord),
		tasks:         make(map[string]domain.ScheduledTask),
	}
}

// Documents returns the document store view.
func (s *Store) Documents() driven.DocumentStore { return &DocumentStore{s} }

// Chunks returns the chunk store view.
func (s *Store) Chunks() driven.ChunkStore { return &ChunkStore{s} }

// Conversations returns the conversation store view.
func (s *Store) Conversations() driven.ConversationStore { return &ConversationStore{s} }

// Scheduler returns the scheduler store view.
func (s *Store) Scheduler() driven.SchedulerStore { return &SchedulerStore{s} }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// next returns the next insertion sequence. Callers hold the write lock.
func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func copyEmbedding(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
