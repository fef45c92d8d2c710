package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentStore persists documents and their processing state.
type DocumentStore interface {
	// Save creates a document. Returns domain.ErrAlreadyExists for a duplicate ID.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns a user's documents, newest first.
	List(ctx context.Context, userID string) ([]domain.Document, error)

	// ListByState returns documents in the given state across all users.
	ListByState(ctx context.Context, state domain.ProcessingState) ([]domain.Document, error)

	// UpdateState applies a state change only if the document is currently
	// in change.From. Returns domain.ErrInvalidTransition otherwise.
	UpdateState(ctx context.Context, id string, change domain.StateChange) error

	// Delete removes a document and all of its chunks.
	Delete(ctx context.Context, id string) error
}

// ChunkStore persists chunks and their embeddings.
type ChunkStore interface {
	// Create stores a new chunk. The (DocumentID, Index) pair must be unique.
	Create(ctx context.Context, chunk *domain.Chunk) error

	// List returns all chunks of a document ordered by index.
	List(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListWithoutEmbedding returns the document's chunks that lack an
	// embedding, ordered by index.
	ListWithoutEmbedding(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// SaveEmbedding assigns a chunk's embedding. Returns domain.ErrNotFound
	// if the chunk does not exist.
	SaveEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	// ListEmbedded returns the embedded chunks of the user's documents.
	// When documentIDs is non-empty only those documents are included.
	// Chunks are ordered by document creation then chunk index.
	ListEmbedded(ctx context.Context, userID string, documentIDs []string) ([]domain.EmbeddedChunk, error)

	// CountEmbedded returns the number of embedded chunks a user owns.
	CountEmbedded(ctx context.Context, userID string) (int, error)

	// DeleteByDocument removes all chunks of a document.
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ConversationStore persists conversations and question/answer records.
type ConversationStore interface {
	// SaveConversation creates or updates a conversation.
	SaveConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation. Returns domain.ErrNotFound if absent.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// ListConversations returns a user's conversations, most recently updated first.
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)

	// SaveQuestion creates a question/answer record.
	SaveQuestion(ctx context.Context, q *domain.Question) error

	// GetQuestion retrieves a question record. Returns domain.ErrNotFound if absent.
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)

	// ListQuestions returns a conversation's questions in the order asked.
	ListQuestions(ctx context.Context, conversationID string) ([]domain.Question, error)

	// SetFeedback records the helpful flag on a question.
	SetFeedback(ctx context.Context, questionID string, helpful bool) error

	// CountQuestions returns the number of questions a user asked.
	CountQuestions(ctx context.Context, userID string) (int, error)
}

// RecordStore bundles the stores a backend provides.
type RecordStore interface {
	Documents() DocumentStore
	Chunks() ChunkStore
	Conversations() ConversationStore
	Scheduler() SchedulerStore

	// Close releases the underlying connection.
	Close() error
}
