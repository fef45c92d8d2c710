package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentService manages a user's documents.
// Every call is scoped to userID; documents owned by other users are
// reported as domain.ErrNotFound.
type DocumentService interface {
	// Register stores a document whose text has already been extracted.
	// The document starts in the pending state.
	Register(ctx context.Context, doc NewDocument) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, userID, documentID string) (*domain.Document, error)

	// List returns the user's documents, newest first.
	List(ctx context.Context, userID string) ([]domain.Document, error)

	// Chunks returns the document's chunks ordered by index.
	Chunks(ctx context.Context, userID, documentID string) ([]domain.Chunk, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, userID, documentID string) error
}

// NewDocument is the input to DocumentService.Register.
type NewDocument struct {
	UserID   string
	Title    string
	FileType domain.FileType

	// Text is the extracted plain text.
	Text string

	// PageCount is the page count reported by extraction. Zero means unknown.
	PageCount int
}
