package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Retriever embeds chunks and finds the ones most similar to a query.
type Retriever interface {
	// EmbedPendingChunks embeds every chunk of the document that lacks an
	// embedding. Per-chunk failures are reported in the summary, not as an error.
	EmbedPendingChunks(ctx context.Context, documentID string) (*domain.EmbedBatchSummary, error)

	// Search returns the chunks most similar to the query within the user's
	// documents. An empty result is not an error.
	Search(ctx context.Context, req SearchRequest) (*domain.RetrievalResult, error)
}

// SearchRequest scopes a similarity search.
type SearchRequest struct {
	Query string

	// UserID is required. Search never crosses users.
	UserID string

	// DocumentIDs optionally restricts the search to these documents.
	DocumentIDs []string

	// TopK is the maximum number of chunks returned. Zero uses the default.
	TopK int
}

// AnswerComposer turns retrieved chunks into a cited answer.
type AnswerComposer interface {
	// Compose generates an answer to question grounded on result.
	Compose(ctx context.Context, question string, result *domain.RetrievalResult) (*domain.Answer, error)
}
