package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/vectorindex"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retriever embeds chunks and runs similarity search over a user's chunks.
type Retriever struct {
	chunks      driven.ChunkStore
	embedder    driven.EmbeddingService
	defaultTopK int

	// passes keeps one embedding pass in flight per document.
	passes singleflight.Group
}

// NewRetriever creates a retriever. A defaultTopK of zero or less uses
// domain.DefaultTopK. The embedder may be nil, in which case every call
// returns domain.ErrEmbeddingUnavailable.
func NewRetriever(chunks driven.ChunkStore, embedder driven.EmbeddingService, defaultTopK int) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = domain.DefaultTopK
	}
	return &Retriever{
		chunks:      chunks,
		embedder:    embedder,
		defaultTopK: defaultTopK,
	}
}

// EmbedPendingChunks embeds each of the document's chunks that lacks an
// embedding and stores it. A chunk that fails is logged and left for a
// later pass; the returned summary lists it. Concurrent calls for the same
// document share one pass and its summary.
func (r *Retriever) EmbedPendingChunks(ctx context.Context, documentID string) (*domain.EmbedBatchSummary, error) {
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	v, err, shared := r.passes.Do(documentID, func() (any, error) {
		return r.embedPending(ctx, documentID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Joined in-flight embedding pass for document %s", documentID)
	}
	return v.(*domain.EmbedBatchSummary), nil
}

func (r *Retriever) embedPending(ctx context.Context, documentID string) (*domain.EmbedBatchSummary, error) {
	pending, err := r.chunks.ListWithoutEmbedding(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list unembedded chunks: %w", err)
	}

	summary := &domain.EmbedBatchSummary{
		DocumentID: documentID,
		Attempted:  len(pending),
	}
	if len(pending) == 0 {
		return summary, nil
	}

	logger.Debug("Embedding %d chunks of document %s with %s", len(pending), documentID, r.embedder.ModelName())

	for i := range pending {
		chunk := &pending[i]
		err := r.embedChunk(ctx, chunk)
		if err != nil {
			logger.Warn("embed chunk %d of document %s: %v", chunk.Index, documentID, err)
		}
		summary.Record(domain.EmbedOutcome{
			ChunkID:    chunk.ID,
			ChunkIndex: chunk.Index,
			Err:        err,
		})
	}

	logger.Debug("Embedded %d/%d chunks of document %s", summary.Embedded, summary.Attempted, documentID)
	return summary, nil
}

func (r *Retriever) embedChunk(ctx context.Context, chunk *domain.Chunk) error {
	vector, err := r.embedder.Embed(ctx, chunk.Text)
	if err != nil {
		return domain.NewEmbeddingError(r.embedder.ModelName(), err)
	}
	if want := r.embedder.Dimensions(); want > 0 && len(vector) != want {
		return fmt.Errorf("%w: got %d values, want %d", domain.ErrDimensionMismatch, len(vector), want)
	}
	return r.chunks.SaveEmbedding(ctx, chunk.ID, vector)
}

// Search returns the chunks most similar to the query, restricted to the
// user's documents and, when given, to req.DocumentIDs.
func (r *Retriever) Search(ctx context.Context, req driving.SearchRequest) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	// 1. Validate the request
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = r.defaultTopK
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	// 2. Load the candidate set
	candidates, err := r.chunks.ListEmbedded(ctx, req.UserID, req.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("list embedded chunks: %w", err)
	}
	logger.Debug("User %s: %d candidate chunks", req.UserID, len(candidates))
	if len(candidates) == 0 {
		return &domain.RetrievalResult{}, nil
	}

	// 3. Embed the query
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.NewEmbeddingError(r.embedder.ModelName(), err)
	}

	// 4. Rank
	vectors := make([][]float32, len(candidates))
	for i := range candidates {
		vectors[i] = candidates[i].Embedding
	}
	hits, err := vectorindex.Search(queryVector, vectors, topK)
	if errors.Is(err, domain.ErrEmptyCandidateSet) {
		return &domain.RetrievalResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	result := &domain.RetrievalResult{Chunks: make([]domain.ScoredChunk, 0, len(hits))}
	for _, hit := range hits {
		candidate := candidates[hit.Index]
		result.Chunks = append(result.Chunks, domain.ScoredChunk{
			Chunk:         candidate.Chunk,
			DocumentTitle: candidate.DocumentTitle,
			Score:         hit.Score,
		})
		logger.Debug("  %.4f  %s #%d", hit.Score, candidate.DocumentTitle, candidate.Index)
	}
	return result, nil
}
