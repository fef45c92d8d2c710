package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	s *Store
}

// Create stores a new chunk.
func (c *ChunkStore) Create(_ context.Context, chunk *domain.Chunk) error {
	if chunk == nil || chunk.ID == "" || chunk.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.documents[chunk.DocumentID]; !ok {
		return fmt.Errorf("document %s: %w", chunk.DocumentID, domain.ErrNotFound)
	}
	if _, ok := c.s.chunks[chunk.ID]; ok {
		return fmt.Errorf("chunk %s: %w", chunk.ID, domain.ErrAlreadyExists)
	}
	for _, rec := range c.s.chunks {
		if rec.chunk.DocumentID == chunk.DocumentID && rec.chunk.Index == chunk.Index {
			return fmt.Errorf("chunk %d of document %s: %w", chunk.Index, chunk.DocumentID, domain.ErrAlreadyExists)
		}
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = c.s.now()
	}

	stored := *chunk
	stored.Embedding = copyEmbedding(chunk.Embedding)
	c.s.chunks[chunk.ID] = &chunkRecord{chunk: stored, seq: c.s.next()}
	return nil
}

// List returns all chunks of a document ordered by index.
func (c *ChunkStore) List(_ context.Context, documentID string) ([]domain.Chunk, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.documentChunks(documentID, false), nil
}

// ListWithoutEmbedding returns the document's chunks lacking an embedding.
func (c *ChunkStore) ListWithoutEmbedding(_ context.Context, documentID string) ([]domain.Chunk, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.documentChunks(documentID, true), nil
}

// SaveEmbedding assigns a chunk's embedding.
func (c *ChunkStore) SaveEmbedding(_ context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	rec, ok := c.s.chunks[chunkID]
	if !ok {
		return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
	}
	rec.chunk.Embedding = copyEmbedding(embedding)
	return nil
}

// ListEmbedded returns the embedded chunks of the user's documents.
func (c *ChunkStore) ListEmbedded(_ context.Context, userID string, documentIDs []string) ([]domain.EmbeddedChunk, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var allowed map[string]bool
	if len(documentIDs) > 0 {
		allowed = make(map[string]bool, len(documentIDs))
		for _, id := range documentIDs {
			allowed[id] = true
		}
	}

	docs := c.s.filterDocuments(func(doc *domain.Document) bool {
		return doc.UserID == userID && (allowed == nil || allowed[doc.ID])
	})

	var result []domain.EmbeddedChunk
	for _, rec := range docs {
		for _, chunk := range c.s.documentChunks(rec.doc.ID, false) {
			if chunk.HasEmbedding() {
				result = append(result, domain.EmbeddedChunk{Chunk: chunk, DocumentTitle: rec.doc.Title})
			}
		}
	}
	return result, nil
}

// CountEmbedded returns the number of embedded chunks a user owns.
func (c *ChunkStore) CountEmbedded(_ context.Context, userID string) (int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	n := 0
	for _, rec := range c.s.chunks {
		doc, ok := c.s.documents[rec.chunk.DocumentID]
		if ok && doc.doc.UserID == userID && rec.chunk.HasEmbedding() {
			n++
		}
	}
	return n, nil
}

// DeleteByDocument removes all chunks of a document.
func (c *ChunkStore) DeleteByDocument(_ context.Context, documentID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.deleteChunks(documentID)
	return nil
}

// documentChunks returns copies of a document's chunks ordered by index.
// Callers hold the lock.
func (s *Store) documentChunks(documentID string, pendingOnly bool) []domain.Chunk {
	var result []domain.Chunk
	for _, rec := range s.chunks {
		if rec.chunk.DocumentID != documentID {
			continue
		}
		if pendingOnly && rec.chunk.HasEmbedding() {
			continue
		}
		chunk := rec.chunk
		chunk.Embedding = copyEmbedding(rec.chunk.Embedding)
		result = append(result, chunk)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

// deleteChunks removes a document's chunks. Callers hold the write lock.
func (s *Store) deleteChunks(documentID string) {
	for id, rec := range s.chunks {
		if rec.chunk.DocumentID == documentID {
			delete(s.chunks, id)
		}
	}
}
