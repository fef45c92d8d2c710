package postgres

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

type chunkStore struct {
	s *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = `id, document_id, chunk_index, page_number, text, embedding, created_at`

// Create stores a new chunk.
func (c *chunkStore) Create(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil || chunk.ID == "" || chunk.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = c.s.now()
	}

	_, err := c.s.db.Exec(ctx, `INSERT INTO chunks (`+chunkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		chunk.ID, chunk.DocumentID, chunk.Index, chunk.PageNumber, chunk.Text,
		embeddingArg(chunk.Embedding), chunk.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("chunk %d of document %s: %w", chunk.Index, chunk.DocumentID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// List returns all chunks of a document ordered by index.
func (c *chunkStore) List(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return c.query(ctx, `SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = $1 ORDER BY chunk_index`, documentID)
}

// ListWithoutEmbedding returns the document's chunks lacking an embedding.
func (c *chunkStore) ListWithoutEmbedding(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return c.query(ctx, `SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = $1 AND embedding IS NULL ORDER BY chunk_index`, documentID)
}

// SaveEmbedding assigns a chunk's embedding.
func (c *chunkStore) SaveEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	tag, err := c.s.db.Exec(ctx, `UPDATE chunks SET embedding = $1 WHERE id = $2`, embedding, chunkID)
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
	}
	return nil
}

// ListEmbedded returns the embedded chunks of the user's documents.
// A nil documentIDs array is sent as NULL and disables the filter.
func (c *chunkStore) ListEmbedded(ctx context.Context, userID string, documentIDs []string) ([]domain.EmbeddedChunk, error) {
	if len(documentIDs) == 0 {
		documentIDs = nil
	}
	rows, err := c.s.db.Query(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.page_number, c.text, c.embedding, c.created_at, d.title
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.user_id = $1 AND c.embedding IS NOT NULL
			AND ($2::text[] IS NULL OR c.document_id = ANY($2))
		ORDER BY d.created_at, d.id, c.chunk_index`, userID, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("querying embedded chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.EmbeddedChunk
	for rows.Next() {
		var ec domain.EmbeddedChunk
		if err := rows.Scan(&ec.ID, &ec.DocumentID, &ec.Index, &ec.PageNumber, &ec.Text,
			&ec.Embedding, &ec.CreatedAt, &ec.DocumentTitle); err != nil {
			return nil, fmt.Errorf("scanning embedded chunk: %w", err)
		}
		chunks = append(chunks, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embedded chunks: %w", err)
	}
	return chunks, nil
}

// CountEmbedded returns the number of embedded chunks a user owns.
func (c *chunkStore) CountEmbedded(ctx context.Context, userID string) (int, error) {
	var n int64
	err := c.s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.user_id = $1 AND c.embedding IS NOT NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting embedded chunks: %w", err)
	}
	return int(n), nil
}

// DeleteByDocument removes all chunks of a document.
func (c *chunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := c.s.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

func (c *chunkStore) query(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := c.s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.PageNumber,
			&chunk.Text, &chunk.Embedding, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// embeddingArg maps an empty embedding to NULL.
func embeddingArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return v
}
