package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ==================== Chunk Store ====================

type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = `id, document_id, chunk_index, page_number, text, embedding, created_at`

// Create stores a new chunk.
func (s *chunkStore) Create(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil || chunk.ID == "" || chunk.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = s.store.now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, chunk.ID, chunk.DocumentID, chunk.Index, chunk.PageNumber, chunk.Text,
		float32SliceToBytes(chunk.Embedding), formatTime(chunk.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("chunk %d of document %s: %w", chunk.Index, chunk.DocumentID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// List returns all chunks of a document ordered by index.
func (s *chunkStore) List(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.query(ctx, `SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = ? ORDER BY chunk_index`, documentID)
}

// ListWithoutEmbedding returns the document's chunks lacking an embedding.
func (s *chunkStore) ListWithoutEmbedding(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.query(ctx, `SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = ? AND embedding IS NULL ORDER BY chunk_index`, documentID)
}

// SaveEmbedding assigns a chunk's embedding.
func (s *chunkStore) SaveEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE chunks SET embedding = ? WHERE id = ?", float32SliceToBytes(embedding), chunkID)
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
	}
	return nil
}

// ListEmbedded returns the embedded chunks of the user's documents.
func (s *chunkStore) ListEmbedded(ctx context.Context, userID string, documentIDs []string) ([]domain.EmbeddedChunk, error) {
	query := `
		SELECT c.id, c.document_id, c.chunk_index, c.page_number, c.text, c.embedding, c.created_at, d.title
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.user_id = ? AND c.embedding IS NOT NULL`
	args := []any{userID}
	if len(documentIDs) > 0 {
		query += ` AND c.document_id IN (` + placeholders(len(documentIDs)) + `)`
		for _, id := range documentIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY d.created_at, d.rowid, c.chunk_index`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embedded chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.EmbeddedChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			ec        domain.EmbeddedChunk
			blob      []byte
			createdAt string
		)
		if err := rows.Scan(&ec.ID, &ec.DocumentID, &ec.Index, &ec.PageNumber, &ec.Text,
			&blob, &createdAt, &ec.DocumentTitle); err != nil {
			return nil, fmt.Errorf("scanning embedded chunk: %w", err)
		}
		ec.Embedding = bytesToFloat32Slice(blob)
		ec.CreatedAt = parseTime(createdAt)
		chunks = append(chunks, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embedded chunks: %w", err)
	}
	return chunks, nil
}

// CountEmbedded returns the number of embedded chunks a user owns.
func (s *chunkStore) CountEmbedded(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.user_id = ? AND c.embedding IS NOT NULL
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting embedded chunks: %w", err)
	}
	return n, nil
}

// DeleteByDocument removes all chunks of a document.
func (s *chunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

func (s *chunkStore) query(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			c         domain.Chunk
			blob      []byte
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.PageNumber, &c.Text,
			&blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = bytesToFloat32Slice(blob)
		c.CreatedAt = parseTime(createdAt)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}
