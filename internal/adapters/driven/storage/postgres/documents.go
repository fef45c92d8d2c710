package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

type documentStore struct {
	s *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, user_id, title, file_type, extracted_text, page_count, word_count,
	state, error_message, processed_at, created_at, updated_at`

// Save creates a document.
func (d *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = d.s.now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.State == "" {
		doc.State = domain.StatePending
	}

	_, err := d.s.db.Exec(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		doc.ID, doc.UserID, doc.Title, string(doc.FileType), doc.ExtractedText,
		doc.PageCount, doc.WordCount, string(doc.State), nullableString(doc.ErrorMessage),
		nullableTime(doc.ProcessedAt), doc.CreatedAt, doc.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID.
func (d *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := d.s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// List returns a user's documents, newest first.
func (d *documentStore) List(ctx context.Context, userID string) ([]domain.Document, error) {
	return d.query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// ListByState returns documents in the given state, oldest first.
func (d *documentStore) ListByState(ctx context.Context, state domain.ProcessingState) ([]domain.Document, error) {
	return d.query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE state = $1 ORDER BY created_at, id`, string(state))
}

// UpdateState applies change with a single conditional update on the current state.
func (d *documentStore) UpdateState(ctx context.Context, id string, change domain.StateChange) error {
	if err := change.Validate(); err != nil {
		return err
	}

	now := d.s.now()
	var (
		query string
		args  []any
	)
	switch change.To {
	case domain.StateCompleted:
		query = `UPDATE documents SET state = $1, error_message = NULL, page_count = $2,
			word_count = $3, processed_at = $4, updated_at = $5 WHERE id = $6 AND state = $7`
		args = []any{string(change.To), change.PageCount, change.WordCount, change.ProcessedAt,
			now, id, string(change.From)}
	case domain.StateFailed:
		query = `UPDATE documents SET state = $1, error_message = $2, updated_at = $3
			WHERE id = $4 AND state = $5`
		args = []any{string(change.To), nullableString(change.ErrorMessage), now, id, string(change.From)}
	default:
		query = `UPDATE documents SET state = $1, updated_at = $2 WHERE id = $3 AND state = $4`
		args = []any{string(change.To), now, id, string(change.From)}
	}

	tag, err := d.s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating document state: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = d.s.db.QueryRow(ctx, `SELECT state FROM documents WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading document state: %w", err)
	}
	return fmt.Errorf("%w: document %s is %s, not %s", domain.ErrInvalidTransition, id, current, change.From)
}

// Delete removes a document and all of its chunks.
func (d *documentStore) Delete(ctx context.Context, id string) error {
	return d.s.withTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, id); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

func (d *documentStore) query(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := d.s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		doc             domain.Document
		fileType, state string
		errMsg          *string
		processedAt     *time.Time
	)
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Title, &fileType, &doc.ExtractedText,
		&doc.PageCount, &doc.WordCount, &state, &errMsg, &processedAt,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.FileType = domain.FileType(fileType)
	doc.State = domain.ProcessingState(state)
	doc.ErrorMessage = fromNullableString(errMsg)
	doc.ProcessedAt = fromNullableTime(processedAt)
	return &doc, nil
}
