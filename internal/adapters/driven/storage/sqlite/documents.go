package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ==================== Document Store ====================

type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, user_id, title, file_type, extracted_text, page_count, word_count,
	state, error_message, processed_at, created_at, updated_at`

// Save creates a document.
func (s *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	now := s.store.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.State == "" {
		doc.State = domain.StatePending
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.UserID, doc.Title, string(doc.FileType), doc.ExtractedText,
		doc.PageCount, doc.WordCount, string(doc.State), nullString(doc.ErrorMessage),
		formatNullableTime(doc.ProcessedAt), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	return getDocument(ctx, s.store.db, id)
}

// List returns a user's documents, newest first.
func (s *documentStore) List(ctx context.Context, userID string) ([]domain.Document, error) {
	return s.query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
}

// ListByState returns documents in the given state, oldest first.
func (s *documentStore) ListByState(ctx context.Context, state domain.ProcessingState) ([]domain.Document, error) {
	return s.query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE state = ? ORDER BY created_at, rowid`, string(state))
}

// UpdateState applies change if the document is currently in change.From.
func (s *documentStore) UpdateState(ctx context.Context, id string, change domain.StateChange) error {
	if err := change.Validate(); err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := getDocument(ctx, tx, id)
	if err != nil {
		return err
	}
	if doc.State != change.From {
		return fmt.Errorf("%w: document %s is %s, not %s",
			domain.ErrInvalidTransition, id, doc.State, change.From)
	}

	change.Apply(doc, s.store.now())

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET
			state = ?, error_message = ?, page_count = ?, word_count = ?,
			processed_at = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, string(doc.State), nullString(doc.ErrorMessage), doc.PageCount, doc.WordCount,
		formatNullableTime(doc.ProcessedAt), formatTime(doc.UpdatedAt),
		id, string(change.From))
	if err != nil {
		return fmt.Errorf("updating document state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: document %s changed concurrently", domain.ErrInvalidTransition, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing state change: %w", err)
	}
	return nil
}

// Delete removes a document and all of its chunks.
func (s *documentStore) Delete(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

func (s *documentStore) query(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
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

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDocument(ctx context.Context, q querier, id string) (*domain.Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if isNoRows(err) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc                  domain.Document
		fileType, state      string
		errMsg, processedAt  sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Title, &fileType, &doc.ExtractedText,
		&doc.PageCount, &doc.WordCount, &state, &errMsg, &processedAt,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	doc.FileType = domain.FileType(fileType)
	doc.State = domain.ProcessingState(state)
	doc.ErrorMessage = errMsg.String
	doc.ProcessedAt = parseNullableTime(processedAt)
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	return &doc, nil
}
