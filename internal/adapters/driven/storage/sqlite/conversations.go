package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ==================== Conversation Store ====================

type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

const questionColumns = `id, conversation_id, user_id, text, answer, citations, model,
	processing_ms, helpful, created_at`

// SaveConversation creates or updates a conversation.
func (s *conversationStore) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" {
		return domain.ErrInvalidInput
	}
	now := s.store.now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at
	`, conv.ID, conv.UserID, conv.Title, formatTime(conv.CreatedAt), formatTime(conv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation.
func (s *conversationStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = ?
	`, id)
	conv, err := scanConversation(row)
	if isNoRows(err) {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns a user's conversations, most recently updated first.
func (s *conversationStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at FROM conversations
		WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation //nolint:prealloc // size unknown from query
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return convs, nil
}

// SaveQuestion creates a question/answer record.
func (s *conversationStore) SaveQuestion(ctx context.Context, q *domain.Question) error {
	if q == nil || q.ID == "" || q.ConversationID == "" {
		return domain.ErrInvalidInput
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.store.now()
	}

	citations, err := json.Marshal(nonNilCitations(q.Citations))
	if err != nil {
		return fmt.Errorf("encoding citations: %w", err)
	}

	var helpful any
	if q.Helpful != nil {
		helpful = boolToInt(*q.Helpful)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.ConversationID, q.UserID, q.Text, q.Answer, string(citations), q.Model,
		q.ProcessingTime.Milliseconds(), helpful, formatTime(q.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("question %s: %w", q.ID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving question: %w", err)
	}
	return nil
}

// GetQuestion retrieves a question record.
func (s *conversationStore) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if isNoRows(err) {
		return nil, fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning question: %w", err)
	}
	return q, nil
}

// ListQuestions returns a conversation's questions in the order asked.
func (s *conversationStore) ListQuestions(ctx context.Context, conversationID string) ([]domain.Question, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions
		WHERE conversation_id = ? ORDER BY created_at, rowid`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question //nolint:prealloc // size unknown from query
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	return questions, nil
}

// SetFeedback records the helpful flag on a question.
func (s *conversationStore) SetFeedback(ctx context.Context, questionID string, helpful bool) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE questions SET helpful = ? WHERE id = ?", boolToInt(helpful), questionID)
	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
	}
	return nil
}

// CountQuestions returns the number of questions a user asked.
func (s *conversationStore) CountQuestions(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM questions WHERE user_id = ?", userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return n, nil
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		conv                 domain.Conversation
		createdAt, updatedAt string
	)
	if err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)
	return &conv, nil
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var (
		q                    domain.Question
		citations, createdAt string
		processingMS         int64
		helpful              sql.NullInt64
	)
	if err := row.Scan(&q.ID, &q.ConversationID, &q.UserID, &q.Text, &q.Answer,
		&citations, &q.Model, &processingMS, &helpful, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(citations), &q.Citations); err != nil {
		return nil, fmt.Errorf("decoding citations: %w", err)
	}
	q.ProcessingTime = time.Duration(processingMS) * time.Millisecond
	if helpful.Valid {
		h := helpful.Int64 == 1
		q.Helpful = &h
	}
	q.CreatedAt = parseTime(createdAt)
	return &q, nil
}

func nonNilCitations(c []domain.Citation) []domain.Citation {
	if c == nil {
		return []domain.Citation{}
	}
	return c
}
