package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

type conversationStore struct {
	s *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

const (
	conversationColumns = `id, user_id, title, created_at, updated_at`
	questionColumns     = `id, conversation_id, user_id, text, answer, citations, model,
	processing_ms, helpful, created_at`
)

// SaveConversation creates or updates a conversation.
func (c *conversationStore) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" {
		return domain.ErrInvalidInput
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = c.s.now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	_, err := c.s.db.Exec(ctx, `INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, updated_at = EXCLUDED.updated_at`,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation.
func (c *conversationStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := c.s.db.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns a user's conversations, most recently updated first.
func (c *conversationStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := c.s.db.Query(ctx, `SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1 ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return convs, nil
}

// SaveQuestion creates a question/answer record.
func (c *conversationStore) SaveQuestion(ctx context.Context, q *domain.Question) error {
	if q == nil || q.ID == "" || q.ConversationID == "" {
		return domain.ErrInvalidInput
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = c.s.now()
	}
	citations := q.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	encoded, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("encoding citations: %w", err)
	}

	_, err = c.s.db.Exec(ctx, `INSERT INTO questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		q.ID, q.ConversationID, q.UserID, q.Text, q.Answer, string(encoded), q.Model,
		q.ProcessingTime.Milliseconds(), q.Helpful, q.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("question %s: %w", q.ID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("saving question: %w", err)
	}
	return nil
}

// GetQuestion retrieves a question record.
func (c *conversationStore) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	row := c.s.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning question: %w", err)
	}
	return q, nil
}

// ListQuestions returns a conversation's questions in the order asked.
func (c *conversationStore) ListQuestions(ctx context.Context, conversationID string) ([]domain.Question, error) {
	rows, err := c.s.db.Query(ctx, `SELECT `+questionColumns+` FROM questions
		WHERE conversation_id = $1 ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
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
func (c *conversationStore) SetFeedback(ctx context.Context, questionID string, helpful bool) error {
	tag, err := c.s.db.Exec(ctx, `UPDATE questions SET helpful = $1 WHERE id = $2`, helpful, questionID)
	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
	}
	return nil
}

// CountQuestions returns the number of questions a user asked.
func (c *conversationStore) CountQuestions(ctx context.Context, userID string) (int, error) {
	var n int64
	if err := c.s.db.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE user_id = $1`, userID).
		Scan(&n); err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return int(n), nil
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var (
		q            domain.Question
		citations    []byte
		processingMS int64
	)
	if err := row.Scan(&q.ID, &q.ConversationID, &q.UserID, &q.Text, &q.Answer,
		&citations, &q.Model, &processingMS, &q.Helpful, &q.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(citations, &q.Citations); err != nil {
		return nil, fmt.Errorf("decoding citations: %w", err)
	}
	q.ProcessingTime = time.Duration(processingMS) * time.Millisecond
	return &q, nil
}
