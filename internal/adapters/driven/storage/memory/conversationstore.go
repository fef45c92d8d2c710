package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	s *Store
}

// SaveConversation creates or updates a conversation.
func (c *ConversationStore) SaveConversation(_ context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" {
		return domain.ErrInvalidInput
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if rec, ok := c.s.conversations[conv.ID]; ok {
		rec.conv.Title = conv.Title
		if !conv.UpdatedAt.IsZero() {
			rec.conv.UpdatedAt = conv.UpdatedAt
		}
		return nil
	}

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = c.s.now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	c.s.conversations[conv.ID] = &convRecord{conv: *conv, seq: c.s.next()}
	return nil
}

// GetConversation retrieves a conversation.
func (c *ConversationStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	rec, ok := c.s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	conv := rec.conv
	return &conv, nil
}

// ListConversations returns a user's conversations, most recently updated first.
func (c *ConversationStore) ListConversations(_ context.Context, userID string) ([]domain.Conversation, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var recs []*convRecord
	for _, rec := range c.s.conversations {
		if rec.conv.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.conv.UpdatedAt.Equal(b.conv.UpdatedAt) {
			return a.conv.UpdatedAt.After(b.conv.UpdatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]domain.Conversation, len(recs))
	for i, rec := range recs {
		result[i] = rec.conv
	}
	return result, nil
}

// SaveQuestion creates a question/answer record.
func (c *ConversationStore) SaveQuestion(_ context.Context, q *domain.Question) error {
	if q == nil || q.ID == "" || q.ConversationID == "" {
		return domain.ErrInvalidInput
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.questions[q.ID]; ok {
		return fmt.Errorf("question %s: %w", q.ID, domain.ErrAlreadyExists)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = c.s.now()
	}
	stored := *q
	stored.Citations = append([]domain.Citation(nil), q.Citations...)
	stored.Helpful = copyBool(q.Helpful)
	c.s.questions[q.ID] = &questionRecord{q: stored, seq: c.s.next()}
	return nil
}

// GetQuestion retrieves a question record.
func (c *ConversationStore) GetQuestion(_ context.Context, id string) (*domain.Question, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	rec, ok := c.s.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
	}
	q := rec.q
	q.Helpful = copyBool(rec.q.Helpful)
	return &q, nil
}

// ListQuestions returns a conversation's questions in the order asked.
func (c *ConversationStore) ListQuestions(_ context.Context, conversationID string) ([]domain.Question, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var recs []*questionRecord
	for _, rec := range c.s.questions {
		if rec.q.ConversationID == conversationID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.q.CreatedAt.Equal(b.q.CreatedAt) {
			return a.q.CreatedAt.Before(b.q.CreatedAt)
		}
		return a.seq < b.seq
	})

	result := make([]domain.Question, len(recs))
	for i, rec := range recs {
		result[i] = rec.q
		result[i].Helpful = copyBool(rec.q.Helpful)
	}
	return result, nil
}

// SetFeedback records the helpful flag on a question.
func (c *ConversationStore) SetFeedback(_ context.Context, questionID string, helpful bool) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	rec, ok := c.s.questions[questionID]
	if !ok {
		return fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
	}
	rec.q.Helpful = &helpful
	return nil
}

// CountQuestions returns the number of questions a user asked.
func (c *ConversationStore) CountQuestions(_ context.Context, userID string) (int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	n := 0
	for _, rec := range c.s.questions {
		if rec.q.UserID == userID {
			n++
		}
	}
	return n, nil
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
