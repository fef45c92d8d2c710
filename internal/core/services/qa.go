package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure QAService implements the interface.
var _ driving.QAService = (*QAService)(nil)

// QAService answers questions from a user's documents and records each
// question with its answer and citations.
type QAService struct {
	docs          driven.DocumentStore
	chunks        driven.ChunkStore
	conversations driven.ConversationStore
	retriever     driving.Retriever
	composer      driving.AnswerComposer
	metrics       driven.PipelineMetrics
	topK          int
	now           func() time.Time
}

// QAOption configures a QAService.
type QAOption func(*QAService)

// WithQAMetrics reports answered questions to m.
func WithQAMetrics(m driven.PipelineMetrics) QAOption {
	return func(s *QAService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTopK sets the number of chunks retrieved per question.
func WithTopK(k int) QAOption {
	return func(s *QAService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithQAClock overrides the time source used for timestamps and latency.
func WithQAClock(now func() time.Time) QAOption {
	return func(s *QAService) {
		s.now = now
	}
}

// NewQAService creates a QA service.
func NewQAService(
	store driven.RecordStore,
	retriever driving.Retriever,
	composer driving.AnswerComposer,
	opts ...QAOption,
) *QAService {
	s := &QAService{
		docs:          store.Documents(),
		chunks:        store.Chunks(),
		conversations: store.Conversations(),
		retriever:     retriever,
		composer:      composer,
		metrics:       NopMetrics{},
		topK:          domain.DefaultTopK,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask retrieves context for the question, composes an answer and records it.
// When retrieval finds nothing the fixed no-documents answer is recorded
// without calling the LLM.
func (s *QAService) Ask(ctx context.Context, req driving.AskRequest) (*driving.AskResponse, error) {
	start := s.now()

	// 1. Validate
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}

	// 2. Resolve the conversation
	conv, err := s.resolveConversation(ctx, req.UserID, req.ConversationID, question)
	if err != nil {
		return nil, err
	}

	// 3. Retrieve
	result, err := s.retriever.Search(ctx, driving.SearchRequest{
		Query:       question,
		UserID:      req.UserID,
		DocumentIDs: req.DocumentIDs,
		TopK:        s.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	// 4. Compose
	answer := &domain.Answer{Text: domain.NoDocumentsAnswer}
	if !result.IsEmpty() {
		answer, err = s.composer.Compose(ctx, question, result)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Debug("No chunks for user %s, skipping generation", req.UserID)
	}

	// 5. Record
	now := s.now()
	elapsed := now.Sub(start)
	conv.UpdatedAt = now
	if err := s.conversations.SaveConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	record := &domain.Question{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		UserID:         req.UserID,
		Text:           question,
		Answer:         answer.Text,
		Citations:      answer.Citations,
		Model:          answer.Model,
		ProcessingTime: elapsed,
		CreatedAt:      now,
	}
	if err := s.conversations.SaveQuestion(ctx, record); err != nil {
		return nil, fmt.Errorf("save question: %w", err)
	}

	s.metrics.QuestionAnswered(!result.IsEmpty(), elapsed.Seconds())

	citations := answer.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return &driving.AskResponse{
		Answer:         answer.Text,
		Citations:      citations,
		Model:          answer.Model,
		ProcessingTime: elapsed,
		ConversationID: conv.ID,
		QuestionID:     record.ID,
	}, nil
}

// resolveConversation loads the user's conversation or starts a new one
// titled after the question. New conversations are saved with the answer.
func (s *QAService) resolveConversation(
	ctx context.Context, userID, conversationID, question string,
) (*domain.Conversation, error) {
	if conversationID == "" {
		now := s.now()
		return &domain.Conversation{
			ID:        uuid.New().String(),
			UserID:    userID,
			Title:     domain.ConversationTitle(question),
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	return s.ownedConversation(ctx, userID, conversationID)
}

func (s *QAService) ownedConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("get conversation: %w", domain.ErrNotFound)
	}
	return conv, nil
}

// Feedback records whether the user found an answer helpful.
func (s *QAService) Feedback(ctx context.Context, userID, questionID string, helpful bool) error {
	q, err := s.conversations.GetQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("get question: %w", err)
	}
	if q.UserID != userID {
		return fmt.Errorf("get question: %w", domain.ErrNotFound)
	}
	return s.conversations.SetFeedback(ctx, questionID, helpful)
}

// Conversations returns the user's conversations, most recent first.
func (s *QAService) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}
	return s.conversations.ListConversations(ctx, userID)
}

// History returns the questions of one of the user's conversations.
func (s *QAService) History(ctx context.Context, userID, conversationID string) ([]domain.Question, error) {
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.ListQuestions(ctx, conversationID)
}

// Stats counts the user's documents, embedded chunks and questions.
func (s *QAService) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}

	docs, err := s.docs.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	stats := &domain.UserStats{TotalDocuments: len(docs)}
	for i := range docs {
		if docs[i].State == domain.StateCompleted {
			stats.CompletedDocuments++
		}
	}

	if stats.EmbeddedChunks, err = s.chunks.CountEmbedded(ctx, userID); err != nil {
		return nil, fmt.Errorf("count embedded chunks: %w", err)
	}
	if stats.TotalQuestions, err = s.conversations.CountQuestions(ctx, userID); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	return stats, nil
}
