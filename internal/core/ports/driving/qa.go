package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QAService answers questions and keeps the question history.
type QAService interface {
	// Ask answers a question from the user's documents and records it.
	Ask(ctx context.Context, req AskRequest) (*AskResponse, error)

	// Feedback marks an answered question as helpful or not.
	Feedback(ctx context.Context, userID, questionID string, helpful bool) error

	// Conversations returns the user's conversations, most recent first.
	Conversations(ctx context.Context, userID string) ([]domain.Conversation, error)

	// History returns the questions of one of the user's conversations.
	History(ctx context.Context, userID, conversationID string) ([]domain.Question, error)

	// Stats summarises the user's documents and questions.
	Stats(ctx context.Context, userID string) (*domain.UserStats, error)
}

// AskRequest is the input to QAService.Ask.
type AskRequest struct {
	Question string
	UserID   string

	// DocumentIDs optionally restricts retrieval to these documents.
	DocumentIDs []string

	// ConversationID continues an existing conversation. Empty starts a new one.
	ConversationID string
}

// AskResponse is the output of QAService.Ask.
type AskResponse struct {
	Answer         string            `json:"answer"`
	Citations      []domain.Citation `json:"citations"`
	Model          string            `json:"model,omitempty"`
	ProcessingTime time.Duration     `json:"processing_time"`
	ConversationID string            `json:"conversation_id"`
	QuestionID     string            `json:"question_id"`
}
