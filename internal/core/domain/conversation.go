package domain

import "time"

// ConversationTitleLength is the number of question characters used to
// title a new conversation.
const ConversationTitleLength = 100

// Conversation groups the questions a user asked in one thread.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationTitle derives a conversation title from its first question.
func ConversationTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= ConversationTitleLength {
		return question
	}
	return string(runes[:ConversationTitleLength])
}

// Question is a persisted question/answer record.
// Only Helpful changes after creation.
type Question struct {
	ID             string
	ConversationID string
	UserID         string

	// Text is the question as asked.
	Text string

	// Answer is the generated answer text.
	Answer string

	// Citations are the sources given with the answer.
	Citations []Citation

	// Model is the generation model that answered. Empty for the
	// no-documents response.
	Model string

	// ProcessingTime is the end-to-end latency of answering.
	ProcessingTime time.Duration

	// Helpful is the user's feedback. Nil until given.
	Helpful *bool

	CreatedAt time.Time
}

// UserStats summarises a user's activity.
type UserStats struct {
	TotalDocuments     int `json:"total_documents"`
	CompletedDocuments int `json:"completed_documents"`
	EmbeddedChunks     int `json:"embedded_chunks"`
	TotalQuestions     int `json:"total_questions"`
}
