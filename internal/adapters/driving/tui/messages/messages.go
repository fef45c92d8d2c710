// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the question and answer view.
	ViewChat
	// ViewDocuments lists the user's documents and the question scope.
	ViewDocuments
	// ViewConversations lists earlier conversations.
	ViewConversations
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewDocuments:
		return "documents"
	case ViewConversations:
		return "conversations"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// AnswerReceived carries the answer to a question back to the model.
type AnswerReceived struct {
	Question string
	Response *driving.AskResponse
	Err      error
}

// FeedbackSaved signals that feedback on an answer was stored.
type FeedbackSaved struct {
	QuestionID string
	Helpful    bool
	Err        error
}

// DocumentsLoaded carries the user's documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// ScopeChanged carries the documents questions are restricted to.
// An empty scope searches all documents.
type ScopeChanged struct {
	DocumentIDs []string
}

// ConversationsLoaded carries the user's conversations.
type ConversationsLoaded struct {
	Conversations []domain.Conversation
	Err           error
}

// ConversationSelected asks the chat to resume a conversation.
type ConversationSelected struct {
	Conversation domain.Conversation
}

// HistoryLoaded carries the questions of a resumed conversation.
type HistoryLoaded struct {
	ConversationID string
	Questions      []domain.Question
	Err            error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
