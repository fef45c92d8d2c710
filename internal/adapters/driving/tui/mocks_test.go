package tui

import (
	"context"
	"errors"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockQAService implements driving.QAService for testing.
type mockQAService struct {
	askFunc       func(ctx context.Context, req driving.AskRequest) (*driving.AskResponse, error)
	conversations []domain.Conversation
	history       []domain.Question
}

func (m *mockQAService) Ask(ctx context.Context, req driving.AskRequest) (*driving.AskResponse, error) {
	if m.askFunc != nil {
		return m.askFunc(ctx, req)
	}
	return &driving.AskResponse{
		Answer:         "Answer [Source 1].",
		Citations:      []domain.Citation{{DocumentID: "doc-1", DocumentTitle: "Handbook", PageNumber: 1}},
		ConversationID: "conv-1",
		QuestionID:     "q-1",
	}, nil
}

func (m *mockQAService) Feedback(_ context.Context, _, _ string, _ bool) error {
	return nil
}

func (m *mockQAService) Conversations(_ context.Context, _ string) ([]domain.Conversation, error) {
	return m.conversations, nil
}

func (m *mockQAService) History(_ context.Context, _, _ string) ([]domain.Question, error) {
	return m.history, nil
}

func (m *mockQAService) Stats(_ context.Context, _ string) (*domain.UserStats, error) {
	return &domain.UserStats{}, nil
}

// mockDocumentService implements driving.DocumentService for testing.
type mockDocumentService struct {
	documents []domain.Document
	listErr   error
}

func (m *mockDocumentService) Register(_ context.Context, _ driving.NewDocument) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(_ context.Context, _, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.listErr
}

func (m *mockDocumentService) Chunks(_ context.Context, _, _ string) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return nil
}

func newTestPorts() *Ports {
	return &Ports{
		QA: &mockQAService{},
		Document: &mockDocumentService{documents: []domain.Document{
			{ID: "doc-1", Title: "Handbook", FileType: domain.FileTypePDF, State: domain.StateCompleted},
			{ID: "doc-2", Title: "Notes", FileType: domain.FileTypeText, State: domain.StateCompleted},
		}},
	}
}
