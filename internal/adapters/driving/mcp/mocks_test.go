package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	response *driving.AskResponse
	stats    *domain.UserStats
	err      error

	lastAsk      driving.AskRequest
	lastFeedback struct {
		userID, questionID string
		helpful            bool
	}
}

func (m *mockQAService) Ask(_ context.Context, req driving.AskRequest) (*driving.AskResponse, error) {
	m.lastAsk = req
	return m.response, m.err
}

func (m *mockQAService) Feedback(_ context.Context, userID, questionID string, helpful bool) error {
	m.lastFeedback.userID = userID
	m.lastFeedback.questionID = questionID
	m.lastFeedback.helpful = helpful
	return m.err
}

func (m *mockQAService) Conversations(_ context.Context, _ string) ([]domain.Conversation, error) {
	return nil, m.err
}

func (m *mockQAService) History(_ context.Context, _, _ string) ([]domain.Question, error) {
	return nil, m.err
}

func (m *mockQAService) Stats(_ context.Context, _ string) (*domain.UserStats, error) {
	return m.stats, m.err
}

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	result *domain.RetrievalResult
	err    error

	lastSearch driving.SearchRequest
}

func (m *mockRetriever) EmbedPendingChunks(_ context.Context, documentID string) (*domain.EmbedBatchSummary, error) {
	return &domain.EmbedBatchSummary{DocumentID: documentID}, m.err
}

func (m *mockRetriever) Search(_ context.Context, req driving.SearchRequest) (*domain.RetrievalResult, error) {
	m.lastSearch = req
	if m.result == nil {
		return &domain.RetrievalResult{}, m.err
	}
	return m.result, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error

	lastUserID string
}

func (m *mockDocumentService) Register(_ context.Context, _ driving.NewDocument) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Get(_ context.Context, userID, _ string) (*domain.Document, error) {
	m.lastUserID = userID
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context, userID string) ([]domain.Document, error) {
	m.lastUserID = userID
	return m.documents, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}

func newTestServer(t interface {
	Helper()
	Fatalf(string, ...any)
}, ports *Ports) *Server {
	t.Helper()
	if ports.QA == nil {
		ports.QA = &mockQAService{}
	}
	if ports.Retriever == nil {
		ports.Retriever = &mockRetriever{}
	}
	server, err := NewServer(ports, "alice")
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return server
}
