package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string   `json:"question" jsonschema:"the question to answer from the user's documents"`
	DocumentIDs    []string `json:"document_ids,omitempty" jsonschema:"restrict the answer to these documents"`
	ConversationID string   `json:"conversation_id,omitempty" jsonschema:"continue an earlier conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer           string            `json:"answer"`
	Citations        []domain.Citation `json:"citations"`
	Model            string            `json:"model,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	ConversationID   string            `json:"conversation_id"`
	QuestionID       string            `json:"question_id"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"text to find similar passages for"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these documents"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkID    string  `json:"chunk_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput summarises one document.
type DocumentOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	FileType  string `json:"file_type"`
	State     string `json:"state"`
	PageCount int    `json:"page_count"`
	WordCount int    `json:"word_count"`
	Error     string `json:"error,omitempty"`
}

// FeedbackInput is the input schema for the feedback tool.
type FeedbackInput struct {
	QuestionID string `json:"question_id" jsonschema:"the question_id returned by ask"`
	Helpful    bool   `json:"helpful" jsonschema:"whether the answer was helpful"`
}

// FeedbackOutput is the output schema for the feedback tool.
type FeedbackOutput struct {
	Saved bool `json:"saved"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the user's documents, citing the passages used",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages most similar to a query without generating an answer",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "feedback",
		Description: "Mark an answer as helpful or not helpful",
	}, s.handleFeedback)

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the user's documents and their processing state",
		}, s.handleListDocuments)
	}
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.ports.QA.Ask(ctx, driving.AskRequest{
		Question:       input.Question,
		UserID:         s.userID,
		DocumentIDs:    input.DocumentIDs,
		ConversationID: input.ConversationID,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:           resp.Answer,
		Citations:        resp.Citations,
		Model:            resp.Model,
		ProcessingTimeMs: resp.ProcessingTime.Milliseconds(),
		ConversationID:   resp.ConversationID,
		QuestionID:       resp.QuestionID,
	}, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	result, err := s.ports.Retriever.Search(ctx, driving.SearchRequest{
		Query:       input.Query,
		UserID:      s.userID,
		DocumentIDs: input.DocumentIDs,
		TopK:        max(input.Limit, 0),
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, result.Len()),
		Count:   result.Len(),
	}
	for i := range output.Results {
		sc := &result.Chunks[i]
		output.Results[i] = SearchResultOutput{
			DocumentID: sc.Chunk.DocumentID,
			Title:      sc.DocumentTitle,
			ChunkID:    sc.Chunk.ID,
			PageNumber: sc.Chunk.PageNumber,
			Score:      sc.Score,
			Text:       sc.Chunk.Text,
		}
	}

	return nil, output, nil
}

func (s *Server) handleFeedback(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FeedbackInput,
) (*mcp.CallToolResult, FeedbackOutput, error) {
	if err := s.ports.QA.Feedback(ctx, s.userID, strings.TrimSpace(input.QuestionID), input.Helpful); err != nil {
		return nil, FeedbackOutput{}, err
	}
	return nil, FeedbackOutput{Saved: true}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx, s.userID)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:        doc.ID,
		Title:     doc.Title,
		FileType:  string(doc.FileType),
		State:     string(doc.State),
		PageCount: doc.PageCount,
		WordCount: doc.WordCount,
		Error:     doc.ErrorMessage,
	}
}
