package mcp

import (
	"net/http"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// QA answers questions and records feedback.
	QA driving.QAService

	// Retriever searches chunks without generating an answer.
	Retriever driving.Retriever

	// Document lists documents and serves their text. Optional.
	Document driving.DocumentService

	// Metrics is mounted at /metrics in HTTP mode. Optional.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.QA == nil {
		return ErrMissingQAService
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
