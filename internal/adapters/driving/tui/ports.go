// Package tui provides an interactive terminal chat for asking questions
// about a user's documents. It is a driving adapter over the QA and
// document services.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// QA answers questions and lists conversations.
	QA driving.QAService

	// Document lists the user's documents for scoping questions.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.QA == nil {
		return ErrMissingQAService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
