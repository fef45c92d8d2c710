package domain

import (
	"fmt"
	"time"
)

// ProcessingState is the position of a document in the ingestion state machine.
//
//	pending -> processing -> completed
//	                      -> failed
//
// Transitions are monotonic. A document never re-enters an earlier state.
type ProcessingState string

// Available processing states.
const (
	// StatePending means the document has extracted text but no chunks yet.
	StatePending ProcessingState = "pending"

	// StateProcessing means a job is chunking the document.
	StateProcessing ProcessingState = "processing"

	// StateCompleted means chunks, word count and page count are stored.
	StateCompleted ProcessingState = "completed"

	// StateFailed means processing stopped; ErrorMessage says why.
	StateFailed ProcessingState = "failed"
)

// IsValid returns true if the state is recognised.
func (s ProcessingState) IsValid() bool {
	switch s {
	case StatePending, StateProcessing, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for states with no outgoing transition.
func (s ProcessingState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s ProcessingState) CanTransitionTo(next ProcessingState) bool {
	switch s {
	case StatePending:
		return next == StateProcessing
	case StateProcessing:
		return next == StateCompleted || next == StateFailed
	default:
		return false
	}
}

// String returns the string representation.
func (s ProcessingState) String() string {
	return string(s)
}

// FileType identifies the format the document was extracted from.
type FileType string

// Supported file types.
const (
	FileTypePDF      FileType = "pdf"
	FileTypeDOCX     FileType = "docx"
	FileTypeText     FileType = "txt"
	FileTypeMarkdown FileType = "md"
)

// IsValid returns true if the file type is recognised.
func (f FileType) IsValid() bool {
	switch f {
	case FileTypePDF, FileTypeDOCX, FileTypeText, FileTypeMarkdown:
		return true
	default:
		return false
	}
}

// Document is an uploaded document owned by a single user.
// The extraction stage fills ExtractedText before the document
// enters the processing pipeline.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// UserID is the owner. Retrieval never crosses owners.
	UserID string

	// Title is the human-readable title, usually the file name.
	Title string

	// FileType is the format the text was extracted from.
	FileType FileType

	// ExtractedText is the plain text produced by extraction.
	ExtractedText string

	// PageCount is the page count once known. Extraction may set it
	// for paged formats; otherwise processing estimates it.
	PageCount int

	// WordCount is the number of whitespace-separated words, set on completion.
	WordCount int

	// State is the processing state.
	State ProcessingState

	// ErrorMessage holds the failure message when State is failed.
	ErrorMessage string

	// ProcessedAt is when processing completed.
	ProcessedAt time.Time

	// CreatedAt is when the document was registered.
	CreatedAt time.Time

	// UpdatedAt is when the document was last changed.
	UpdatedAt time.Time
}

// StateChange describes a single transition of a document's processing state.
// Stores apply it only when the document is currently in From.
type StateChange struct {
	From ProcessingState
	To   ProcessingState

	// ErrorMessage is recorded for transitions to failed.
	ErrorMessage string

	// PageCount, WordCount and ProcessedAt are recorded for transitions to completed.
	PageCount   int
	WordCount   int
	ProcessedAt time.Time
}

// Validate checks that the change is a legal transition with the fields it requires.
func (c StateChange) Validate() error {
	if !c.From.CanTransitionTo(c.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.From, c.To)
	}
	if c.To == StateCompleted && c.ProcessedAt.IsZero() {
		return fmt.Errorf("%w: completed transition requires a timestamp", ErrInvalidInput)
	}
	return nil
}

// Apply copies the change onto doc.
func (c StateChange) Apply(doc *Document, now time.Time) {
	doc.State = c.To
	doc.UpdatedAt = now
	switch c.To {
	case StateFailed:
		doc.ErrorMessage = c.ErrorMessage
	case StateCompleted:
		doc.ErrorMessage = ""
		doc.PageCount = c.PageCount
		doc.WordCount = c.WordCount
		doc.ProcessedAt = c.ProcessedAt
	}
}

// Chunk is a contiguous slice of a document's extracted text.
// Chunks are immutable once created except for embedding assignment.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the zero-based ordinal position within the document.
	Index int

	// PageNumber is the estimated source page, 1-based. Zero means unknown.
	PageNumber int

	// Text is the chunk text.
	Text string

	// Embedding is nil until the chunk has been embedded.
	Embedding []float32

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time
}

// HasEmbedding returns true once the chunk has a vector.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// EmbeddedChunk is a search candidate: an embedded chunk with the
// title of the document it came from.
type EmbeddedChunk struct {
	Chunk
	DocumentTitle string
}
