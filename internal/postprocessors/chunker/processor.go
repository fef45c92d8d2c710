// Package chunker splits extracted document text into overlapping,
// fixed-size windows that prefer to end on a sentence boundary.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document text into chunks.
// Sizes are measured in characters (runes), not bytes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker with the given options.
// Returns domain.ErrInvalidChunkConfig when the overlap is not smaller
// than the chunk size, since the window could never advance.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ChunkSize returns the window size in characters.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the overlap in characters.
func (p *Processor) Overlap() int { return p.overlap }

func (p *Processor) validate() error {
	return domain.ChunkingSettings{Size: p.chunkSize, Overlap: p.overlap}.Validate()
}

// Split normalises whitespace and cuts text into ordered chunk texts.
//
// Text no longer than the chunk size is returned as a single chunk.
// Otherwise a window of chunk size characters slides forward by
// chunk size minus overlap. A window that ends inside the text is cut
// just after its last period, provided that period is not at the window
// start and the cut does not fall before the next window's start.
// Empty text produces no chunks.
func (p *Processor) Split(text string) ([]string, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	normalised := Normalise(text)
	if normalised == "" {
		return nil, nil
	}

	runes := []rune(normalised)
	n := len(runes)
	if n <= p.chunkSize {
		return []string{normalised}, nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]string, 0, n/step+1)

	for start := 0; start < n; start += step {
		end := start + p.chunkSize
		if end >= n {
			end = n
		} else {
			end = sentenceEnd(runes, start, end, start+step)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Later windows would lie entirely inside this one.
		if end == n {
			break
		}
	}

	return chunks, nil
}

// sentenceEnd returns the position just after the last period in
// runes[start:end], or end if there is none. The period must sit after
// start, and the cut must not fall before minEnd.
func sentenceEnd(runes []rune, start, end, minEnd int) int {
	for i := end - 1; i > start && i+1 >= minEnd; i-- {
		if runes[i] == '.' {
			return i + 1
		}
	}
	return end
}

// Process splits the document's extracted text into chunk records with
// dense indices, fresh IDs and estimated page numbers.
func (p *Processor) Process(doc *domain.Document, totalPages int) ([]domain.Chunk, error) {
	texts, err := p.Split(doc.ExtractedText)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Index:      i,
			PageNumber: PageFor(i, totalPages, len(texts)),
			Text:       text,
		}
	}
	return chunks, nil
}

// PageFor estimates the page a chunk came from by spreading chunks evenly
// across pages. Returns 1 when the page count is unknown.
func PageFor(ordinal, totalPages, totalChunks int) int {
	if totalPages <= 0 || totalChunks <= 0 {
		return 1
	}
	return ordinal*totalPages/totalChunks + 1
}
