package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// RawFile is a local file read before its text has been extracted.
type RawFile struct {
	// Path is the file path, used for the title fallback.
	Path string

	// Content is the file's bytes.
	Content []byte
}

// NormaliseResult is the plain text extracted from a RawFile.
type NormaliseResult struct {
	Title    string
	FileType domain.FileType
	Text     string

	// PageCount is the page count found in the file. Zero means unknown.
	PageCount int
}

// Normaliser extracts plain text from one family of file formats.
type Normaliser interface {
	// Extensions returns the lower-case file extensions handled, with the dot.
	Extensions() []string

	// Normalise converts the raw file to plain text.
	Normalise(ctx context.Context, raw *RawFile) (*NormaliseResult, error)
}
