package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure estimators implement the interface.
var (
	_ driven.PageEstimator = (*PageEstimators)(nil)
	_ driven.PageEstimator = PageEstimatorFunc(nil)
)

// ParagraphsPerPage is the DOCX heuristic: a page holds about this many paragraphs.
const ParagraphsPerPage = 20

// CharsPerPage is the heuristic used for paged formats whose page count
// extraction did not report.
const CharsPerPage = 3000

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// PageEstimatorFunc adapts a function to the PageEstimator interface.
type PageEstimatorFunc func(doc *domain.Document) int

// EstimatePages calls f(doc).
func (f PageEstimatorFunc) EstimatePages(doc *domain.Document) int {
	return f(doc)
}

// PageEstimators picks a page estimator by file type.
// A page count already known from extraction always wins.
type PageEstimators struct {
	byType   map[domain.FileType]driven.PageEstimator
	fallback driven.PageEstimator
}

// NewPageEstimators creates a registry with the built-in estimators.
func NewPageEstimators() *PageEstimators {
	return &PageEstimators{
		byType: map[domain.FileType]driven.PageEstimator{
			domain.FileTypePDF:      PageEstimatorFunc(EstimateByCharacters),
			domain.FileTypeDOCX:     PageEstimatorFunc(EstimateByParagraphs),
			domain.FileTypeText:     PageEstimatorFunc(SinglePage),
			domain.FileTypeMarkdown: PageEstimatorFunc(SinglePage),
		},
		fallback: PageEstimatorFunc(SinglePage),
	}
}

// Register sets the estimator for a file type, replacing any existing one.
func (p *PageEstimators) Register(fileType domain.FileType, estimator driven.PageEstimator) {
	p.byType[fileType] = estimator
}

// EstimatePages returns the document's page count, at least 1.
func (p *PageEstimators) EstimatePages(doc *domain.Document) int {
	if doc.PageCount > 0 {
		return doc.PageCount
	}
	estimator, ok := p.byType[doc.FileType]
	if !ok {
		estimator = p.fallback
	}
	return max(estimator.EstimatePages(doc), 1)
}

// SinglePage treats the document as one page.
func SinglePage(_ *domain.Document) int {
	return 1
}

// EstimateByParagraphs counts blank-line separated paragraphs and assumes
// ParagraphsPerPage of them per page.
func EstimateByParagraphs(doc *domain.Document) int {
	paragraphs := 0
	for _, p := range paragraphBreak.Split(doc.ExtractedText, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	return max(paragraphs/ParagraphsPerPage, 1)
}

// EstimateByCharacters assumes CharsPerPage characters per page.
func EstimateByCharacters(doc *domain.Document) int {
	chars := utf8.RuneCountInString(doc.ExtractedText)
	return max((chars+CharsPerPage-1)/CharsPerPage, 1)
}
