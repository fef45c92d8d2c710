package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestPageEstimators(t *testing.T) {
	paragraphs := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = "A paragraph."
		}
		return strings.Join(parts, "\n\n")
	}

	tests := []struct {
		name string
		doc  domain.Document
		want int
	}{
		{
			name: "known page count wins",
			doc:  domain.Document{FileType: domain.FileTypeDOCX, PageCount: 9, ExtractedText: paragraphs(100)},
			want: 9,
		},
		{
			name: "docx paragraphs per page",
			doc:  domain.Document{FileType: domain.FileTypeDOCX, ExtractedText: paragraphs(45)},
			want: 2,
		},
		{
			name: "docx with few paragraphs is one page",
			doc:  domain.Document{FileType: domain.FileTypeDOCX, ExtractedText: paragraphs(3)},
			want: 1,
		},
		{
			name: "docx ignores blank paragraphs",
			doc:  domain.Document{FileType: domain.FileTypeDOCX, ExtractedText: paragraphs(20) + "\n\n  \n\n\n"},
			want: 1,
		},
		{
			name: "pdf without page count uses characters",
			doc:  domain.Document{FileType: domain.FileTypePDF, ExtractedText: strings.Repeat("x", 2*CharsPerPage+1)},
			want: 3,
		},
		{
			name: "empty pdf is one page",
			doc:  domain.Document{FileType: domain.FileTypePDF},
			want: 1,
		},
		{
			name: "plain text is one page",
			doc:  domain.Document{FileType: domain.FileTypeText, ExtractedText: strings.Repeat("x", 10*CharsPerPage)},
			want: 1,
		},
		{
			name: "markdown is one page",
			doc:  domain.Document{FileType: domain.FileTypeMarkdown, ExtractedText: paragraphs(100)},
			want: 1,
		},
		{
			name: "unknown type falls back",
			doc:  domain.Document{FileType: "rtf", ExtractedText: paragraphs(100)},
			want: 1,
		},
	}

	estimators := NewPageEstimators()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimators.EstimatePages(&tt.doc))
		})
	}
}

func TestPageEstimators_Register(t *testing.T) {
	estimators := NewPageEstimators()
	estimators.Register(domain.FileTypeText, PageEstimatorFunc(func(_ *domain.Document) int { return 0 }))

	// Estimates are clamped to at least one page
	assert.Equal(t, 1, estimators.EstimatePages(&domain.Document{FileType: domain.FileTypeText}))

	estimators.Register(domain.FileTypeText, PageEstimatorFunc(func(_ *domain.Document) int { return 5 }))
	assert.Equal(t, 5, estimators.EstimatePages(&domain.Document{FileType: domain.FileTypeText}))
}
