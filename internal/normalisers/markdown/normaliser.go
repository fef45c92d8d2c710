package markdown

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	codeBlockPattern     = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern    = regexp.MustCompile("`[^`]+`")
	imagePattern         = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkPattern          = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingPattern       = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquotePattern    = regexp.MustCompile(`(?m)^>\s*`)
	rulePattern          = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkerPattern    = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedListPattern  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlinesPattern = regexp.MustCompile(`\n{3,}`)

	emphasisReplacer = strings.NewReplacer("**", "", "__", "", "*", "")
)

// Normaliser handles Markdown files.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Normalise converts a markdown file to plain text.
// Paragraph breaks survive so page estimation still sees them.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawFile) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")

	return &driven.NormaliseResult{
		Title:    extractMarkdownTitle(content, raw.Path),
		FileType: domain.FileTypeMarkdown,
		Text:     stripMarkdown(content),
	}, nil
}

// extractMarkdownTitle returns the first H1 heading, or the file name.
func extractMarkdownTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	filename := filepath.Base(path)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// stripMarkdown reduces markdown to prose. Code is dropped, link text is
// kept, and block structure is removed before emphasis so "* item"
// bullets and "***" rules are still recognised.
func stripMarkdown(content string) string {
	for _, step := range []struct {
		pattern *regexp.Regexp
		repl    string
	}{
		{codeBlockPattern, ""},
		{inlineCodePattern, ""},
		{imagePattern, ""},
		{linkPattern, "$1"},
		{headingPattern, ""},
		{blockquotePattern, ""},
		{rulePattern, ""},
		{listMarkerPattern, ""},
		{numberedListPattern, ""},
	} {
		content = step.pattern.ReplaceAllString(content, step.repl)
	}

	content = emphasisReplacer.Replace(content)
	content = multiNewlinesPattern.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
