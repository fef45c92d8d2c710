package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure AnswerComposer implements the interface.
var _ driving.AnswerComposer = (*AnswerComposer)(nil)

// AnswerComposer builds a grounded prompt from retrieved chunks and asks
// the LLM for a cited answer.
type AnswerComposer struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.GenerationSettings
}

// NewAnswerComposer creates a composer. prompts may be nil, in which case
// the built-in instruction is used.
func NewAnswerComposer(
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.GenerationSettings,
) *AnswerComposer {
	return &AnswerComposer{
		llm:      llm,
		prompts:  prompts,
		settings: settings,
	}
}

// Compose makes exactly one generation call. Failures are returned as
// *domain.GenerationError and are never retried.
func (c *AnswerComposer) Compose(
	ctx context.Context, question string, result *domain.RetrievalResult,
) (*domain.Answer, error) {
	logger.Section("Answer Composition")

	if result.IsEmpty() {
		return nil, fmt.Errorf("%w: no context to answer from", domain.ErrInvalidInput)
	}
	if c.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	prompt := BuildPrompt(c.instruction(), question, result)
	logger.Debug("Prompt: %d context blocks, %d characters", result.Len(), len(prompt))

	text, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   c.settings.MaxTokens,
		Temperature: c.settings.Temperature,
	})
	if err != nil {
		return nil, domain.NewGenerationError(c.llm.ModelName(), err)
	}

	return &domain.Answer{
		Text:         strings.TrimSpace(text),
		Citations:    Citations(result),
		ContextCount: result.Len(),
		Model:        c.llm.ModelName(),
	}, nil
}

func (c *AnswerComposer) instruction() string {
	if c.prompts == nil {
		return domain.GroundedAnswerInstruction
	}
	instruction, err := c.prompts.Load(driven.PromptGroundedAnswer)
	if err != nil || strings.TrimSpace(instruction) == "" {
		logger.Warn("prompt %q unavailable, using built-in: %v", driven.PromptGroundedAnswer, err)
		return domain.GroundedAnswerInstruction
	}
	return instruction
}

// BuildPrompt lays out the instruction, the numbered context blocks and
// the question. Blocks are numbered from 1 in result order.
func BuildPrompt(instruction, question string, result *domain.RetrievalResult) string {
	blocks := make([]string, 0, result.Len())
	for i := range result.Chunks {
		sc := &result.Chunks[i]
		blocks = append(blocks, fmt.Sprintf("[Source %d - %s, Page %d]:\n%s",
			i+1, sc.DocumentTitle, sc.Chunk.PageNumber, sc.Chunk.Text))
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n\nContext:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// Citations converts a retrieval result into citations in result order.
func Citations(result *domain.RetrievalResult) []domain.Citation {
	citations := make([]domain.Citation, 0, result.Len())
	for i := range result.Chunks {
		sc := &result.Chunks[i]
		citations = append(citations, domain.Citation{
			DocumentID:    sc.Chunk.DocumentID,
			DocumentTitle: sc.DocumentTitle,
			ChunkID:       sc.Chunk.ID,
			PageNumber:    sc.Chunk.PageNumber,
			TextPreview:   domain.Preview(sc.Chunk.Text),
			Score:         sc.Score,
		})
	}
	return citations
}
