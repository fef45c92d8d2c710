package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// --- Mock implementations for service testing ---

// keywordEmbedder embeds text as keyword counts, one dimension per keyword.
// Texts listed in failures fail with the mapped error.
type keywordEmbedder struct {
	keywords []string
	delay    time.Duration

	mu       sync.Mutex
	failures map[string]error
	calls    int
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords, failures: make(map[string]error)}
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if err := ctx.Err(); err != nil {
		return nil, &domain.EmbeddingError{Provider: "keyword", Err: err}
	}
	if err, ok := e.failures[text]; ok {
		return nil, &domain.EmbeddingError{Provider: "keyword", Err: err}
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.keywords))
	for i, kw := range e.keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	return vec, nil
}

func (e *keywordEmbedder) failOn(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[text] = err
}

func (e *keywordEmbedder) heal(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.failures, text)
}

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *keywordEmbedder) Dimensions() int              { return len(e.keywords) }
func (e *keywordEmbedder) ModelName() string            { return "keyword" }
func (e *keywordEmbedder) Ping(_ context.Context) error { return nil }
func (e *keywordEmbedder) Close() error                 { return nil }

// stubLLM records prompts and returns a canned answer.
type stubLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	opts    []driven.GenerateOptions
}

func (l *stubLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	l.opts = append(l.opts, opts)
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func (l *stubLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

func (l *stubLLM) ModelName() string            { return "stub-model" }
func (l *stubLLM) Ping(_ context.Context) error { return nil }
func (l *stubLLM) Close() error                 { return nil }

// stubPrompts serves prompts from a map.
type stubPrompts map[string]string

func (p stubPrompts) Load(name string) (string, error) {
	if prompt, ok := p[name]; ok {
		return prompt, nil
	}
	return "", errors.New("missing prompt")
}

func (p stubPrompts) Reload() {}

// recordingMetrics counts pipeline events.
type recordingMetrics struct {
	mu        sync.Mutex
	processed map[domain.ProcessingState]int
	embedded  int
	failed    int
	answered  []bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{processed: make(map[domain.ProcessingState]int)}
}

func (m *recordingMetrics) DocumentProcessed(state domain.ProcessingState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[state]++
}

func (m *recordingMetrics) ChunksEmbedded(embedded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedded += embedded
	m.failed += failed
}

func (m *recordingMetrics) QuestionAnswered(grounded bool, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, grounded)
}

// Ensure mocks implement interfaces
var (
	_ driven.EmbeddingService = (*keywordEmbedder)(nil)
	_ driven.LLMService       = (*stubLLM)(nil)
	_ driven.PromptStore      = stubPrompts(nil)
	_ driven.PipelineMetrics  = (*recordingMetrics)(nil)
)

// --- Fixture ---

// pipeline wires the real services over the memory store.
type pipeline struct {
	store     *memory.Store
	embedder  *keywordEmbedder
	llm       *stubLLM
	metrics   *recordingMetrics
	documents *DocumentService
	retriever *Retriever
	ingestion *IngestionOrchestrator
	qa        *QAService
}

func newPipeline(t *testing.T, chunkOpts ...chunker.Option) *pipeline {
	t.Helper()

	p := &pipeline{
		store:    memory.NewStore(),
		embedder: newKeywordEmbedder("sky", "blue", "water", "wet"),
		llm:      &stubLLM{answer: "The sky is blue [Source 1]."},
		metrics:  newRecordingMetrics(),
	}
	chunkr, err := chunker.New(chunkOpts...)
	require.NoError(t, err)

	p.documents = NewDocumentService(p.store)
	p.retriever = NewRetriever(p.store.Chunks(), p.embedder, 0)
	p.ingestion = NewIngestionOrchestrator(p.store, chunkr, nil, p.retriever,
		WithPipelineMetrics(p.metrics),
		WithEmbedRetry(3, time.Millisecond),
	)
	composer := NewAnswerComposer(p.llm, nil, domain.GenerationSettings{Temperature: 0.7})
	p.qa = NewQAService(p.store, p.retriever, composer, WithQAMetrics(p.metrics))

	t.Cleanup(func() { _ = p.ingestion.Close() })
	return p
}

// ingest registers a text document and processes it to completion,
// including the embedding follow-on.
func (p *pipeline) ingest(t *testing.T, userID, title, text string) *domain.Document {
	t.Helper()
	ctx := context.Background()

	doc, err := p.documents.Register(ctx, driving.NewDocument{
		UserID:   userID,
		Title:    title,
		FileType: domain.FileTypeText,
		Text:     text,
	})
	require.NoError(t, err)
	require.NoError(t, p.ingestion.Process(ctx, doc.ID))
	p.ingestion.Wait()

	doc, err = p.store.Documents().Get(ctx, doc.ID)
	require.NoError(t, err)
	return doc
}
