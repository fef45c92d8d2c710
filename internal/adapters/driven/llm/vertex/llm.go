// Package vertex provides an LLM service adapter for Gemini models on Vertex AI.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultModel    = "gemini-1.5-pro"
	DefaultLocation = "us-central1"
)

// Config holds configuration for the Vertex AI LLM service.
// Credentials come from Application Default Credentials.
type Config struct {
	// Project is the Google Cloud project ID (required).
	Project string

	// Location is the Vertex AI region (default: us-central1).
	Location string

	// Model is the Gemini model to use (default: gemini-1.5-pro).
	Model string
}

// LLMService generates answers with a Gemini model.
type LLMService struct {
	client *genai.Client
	model  string
}

// NewLLMService creates a Vertex AI client for the configured project.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertex: project is required")
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, cfg.Project, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("vertex: create client: %w", err)
	}

	return &LLMService{client: client, model: cfg.Model}, nil
}

// Generate runs a single-turn generation. A model handle is built per call
// because GenerativeModel carries its config as mutable fields.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	model := s.client.GenerativeModel(s.model)
	configure(model, opts)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", domain.NewGenerationError(s.model, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", domain.NewGenerationError(s.model, err)
	}
	return text, nil
}

func configure(model *genai.GenerativeModel, opts driven.GenerateOptions) {
	if opts.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.System)},
		}
	}
	model.GenerationConfig.Temperature = genai.Ptr(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(opts.MaxTokens))
	}
	if len(opts.StopWords) > 0 {
		model.GenerationConfig.StopSequences = opts.StopWords
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", errors.New("response blocked by safety filters")
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("empty response content")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping counts tokens for a short string, which checks credentials and the
// model name without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.GenerativeModel(s.model).CountTokens(ctx, genai.Text("ping")); err != nil {
		return fmt.Errorf("vertex: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *LLMService) Close() error {
	return s.client.Close()
}
