// Package vertex embeds text with Google embedding models on Vertex AI.
package vertex

import (
	"context"
	"errors"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults applied to a zero Config.
const (
	DefaultModel    = "gemini-embedding-001"
	DefaultLocation = "us-central1"
)

const (
	providerName = "vertex"

	// taskType marks the text as retrievable content. Queries use it too so
	// both sides of a search share one vector space.
	taskType = "RETRIEVAL_DOCUMENT"
)

// Native vector sizes of the hosted models.
var modelDimensions = map[string]int{
	"gemini-embedding-001":            3072,
	"text-embedding-005":              768,
	"text-multilingual-embedding-002": 768,
}

// Config holds configuration for the Vertex AI embedding service.
// Credentials come from Application Default Credentials.
type Config struct {
	// Project is the Google Cloud project ID (required).
	Project string

	// Location is the Vertex AI region (default: us-central1).
	Location string

	Model string

	// Dimensions truncates the output vectors. Zero uses the model's native size.
	Dimensions int
}

// predictFunc sends one prediction request.
type predictFunc func(ctx context.Context, req *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error)

// EmbeddingService generates embeddings through the Vertex AI prediction API.
type EmbeddingService struct {
	predict    predictFunc
	closeFn    func() error
	endpoint   string
	model      string
	dimensions int
	truncate   bool
}

// NewEmbeddingService dials the regional prediction endpoint for the project.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.Project == "" {
		return nil, errors.New("vertex: project is required")
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}

	apiEndpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.Location)
	if cfg.Location == "global" {
		apiEndpoint = "aiplatform.googleapis.com:443"
	}
	client, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(apiEndpoint))
	if err != nil {
		return nil, fmt.Errorf("vertex: create prediction client: %w", err)
	}

	predict := func(ctx context.Context, req *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error) {
		return client.Predict(ctx, req)
	}
	return newService(cfg, predict, client.Close), nil
}

func newService(cfg Config, predict predictFunc, closeFn func() error) *EmbeddingService {
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	dims := modelDimensions[cfg.Model]
	truncate := cfg.Dimensions > 0 && cfg.Dimensions != dims
	if cfg.Dimensions > 0 {
		dims = cfg.Dimensions
	}

	return &EmbeddingService{
		predict: predict,
		closeFn: closeFn,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
			cfg.Project, cfg.Location, cfg.Model),
		model:      cfg.Model,
		dimensions: dims,
		truncate:   truncate,
	}
}

// Embed generates an embedding for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	req, err := s.request(text)
	if err != nil {
		return nil, domain.NewEmbeddingError(providerName, err)
	}

	resp, err := s.predict(ctx, req)
	if err != nil {
		return nil, domain.NewEmbeddingError(providerName, err)
	}

	vector, err := embeddingValues(resp)
	if err != nil {
		return nil, domain.NewEmbeddingError(providerName, err)
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return nil, domain.NewEmbeddingError(providerName,
			fmt.Errorf("%w: got %d values, want %d", domain.ErrDimensionMismatch, len(vector), s.dimensions))
	}
	return vector, nil
}

func (s *EmbeddingService) request(text string) (*aiplatformpb.PredictRequest, error) {
	instance, err := structpb.NewValue(map[string]any{
		"content":   text,
		"task_type": taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("encode instance: %w", err)
	}

	req := &aiplatformpb.PredictRequest{
		Endpoint:  s.endpoint,
		Instances: []*structpb.Value{instance},
	}
	if s.truncate {
		params, err := structpb.NewValue(map[string]any{"outputDimensionality": s.dimensions})
		if err != nil {
			return nil, fmt.Errorf("encode parameters: %w", err)
		}
		req.Parameters = params
	}
	return req, nil
}

// embeddingValues reads predictions[0].embeddings.values.
func embeddingValues(resp *aiplatformpb.PredictResponse) ([]float32, error) {
	predictions := resp.GetPredictions()
	if len(predictions) == 0 {
		return nil, errors.New("no predictions returned")
	}

	embeddings := predictions[0].GetStructValue().GetFields()["embeddings"]
	values := embeddings.GetStructValue().GetFields()["values"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, errors.New("no embedding returned")
	}

	vector := make([]float32, len(values))
	for i, v := range values {
		vector[i] = float32(v.GetNumberValue())
	}
	return vector, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short string to check credentials and the model name.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("vertex: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *EmbeddingService) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}
