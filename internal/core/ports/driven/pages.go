package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// PageEstimator estimates how many pages a document's source file had.
// Estimates are heuristics; callers must not depend on exact values.
type PageEstimator interface {
	// EstimatePages returns a page count of at least 1.
	EstimatePages(doc *domain.Document) int
}

// PipelineMetrics receives pipeline events for monitoring.
type PipelineMetrics interface {
	// DocumentProcessed records a document reaching a terminal state.
	DocumentProcessed(state domain.ProcessingState)

	// ChunksEmbedded records the outcome of one embedding pass.
	ChunksEmbedded(embedded, failed int)

	// QuestionAnswered records an answered question and its latency in seconds.
	QuestionAnswered(grounded bool, seconds float64)
}
