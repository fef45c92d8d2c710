package services

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure NopMetrics implements the interface.
var _ driven.PipelineMetrics = NopMetrics{}

// NopMetrics discards pipeline events.
type NopMetrics struct{}

// DocumentProcessed does nothing.
func (NopMetrics) DocumentProcessed(domain.ProcessingState) {}

// ChunksEmbedded does nothing.
func (NopMetrics) ChunksEmbedded(int, int) {}

// QuestionAnswered does nothing.
func (NopMetrics) QuestionAnswered(bool, float64) {}
