package domain

// DefaultTopK is the number of chunks retrieved when the caller does not say.
const DefaultTopK = 5

// ScoredChunk is one entry of a retrieval result.
type ScoredChunk struct {
	Chunk         Chunk
	DocumentTitle string

	// Score is 1/(1+d) for squared L2 distance d. Range (0, 1].
	Score float64
}

// RetrievalResult is the ordered output of a similarity search.
// It is never persisted.
type RetrievalResult struct {
	// Chunks are ordered by descending score.
	Chunks []ScoredChunk
}

// IsEmpty returns true when nothing matched.
func (r *RetrievalResult) IsEmpty() bool {
	return r == nil || len(r.Chunks) == 0
}

// Len returns the number of chunks in the result.
func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Chunks)
}

// DocumentIDs returns the distinct document IDs in result order.
func (r *RetrievalResult) DocumentIDs() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool, len(r.Chunks))
	var ids []string
	for i := range r.Chunks {
		id := r.Chunks[i].Chunk.DocumentID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// EmbedOutcome is the result of embedding one chunk.
type EmbedOutcome struct {
	ChunkID    string
	ChunkIndex int

	// Err is nil on success.
	Err error
}

// EmbedBatchSummary collects the per-chunk outcomes of one embedding pass
// over a document.
type EmbedBatchSummary struct {
	DocumentID string

	// Attempted is the number of chunks that lacked an embedding.
	Attempted int

	// Embedded is the number of chunks embedded and stored in this pass.
	Embedded int

	// Failures lists the chunks that were skipped.
	Failures []EmbedOutcome
}

// Record adds a per-chunk outcome to the summary.
func (s *EmbedBatchSummary) Record(o EmbedOutcome) {
	if o.Err != nil {
		s.Failures = append(s.Failures, o)
		return
	}
	s.Embedded++
}

// Failed returns the number of chunks that could not be embedded.
func (s *EmbedBatchSummary) Failed() int {
	return len(s.Failures)
}

// Complete returns true when no chunk was left without an embedding.
func (s *EmbedBatchSummary) Complete() bool {
	return len(s.Failures) == 0
}
