// Package vectorindex provides exact nearest-neighbour search over an
// in-memory candidate set.
//
// The index is built fresh for every query from the candidates the caller
// has already scoped, so nothing is persisted between searches. Distances
// are squared Euclidean and are mapped to a bounded similarity score
// 1/(1+d): 1.0 for an identical vector, approaching 0 with distance.
package vectorindex

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Hit is one search result.
type Hit struct {
	// Index is the position of the candidate in the slice passed to Search.
	Index int

	// Distance is the squared L2 distance to the query.
	Distance float64

	// Score is 1/(1+Distance).
	Score float64
}

// Search returns the topK candidates nearest to query, ordered by
// descending score with ties broken by ascending candidate index.
// At most min(topK, len(candidates)) hits are returned.
//
// Errors:
//   - domain.ErrEmptyCandidateSet when there are no candidates
//   - domain.ErrDimensionMismatch when any candidate's length differs from the query's
//   - domain.ErrInvalidInput for a non-positive topK, an empty query or non-finite values
func Search(query []float32, candidates [][]float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if len(candidates) == 0 {
		return nil, domain.ErrEmptyCandidateSet
	}

	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, fmt.Errorf("%w: candidate %d has %d dimensions, query has %d",
				domain.ErrDimensionMismatch, i, len(c), len(query))
		}
		d := SquaredL2(query, c)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: candidate %d has a non-finite distance", domain.ErrInvalidInput, i)
		}
		hits[i] = Hit{Index: i, Distance: d, Score: 1 / (1 + d)}
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// SquaredL2 returns the squared Euclidean distance between a and b.
// The vectors must have equal length.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
