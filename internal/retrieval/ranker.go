package retrieval

import (
	"math"
	"sort"

	"tekbot/internal/domain"
)

// Candidate pairs a knowledge record with the vector it is ranked by,
// which is either the persisted embedding or one computed this call.
type Candidate struct {
	Record domain.KnowledgeRecord
	Vector []float32
}

// Cosine returns the cosine similarity between two vectors, defined as 0
// when either norm is zero or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every candidate against the query vector and returns them
// in descending score order. The sort is stable, so ties keep store
// iteration order. No side effects.
func Rank(query []float32, candidates []Candidate) []domain.RankedCandidate {
	ranked := make([]domain.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = domain.RankedCandidate{
			Record: c.Record,
			Score:  Cosine(query, c.Vector),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
