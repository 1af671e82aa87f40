package retrieval

import (
	"math"
	"testing"

	"tekbot/internal/domain"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	v := []float32{0.3, -0.7, 1.2}
	if got := Cosine(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected cosine(v,v)=1.0, got %f", got)
	}
}

func TestCosine_Symmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 4}
	if Cosine(a, b) != Cosine(b, a) {
		t.Errorf("expected cosine(a,b)==cosine(b,a), got %f and %f", Cosine(a, b), Cosine(b, a))
	}
}

func TestCosine_ZeroNorm(t *testing.T) {
	a := []float32{1, 2, 3}
	zero := []float32{0, 0, 0}
	if got := Cosine(a, zero); got != 0 {
		t.Errorf("expected 0 for zero-norm vector, got %f", got)
	}
	if got := Cosine(zero, zero); got != 0 {
		t.Errorf("expected 0 for two zero-norm vectors, got %f", got)
	}
}

func TestCosine_LengthMismatch(t *testing.T) {
	if got := Cosine([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
}

func TestCosine_OppositeVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if got := Cosine(a, b); math.Abs(got+1.0) > 1e-9 {
		t.Errorf("expected -1.0 for opposite vectors, got %f", got)
	}
}

func TestRank_DescendingOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{Record: domain.KnowledgeRecord{ID: "k1"}, Vector: []float32{0, 1}},   // 0.0
		{Record: domain.KnowledgeRecord{ID: "k2"}, Vector: []float32{1, 0}},   // 1.0
		{Record: domain.KnowledgeRecord{ID: "k3"}, Vector: []float32{1, 1}},   // ~0.707
		{Record: domain.KnowledgeRecord{ID: "k4"}, Vector: []float32{-1, 0}},  // -1.0
	}

	ranked := Rank(query, candidates)

	if len(ranked) != 4 {
		t.Fatalf("expected 4 results, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Errorf("results not in descending order at %d: %f < %f", i, ranked[i-1].Score, ranked[i].Score)
		}
	}
	if ranked[0].Record.ID != "k2" {
		t.Errorf("expected k2 first, got %s", ranked[0].Record.ID)
	}
	if ranked[3].Record.ID != "k4" {
		t.Errorf("expected k4 last, got %s", ranked[3].Record.ID)
	}
}

func TestRank_StableTies(t *testing.T) {
	query := []float32{1, 0}
	// All candidates score identically; input order must be preserved.
	candidates := []Candidate{
		{Record: domain.KnowledgeRecord{ID: "a"}, Vector: []float32{1, 0}},
		{Record: domain.KnowledgeRecord{ID: "b"}, Vector: []float32{2, 0}},
		{Record: domain.KnowledgeRecord{ID: "c"}, Vector: []float32{3, 0}},
	}

	ranked := Rank(query, candidates)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if ranked[i].Record.ID != id {
			t.Errorf("tie order broken at %d: expected %s, got %s", i, id, ranked[i].Record.ID)
		}
	}
}

func TestRank_Empty(t *testing.T) {
	ranked := Rank([]float32{1, 0}, nil)
	if len(ranked) != 0 {
		t.Errorf("expected empty ranking, got %d results", len(ranked))
	}
}
