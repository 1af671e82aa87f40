package retrieval

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"tekbot/internal/adapter/memstore"
	"tekbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubEmbedder returns fixed vectors per text and tracks encode calls.
type stubEmbedder struct {
	vectors map[string][]float32
	encodes map[string]int
	failOn  map[string]bool
}

func newStubEmbedder(vectors map[string][]float32) *stubEmbedder {
	return &stubEmbedder{
		vectors: vectors,
		encodes: make(map[string]int),
		failOn:  make(map[string]bool),
	}
}

func (e *stubEmbedder) Encode(text string) ([]float32, error) {
	e.encodes[text]++
	if e.failOn[text] {
		return nil, fmt.Errorf("encode failed for %q", text)
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no stub vector for %q", text)
	}
	return v, nil
}

func (e *stubEmbedder) EncodeBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Encode(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int    { return 2 }
func (e *stubEmbedder) ModelName() string { return "stub" }

// brokenStore fails every read.
type brokenStore struct {
	*memstore.MemoryStore
}

func (s *brokenStore) FindKnowledge() ([]domain.KnowledgeRecord, error) {
	return nil, fmt.Errorf("store unreachable")
}

// readOnlyStore accepts reads but fails embedding writes.
type readOnlyStore struct {
	*memstore.MemoryStore
}

func (s *readOnlyStore) UpdateEmbedding(id string, embedding []float32) error {
	return fmt.Errorf("write refused")
}

func mustInsert(t *testing.T, st *memstore.MemoryStore, rec domain.KnowledgeRecord) string {
	t.Helper()
	id, err := st.InsertKnowledge(rec)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestRetrieve_EmptyStore(t *testing.T) {
	st := memstore.NewMemoryStore()
	embedder := newStubEmbedder(nil)

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())
	results := r.Retrieve("anything")

	if len(results) != 0 {
		t.Errorf("expected empty result for empty store, got %d", len(results))
	}
	if len(embedder.encodes) != 0 {
		t.Error("expected no encoding work on empty store")
	}
}

func TestRetrieve_StoreUnavailable(t *testing.T) {
	st := &brokenStore{memstore.NewMemoryStore()}
	embedder := newStubEmbedder(map[string][]float32{"q": {1, 0}})

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())
	if results := r.Retrieve("q"); len(results) != 0 {
		t.Errorf("expected empty result when store is unreachable, got %d", len(results))
	}
}

func TestRetrieve_ThresholdBoundary(t *testing.T) {
	st := memstore.NewMemoryStore()
	mustInsert(t, st, domain.KnowledgeRecord{Question: "at boundary", Embedding: []float32{0, 1}})
	mustInsert(t, st, domain.KnowledgeRecord{Question: "below", Embedding: []float32{-1, 0}})

	embedder := newStubEmbedder(map[string][]float32{"q": {1, 0}})

	// Orthogonal scores exactly 0: included at threshold 0. Opposite
	// scores -1: excluded.
	r := NewRetriever(st, embedder, 0, 5, testLogger())
	results := r.Retrieve("q")

	if len(results) != 1 {
		t.Fatalf("expected exactly the boundary candidate, got %d results", len(results))
	}
	if results[0].Record.Question != "at boundary" {
		t.Errorf("expected boundary candidate, got %q", results[0].Record.Question)
	}
	if results[0].Score != 0 {
		t.Errorf("expected score exactly 0, got %f", results[0].Score)
	}
}

func TestRetrieve_MinScoreFilter(t *testing.T) {
	st := memstore.NewMemoryStore()
	mustInsert(t, st, domain.KnowledgeRecord{Question: "close", Embedding: []float32{0.6, 0.8}})
	mustInsert(t, st, domain.KnowledgeRecord{Question: "far", Embedding: []float32{0.5, 0.866}})

	embedder := newStubEmbedder(map[string][]float32{"q": {1, 0}})

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())
	results := r.Retrieve("q")

	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	if results[0].Record.Question != "close" {
		t.Errorf("expected %q, got %q", "close", results[0].Record.Question)
	}
}

func TestRetrieve_TopKTruncation(t *testing.T) {
	st := memstore.NewMemoryStore()
	for i := 0; i < 8; i++ {
		mustInsert(t, st, domain.KnowledgeRecord{
			Question:  fmt.Sprintf("entry %d", i),
			Embedding: []float32{1, 0},
		})
	}

	embedder := newStubEmbedder(map[string][]float32{"q": {1, 0}})

	r := NewRetriever(st, embedder, 0.6, 3, testLogger())
	results := r.Retrieve("q")

	if len(results) != 3 {
		t.Errorf("expected top-3 truncation, got %d results", len(results))
	}
}

func TestRetrieve_BackfillPersistsOnce(t *testing.T) {
	st := memstore.NewMemoryStore()
	mustInsert(t, st, domain.KnowledgeRecord{Question: "sem embedding"})

	embedder := newStubEmbedder(map[string][]float32{
		"q":             {1, 0},
		"sem embedding": {1, 0},
	})

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())

	first := r.Retrieve("q")
	if len(first) != 1 {
		t.Fatalf("expected 1 result, got %d", len(first))
	}

	records, err := st.FindKnowledge()
	if err != nil {
		t.Fatal(err)
	}
	if !records[0].HasEmbedding() {
		t.Error("expected embedding persisted after first retrieval")
	}

	second := r.Retrieve("q")
	if len(second) != 1 || second[0].Record.ID != first[0].Record.ID || second[0].Score != first[0].Score {
		t.Error("expected identical results on unchanged knowledge base")
	}
	if got := embedder.encodes["sem embedding"]; got != 1 {
		t.Errorf("expected candidate encoded once, got %d times", got)
	}
}

func TestRetrieve_BackfillWriteFailure(t *testing.T) {
	inner := memstore.NewMemoryStore()
	mustInsert(t, inner, domain.KnowledgeRecord{Question: "sem embedding"})
	st := &readOnlyStore{inner}

	embedder := newStubEmbedder(map[string][]float32{
		"q":             {1, 0},
		"sem embedding": {1, 0},
	})

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())
	results := r.Retrieve("q")

	// The in-memory vector still ranks the candidate even though the
	// persist was refused.
	if len(results) != 1 {
		t.Fatalf("expected 1 result despite failed backfill write, got %d", len(results))
	}
	if results[0].Score < 0.99 {
		t.Errorf("expected near-identical score, got %f", results[0].Score)
	}

	records, err := inner.FindKnowledge()
	if err != nil {
		t.Fatal(err)
	}
	if records[0].HasEmbedding() {
		t.Error("expected stored record unchanged after refused write")
	}
}

func TestRetrieve_MalformedRecordSkipped(t *testing.T) {
	st := memstore.NewMemoryStore()
	mustInsert(t, st, domain.KnowledgeRecord{Question: ""}) // no text field
	mustInsert(t, st, domain.KnowledgeRecord{Question: "ok", Embedding: []float32{1, 0}})

	embedder := newStubEmbedder(map[string][]float32{"q": {1, 0}})

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())
	results := r.Retrieve("q")

	if len(results) != 1 || results[0].Record.Question != "ok" {
		t.Fatalf("expected only the well-formed record, got %d results", len(results))
	}
	if embedder.encodes[""] != 0 {
		t.Error("malformed record must not be encoded")
	}
}

func TestRetrieve_CandidateEncodeFailureSkipped(t *testing.T) {
	st := memstore.NewMemoryStore()
	mustInsert(t, st, domain.KnowledgeRecord{Question: "broken"})
	mustInsert(t, st, domain.KnowledgeRecord{Question: "fine", Embedding: []float32{1, 0}})

	embedder := newStubEmbedder(map[string][]float32{"q": {1, 0}})
	embedder.failOn["broken"] = true

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())
	results := r.Retrieve("q")

	if len(results) != 1 || results[0].Record.Question != "fine" {
		t.Fatalf("expected the unaffected candidate only, got %d results", len(results))
	}
}

func TestRetrieve_QuestionEncodeFailure(t *testing.T) {
	st := memstore.NewMemoryStore()
	mustInsert(t, st, domain.KnowledgeRecord{Question: "ok", Embedding: []float32{1, 0}})

	embedder := newStubEmbedder(map[string][]float32{"ok": {1, 0}})
	embedder.failOn["q"] = true

	r := NewRetriever(st, embedder, 0.6, 5, testLogger())
	if results := r.Retrieve("q"); len(results) != 0 {
		t.Errorf("expected empty result when the question cannot be encoded, got %d", len(results))
	}
}
