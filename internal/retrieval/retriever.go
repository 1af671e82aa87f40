package retrieval

import (
	"log/slog"

	"tekbot/internal/domain"
	"tekbot/internal/port"
)

// Retriever finds the knowledge records most relevant to a question,
// backfilling missing embeddings along the way.
type Retriever struct {
	store    port.KnowledgeStore
	embedder port.Embedder
	minScore float64
	topK     int
	logger   *slog.Logger
}

func NewRetriever(store port.KnowledgeStore, embedder port.Embedder, minScore float64, topK int, logger *slog.Logger) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		minScore: minScore,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve returns the top-K knowledge records whose similarity to the
// question is at least the minimum score, in descending score order.
//
// Absence of knowledge is empty data, not failure: an unreachable store or
// an unencodable question degrades to an empty result with a warning, so
// the turn proceeds without grounding.
func (r *Retriever) Retrieve(question string) []domain.RankedCandidate {
	records, err := r.store.FindKnowledge()
	if err != nil {
		r.logger.Warn("knowledge fetch failed, answering without grounding", "error", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	queryVector, err := r.embedder.Encode(question)
	if err != nil {
		r.logger.Warn("question embedding failed, answering without grounding", "error", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(records))
	for _, rec := range records {
		if rec.Question == "" {
			// malformed record: nothing to rank or backfill
			continue
		}

		vector := rec.Embedding
		if !rec.HasEmbedding() {
			vector, err = r.embedder.Encode(rec.Question)
			if err != nil {
				r.logger.Warn("skipping candidate, embedding failed", "id", rec.ID, "error", err)
				continue
			}
			rec.Embedding = vector

			// Best effort: the freshly computed vector still ranks this
			// candidate even when persisting it fails.
			if err := r.store.UpdateEmbedding(rec.ID, vector); err != nil {
				r.logger.Warn("embedding backfill not persisted", "id", rec.ID, "error", err)
			}
		}

		candidates = append(candidates, Candidate{Record: rec, Vector: vector})
	}

	ranked := Rank(queryVector, candidates)
	return r.filter(ranked)
}

// filter keeps candidates at or above the minimum score and truncates to
// top-K.
func (r *Retriever) filter(ranked []domain.RankedCandidate) []domain.RankedCandidate {
	filtered := make([]domain.RankedCandidate, 0, len(ranked))
	for _, c := range ranked {
		if c.Score >= r.minScore {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) > r.topK {
		filtered = filtered[:r.topK]
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
