// Package assistant exposes the answering pipeline as a single facade:
// retrieve grounding, select or generate the answer, log the interaction.
// Each call runs the three stages in order; no stage is reordered or
// skipped, since each depends on the previous one's output.
package assistant

import (
	"tekbot/internal/answer"
	"tekbot/internal/domain"
	"tekbot/internal/interaction"
	"tekbot/internal/retrieval"
)

type Assistant struct {
	retriever *retrieval.Retriever
	selector  *answer.Selector
	audit     *interaction.Logger
}

func New(retriever *retrieval.Retriever, selector *answer.Selector, audit *interaction.Logger) *Assistant {
	return &Assistant{
		retriever: retriever,
		selector:  selector,
		audit:     audit,
	}
}

// Answer processes one question start to finish and returns the answer.
// Degraded collaborators (store down, generator failing) surface as an
// ungrounded or fallback answer, never as an error.
func (a *Assistant) Answer(question string) domain.Answer {
	candidates := a.retriever.Retrieve(question)
	ans := a.selector.Select(question, candidates)
	a.audit.Log(question, ans)
	return ans
}
