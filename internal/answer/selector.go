// Package answer implements the decision policy between returning a
// stored answer verbatim and synthesizing one with the generator.
package answer

import (
	"log/slog"
	"strings"

	"tekbot/internal/domain"
	"tekbot/internal/port"
	"tekbot/internal/retrieval"
)

// FallbackText is returned when generation fails. A degraded but valid
// response; generation failure is never fatal to a turn.
const FallbackText = "Desculpe, não consegui gerar uma resposta no momento. Tente novamente."

// History is the slice of conversation state the selector consults when
// building prompts.
type History interface {
	IsContinuation(question string) bool
	RenderRecent(limit int) string
}

// Options configure the selection policy.
type Options struct {
	// DirectThreshold is the similarity at or above which the top
	// candidate's stored answer is returned without generation.
	DirectThreshold float64
	// ContinuationMode is "replace" (history supplants exemplars on a
	// follow-up) or "augment" (history is added to them).
	ContinuationMode string
	// RenderLimit is how many recent turns feed a continuation prompt.
	RenderLimit int
	Generation  port.GenerateOptions
}

type Selector struct {
	embedder  port.Embedder
	generator port.Generator
	history   History
	opts      Options
	logger    *slog.Logger
}

func NewSelector(embedder port.Embedder, generator port.Generator, history History, opts Options, logger *slog.Logger) *Selector {
	if opts.RenderLimit <= 0 {
		opts.RenderLimit = 5
	}
	return &Selector{
		embedder:  embedder,
		generator: generator,
		history:   history,
		opts:      opts,
		logger:    logger,
	}
}

// Select decides how to answer: verbatim from the top candidate when it
// matches the question closely enough, otherwise by generation grounded
// on the candidates and, for follow-ups, the conversation history.
func (s *Selector) Select(question string, candidates []domain.RankedCandidate) domain.Answer {
	if len(candidates) > 0 {
		top := candidates[0]
		// Recompute the similarity rather than trusting the retrieval
		// score; the comparison is against the stored question text.
		if s.directSimilarity(question, top.Record.Question) >= s.opts.DirectThreshold {
			return domain.Answer{
				Text:   top.Record.Answer,
				Source: domain.SourceCached,
				Basis:  []domain.KnowledgeRecord{top.Record},
			}
		}
	}

	text, err := s.generator.Generate("", s.buildPrompt(question, candidates), s.opts.Generation)
	if err != nil {
		s.logger.Warn("generation failed, returning fallback", "error", err)
		text = FallbackText
	}

	basis := make([]domain.KnowledgeRecord, len(candidates))
	for i, c := range candidates {
		basis[i] = c.Record
	}
	return domain.Answer{
		Text:   text,
		Source: domain.SourceGenerated,
		Basis:  basis,
	}
}

// directSimilarity embeds both texts and compares them. An encoding
// failure yields -1, which always falls through to generation.
func (s *Selector) directSimilarity(question, stored string) float64 {
	if stored == "" {
		return -1
	}
	vectors, err := s.embedder.EncodeBatch([]string{question, stored})
	if err != nil || len(vectors) < 2 {
		s.logger.Warn("direct-answer similarity unavailable", "error", err)
		return -1
	}
	return retrieval.Cosine(vectors[0], vectors[1])
}

func (s *Selector) buildPrompt(question string, candidates []domain.RankedCandidate) string {
	exemplars := formatExemplars(candidates)

	context := exemplars
	if s.history != nil && s.history.IsContinuation(question) {
		recent := s.history.RenderRecent(s.opts.RenderLimit)
		if recent != "" {
			if s.opts.ContinuationMode == "augment" && exemplars != "" {
				context = recent + "\n\n" + exemplars
			} else {
				context = recent
			}
		}
	}

	var b strings.Builder
	if context != "" {
		b.WriteString("Com base nas informações abaixo, responda à pergunta de forma concisa e clara:\n\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	} else {
		b.WriteString("Responda à pergunta de forma concisa e clara:\n\n")
	}
	b.WriteString("Pergunta: ")
	b.WriteString(question)
	b.WriteString("\nResposta:")
	return b.String()
}

// formatExemplars renders candidates as question/answer pairs for the
// grounding section of the prompt.
func formatExemplars(candidates []domain.RankedCandidate) string {
	if len(candidates) == 0 {
		return ""
	}
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = "Pergunta: " + c.Record.Question + "\nResposta: " + c.Record.Answer
	}
	return strings.Join(parts, "\n\n")
}
