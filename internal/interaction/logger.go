// Package interaction records every answered question as a durable audit
// record and as an in-memory conversation turn. This is the single point
// where answers grow both the knowledge trail and the live session.
package interaction

import (
	"log/slog"
	"time"

	"tekbot/internal/domain"
	"tekbot/internal/port"
)

// Turns is the conversation state updated alongside the audit trail.
type Turns interface {
	SessionID() string
	RecordTurn(question, answer string, basis []domain.BasisRef)
}

type Logger struct {
	store  port.KnowledgeStore
	turns  Turns
	logger *slog.Logger
}

func NewLogger(store port.KnowledgeStore, turns Turns, logger *slog.Logger) *Logger {
	return &Logger{store: store, turns: turns, logger: logger}
}

// Log writes an interaction record with snapshot references to the basis
// records, then records the turn in memory. Never raises: a persistence
// failure is logged and the in-memory turn still happens, so the live
// session stays consistent.
func (l *Logger) Log(question string, ans domain.Answer) {
	basis := make([]domain.BasisRef, len(ans.Basis))
	for i, rec := range ans.Basis {
		basis[i] = domain.BasisRef{RecordID: rec.ID, Question: rec.Question}
	}

	it := domain.Interaction{
		SessionID: l.turns.SessionID(),
		Question:  question,
		Answer:    ans.Text,
		Source:    ans.Source,
		Basis:     basis,
		Timestamp: time.Now().UTC(),
	}
	if _, err := l.store.InsertInteraction(it); err != nil {
		l.logger.Warn("interaction not persisted", "session", it.SessionID, "error", err)
	}

	l.turns.RecordTurn(question, ans.Text, basis)
}
