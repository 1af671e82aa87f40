package port

import (
	"time"

	"tekbot/internal/domain"
)

// KnowledgeStore is the document store backing retrieval, interaction
// logging and session persistence.
type KnowledgeStore interface {
	// FindKnowledge returns all knowledge-kind records. Interaction and
	// session documents are never retrieval candidates.
	FindKnowledge() ([]domain.KnowledgeRecord, error)

	// FindByQuestion returns the knowledge record whose question text is
	// exactly question, or ok=false when none exists.
	FindByQuestion(question string) (domain.KnowledgeRecord, bool, error)

	// InsertKnowledge stores a new knowledge record and returns its id.
	InsertKnowledge(rec domain.KnowledgeRecord) (string, error)

	// UpdateEmbedding persists a backfilled embedding for an existing
	// record. Rewriting the same embedding is safe.
	UpdateEmbedding(id string, embedding []float32) error

	// InsertInteraction appends an interaction audit record.
	InsertInteraction(it domain.Interaction) (string, error)

	// SaveSession upserts a session document.
	SaveSession(s domain.Session) error

	// LatestSession returns the most recently updated session not older
	// than cutoff, or ok=false.
	LatestSession(cutoff time.Time) (domain.Session, bool, error)

	// ListSessions returns all persisted sessions, most recent first.
	ListSessions() ([]domain.Session, error)

	// Counts reports how many documents of each kind are stored.
	Counts() (knowledge, interactions, sessions int, err error)

	Close() error
}
