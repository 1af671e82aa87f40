package domain

import "time"

// RecordKind tags stored documents. Only knowledge records are ever
// candidates for retrieval; interactions and sessions are bookkeeping.
type RecordKind string

const (
	KindKnowledge   RecordKind = "knowledge"
	KindInteraction RecordKind = "interaction"
	KindSession     RecordKind = "session"
)

type KnowledgeRecord struct {
	ID        string
	Kind      RecordKind
	Question  string
	Answer    string
	Embedding []float32 // nil until backfilled
	CreatedAt time.Time
}

// HasEmbedding reports whether the record carries a persisted embedding.
func (r KnowledgeRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

type RankedCandidate struct {
	Record KnowledgeRecord
	Score  float64
}

type AnswerSource string

const (
	SourceCached    AnswerSource = "cached"
	SourceGenerated AnswerSource = "generated"
)

type Answer struct {
	Text   string
	Source AnswerSource
	Basis  []KnowledgeRecord
}

// BasisRef is a snapshot reference to a grounding record: identifier and
// question text only, never the full payload.
type BasisRef struct {
	RecordID string
	Question string
}

type ConversationTurn struct {
	Question  string
	Answer    string
	Basis     []BasisRef
	Timestamp time.Time
}

type Session struct {
	ID        string
	Turns     []ConversationTurn
	UpdatedAt time.Time
}

type Interaction struct {
	ID        string
	SessionID string
	Question  string
	Answer    string
	Source    AnswerSource
	Basis     []BasisRef
	Timestamp time.Time
}
