package store

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"tekbot/internal/domain"
)

// CurrentSchemaVersion is the current storage schema version.
// Version 1 databases hold legacy records with a single combined "texto"
// field; version 2 records carry pergunta/resposta.
const CurrentSchemaVersion = 2

var keySchemaVersion = []byte("schema_version")

// storedKnowledge is the on-disk knowledge document. The legacy "texto"
// field is kept decodable so databases written by earlier knowledge-base
// generations normalize instead of failing.
type storedKnowledge struct {
	Question  string    `json:"pergunta,omitempty"`
	Answer    string    `json:"resposta,omitempty"`
	Texto     string    `json:"texto,omitempty"` // legacy combined field
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt int64     `json:"created_at,omitempty"`
}

type storedBasisRef struct {
	RecordID string `json:"record_id"`
	Question string `json:"pergunta"`
}

type storedInteraction struct {
	SessionID string           `json:"session_id"`
	Question  string           `json:"pergunta"`
	Answer    string           `json:"resposta"`
	Source    string           `json:"source"`
	Basis     []storedBasisRef `json:"basis,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

type storedTurn struct {
	Question  string           `json:"pergunta"`
	Answer    string           `json:"resposta"`
	Basis     []storedBasisRef `json:"basis,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

type storedSession struct {
	Turns     []storedTurn `json:"turns"`
	UpdatedAt int64        `json:"updated_at"`
}

// decodeKnowledge normalizes a stored document to the canonical record
// shape. A legacy texto-only document becomes a record whose question and
// answer are both the combined text, matching how such entries were
// matched and answered before the split fields existed.
func decodeKnowledge(id string, data []byte) (domain.KnowledgeRecord, bool) {
	var meta storedKnowledge
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.KnowledgeRecord{}, false
	}

	question, answer := meta.Question, meta.Answer
	if question == "" && meta.Texto != "" {
		question = meta.Texto
		answer = meta.Texto
	}

	return domain.KnowledgeRecord{
		ID:        id,
		Kind:      domain.KindKnowledge,
		Question:  question,
		Answer:    answer,
		Embedding: meta.Embedding,
		CreatedAt: time.Unix(meta.CreatedAt, 0).UTC(),
	}, true
}

func encodeKnowledge(rec domain.KnowledgeRecord) storedKnowledge {
	return storedKnowledge{
		Question:  rec.Question,
		Answer:    rec.Answer,
		Embedding: rec.Embedding,
		CreatedAt: rec.CreatedAt.Unix(),
	}
}

func encodeBasis(basis []domain.BasisRef) []storedBasisRef {
	if len(basis) == 0 {
		return nil
	}
	out := make([]storedBasisRef, len(basis))
	for i, b := range basis {
		out[i] = storedBasisRef{RecordID: b.RecordID, Question: b.Question}
	}
	return out
}

func decodeBasis(basis []storedBasisRef) []domain.BasisRef {
	if len(basis) == 0 {
		return nil
	}
	out := make([]domain.BasisRef, len(basis))
	for i, b := range basis {
		out[i] = domain.BasisRef{RecordID: b.RecordID, Question: b.Question}
	}
	return out
}

func encodeTurns(turns []domain.ConversationTurn) []storedTurn {
	out := make([]storedTurn, len(turns))
	for i, t := range turns {
		out[i] = storedTurn{
			Question:  t.Question,
			Answer:    t.Answer,
			Basis:     encodeBasis(t.Basis),
			Timestamp: t.Timestamp.Unix(),
		}
	}
	return out
}

func decodeTurns(turns []storedTurn) []domain.ConversationTurn {
	out := make([]domain.ConversationTurn, len(turns))
	for i, t := range turns {
		out[i] = domain.ConversationTurn{
			Question:  t.Question,
			Answer:    t.Answer,
			Basis:     decodeBasis(t.Basis),
			Timestamp: time.Unix(t.Timestamp, 0).UTC(),
		}
	}
	return out
}

// migrate rewrites legacy texto-only knowledge documents to the canonical
// shape. Embeddings are preserved, so nothing is re-encoded. It runs once;
// the schema version in the meta bucket gates repeat work.
func (s *BoltStore) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	if version >= CurrentSchemaVersion {
		return nil
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKnowledge)
		type rewrite struct {
			key  []byte
			data []byte
		}
		var rewrites []rewrite

		err := b.ForEach(func(k, v []byte) error {
			var meta storedKnowledge
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil // leave corrupted entries untouched
			}
			if meta.Question != "" || meta.Texto == "" {
				return nil
			}
			meta.Question = meta.Texto
			meta.Answer = meta.Texto
			meta.Texto = ""
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			rewrites = append(rewrites, rewrite{key: append([]byte(nil), k...), data: data})
			return nil
		})
		if err != nil {
			return err
		}

		for _, r := range rewrites {
			if err := b.Put(r.key, r.data); err != nil {
				return err
			}
		}

		version, err := json.Marshal(CurrentSchemaVersion)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, version)
	})
	return err
}

func (s *BoltStore) schemaVersion() (int, error) {
	var version int
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaVersion)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &version); err != nil {
			version = 1
		}
		return nil
	})
	return version, err
}
