package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"tekbot/internal/domain"
)

var (
	bucketKnowledge    = []byte("knowledge")
	bucketInteractions = []byte("interactions")
	bucketSessions     = []byte("sessions")
	bucketMeta         = []byte("meta")
)

// BoltStore is the bbolt-backed document store holding knowledge records,
// interaction logs and persisted sessions in separate buckets. Safe for
// concurrent use; bbolt serializes writers.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketKnowledge, bucketInteractions, bucketSessions, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// FindKnowledge returns all knowledge records. Interaction and session
// documents live in their own buckets and are never returned here.
func (s *BoltStore) FindKnowledge() ([]domain.KnowledgeRecord, error) {
	var records []domain.KnowledgeRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKnowledge)
		return b.ForEach(func(k, v []byte) error {
			rec, ok := decodeKnowledge(string(k), v)
			if !ok {
				return nil // skip corrupted entries
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindByQuestion returns the knowledge record whose question text is
// exactly question, or ok=false when none exists.
func (s *BoltStore) FindByQuestion(question string) (domain.KnowledgeRecord, bool, error) {
	var found domain.KnowledgeRecord
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKnowledge)
		return b.ForEach(func(k, v []byte) error {
			if ok {
				return nil
			}
			rec, valid := decodeKnowledge(string(k), v)
			if valid && rec.Question == question {
				found = rec
				ok = true
			}
			return nil
		})
	})
	return found, ok, err
}

// InsertKnowledge stores a new knowledge record and returns its id.
func (s *BoltStore) InsertKnowledge(rec domain.KnowledgeRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Kind = domain.KindKnowledge

	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(encodeKnowledge(rec))
		if err != nil {
			return err
		}
		return tx.Bucket(bucketKnowledge).Put([]byte(rec.ID), data)
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// UpdateEmbedding persists a backfilled embedding for an existing record.
// Rewriting the same embedding is safe.
func (s *BoltStore) UpdateEmbedding(id string, embedding []float32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKnowledge)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("knowledge record not found: %s", id)
		}

		var meta storedKnowledge
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("corrupted knowledge record %s: %w", id, err)
		}
		meta.Embedding = embedding

		updated, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}

// InsertInteraction appends an interaction audit record.
func (s *BoltStore) InsertInteraction(it domain.Interaction) (string, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Timestamp.IsZero() {
		it.Timestamp = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := storedInteraction{
			SessionID: it.SessionID,
			Question:  it.Question,
			Answer:    it.Answer,
			Source:    string(it.Source),
			Basis:     encodeBasis(it.Basis),
			Timestamp: it.Timestamp.Unix(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketInteractions).Put([]byte(it.ID), data)
	})
	if err != nil {
		return "", err
	}
	return it.ID, nil
}

// SaveSession upserts a session document keyed by session id.
func (s *BoltStore) SaveSession(sess domain.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session id is empty")
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := storedSession{
			Turns:     encodeTurns(sess.Turns),
			UpdatedAt: sess.UpdatedAt.Unix(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSessions).Put([]byte(sess.ID), data)
	})
}

// LatestSession returns the most recently updated session not older than
// cutoff, or ok=false.
func (s *BoltStore) LatestSession(cutoff time.Time) (domain.Session, bool, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return domain.Session{}, false, err
	}
	for _, sess := range sessions {
		if !sess.UpdatedAt.Before(cutoff) {
			return sess, true, nil
		}
	}
	return domain.Session{}, false, nil
}

// ListSessions returns all persisted sessions, most recent first.
func (s *BoltStore) ListSessions() ([]domain.Session, error) {
	var sessions []domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		return b.ForEach(func(k, v []byte) error {
			var meta storedSession
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil // skip corrupted entries
			}
			sessions = append(sessions, domain.Session{
				ID:        string(k),
				Turns:     decodeTurns(meta.Turns),
				UpdatedAt: time.Unix(meta.UpdatedAt, 0).UTC(),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Counts reports how many documents of each kind are stored.
func (s *BoltStore) Counts() (knowledge, interactions, sessions int, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		knowledge = tx.Bucket(bucketKnowledge).Stats().KeyN
		interactions = tx.Bucket(bucketInteractions).Stats().KeyN
		sessions = tx.Bucket(bucketSessions).Stats().KeyN
		return nil
	})
	return knowledge, interactions, sessions, err
}
