// Package memstore provides an in-memory KnowledgeStore. It backs tests
// and lets the pipeline run without a database file.
package memstore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tekbot/internal/domain"
)

type MemoryStore struct {
	mu        sync.RWMutex
	order     []string // knowledge insertion order, to keep scans stable
	knowledge map[string]domain.KnowledgeRecord
	sessions  map[string]domain.Session
	log       []domain.Interaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		knowledge: make(map[string]domain.KnowledgeRecord),
		sessions:  make(map[string]domain.Session),
	}
}

func (s *MemoryStore) FindKnowledge() ([]domain.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.KnowledgeRecord, 0, len(s.knowledge))
	for _, id := range s.order {
		records = append(records, s.knowledge[id])
	}
	return records, nil
}

func (s *MemoryStore) FindByQuestion(question string) (domain.KnowledgeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if s.knowledge[id].Question == question {
			return s.knowledge[id], true, nil
		}
	}
	return domain.KnowledgeRecord{}, false, nil
}

func (s *MemoryStore) InsertKnowledge(rec domain.KnowledgeRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Kind = domain.KindKnowledge
	if _, exists := s.knowledge[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.knowledge[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) UpdateEmbedding(id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.knowledge[id]
	if !ok {
		return fmt.Errorf("knowledge record not found: %s", id)
	}
	rec.Embedding = embedding
	s.knowledge[id] = rec
	return nil
}

func (s *MemoryStore) InsertInteraction(it domain.Interaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Timestamp.IsZero() {
		it.Timestamp = time.Now().UTC()
	}
	s.log = append(s.log, it)
	return it.ID, nil
}

// Interactions returns a copy of the logged interactions, oldest first.
func (s *MemoryStore) Interactions() []domain.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Interaction, len(s.log))
	copy(out, s.log)
	return out
}

func (s *MemoryStore) SaveSession(sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		return fmt.Errorf("session id is empty")
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) LatestSession(cutoff time.Time) (domain.Session, bool, error) {
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

func (s *MemoryStore) ListSessions() ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *MemoryStore) Counts() (knowledge, interactions, sessions int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.knowledge), len(s.log), len(s.sessions), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
