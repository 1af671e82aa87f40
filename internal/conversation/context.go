// Package conversation tracks the rolling history of one assistant
// session: a bounded list of question/answer turns, a lexical heuristic
// for follow-up questions, and persistence through the document store.
//
// One Context serves one logical conversation; concurrent writers to the
// same session are not supported.
package conversation

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tekbot/internal/domain"
	"tekbot/internal/port"
)

// continuationCues are lexical markers of a follow-up question. The
// knowledge base is Portuguese-first, so cues cover both languages.
// This is a heuristic, not a classifier; misses are acceptable.
var continuationCues = []string{
	"continue",
	"continua",
	"mais",
	"more",
	"detalhe",
	"details",
	"what about",
	"e sobre",
	"and then",
	"e depois",
	"anterior",
	"explique melhor",
}

type Context struct {
	store        port.KnowledgeStore
	historyLimit int
	charBudget   int
	logger       *slog.Logger

	mu        sync.Mutex
	sessionID string
	turns     []domain.ConversationTurn
}

// NewContext starts a fresh session. The session id is derived from the
// creation timestamp.
func NewContext(store port.KnowledgeStore, historyLimit, charBudget int, logger *slog.Logger) *Context {
	return &Context{
		store:        store,
		historyLimit: historyLimit,
		charBudget:   charBudget,
		logger:       logger,
		sessionID:    newSessionID(),
	}
}

func newSessionID() string {
	return fmt.Sprintf("sess-%d", time.Now().UnixNano())
}

func (c *Context) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Len returns the number of turns currently held.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Turns returns a copy of the recorded turns.
func (c *Context) Turns() []domain.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// RecordTurn appends a turn, evicting the oldest when over capacity.
func (c *Context) RecordTurn(question, answer string, basis []domain.BasisRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, domain.ConversationTurn{
		Question:  question,
		Answer:    answer,
		Basis:     basis,
		Timestamp: time.Now().UTC(),
	})
	if len(c.turns) > c.historyLimit {
		c.turns = c.turns[len(c.turns)-c.historyLimit:]
	}
}

// IsContinuation reports whether the question looks like a follow-up to
// the previous answer. Always false on an empty history.
func (c *Context) IsContinuation(question string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.turns) == 0 {
		return false
	}

	lowered := strings.ToLower(question)
	for _, cue := range continuationCues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}

// RenderRecent formats the last limit turns as alternating question and
// answer lines. When the rendered text exceeds the character budget the
// oldest lines are dropped first, never mid-line.
func (c *Context) RenderRecent(limit int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.turns) == 0 {
		return ""
	}

	start := len(c.turns) - limit
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, turn := range c.turns[start:] {
		lines = append(lines, "Pergunta: "+turn.Question)
		lines = append(lines, "Resposta: "+turn.Answer)
	}

	total := 0
	for _, line := range lines {
		total += len(line) + 1 // newline
	}
	for len(lines) > 0 && total > c.charBudget {
		total -= len(lines[0]) + 1
		lines = lines[1:]
	}

	return strings.Join(lines, "\n")
}

// Save upserts the session document. Failure is logged, not raised.
func (c *Context) Save() {
	c.mu.Lock()
	sess := domain.Session{
		ID:        c.sessionID,
		Turns:     append([]domain.ConversationTurn(nil), c.turns...),
		UpdatedAt: time.Now().UTC(),
	}
	c.mu.Unlock()

	if err := c.store.SaveSession(sess); err != nil {
		c.logger.Warn("session save failed", "session", sess.ID, "error", err)
	}
}

// RestoreRecent loads the most recent persisted session newer than the
// recency window. On restore the in-memory turns and session id are
// replaced wholesale. Returns whether a session was restored.
func (c *Context) RestoreRecent(within time.Duration) bool {
	cutoff := time.Now().UTC().Add(-within)
	sess, ok, err := c.store.LatestSession(cutoff)
	if err != nil {
		c.logger.Warn("session restore failed", "error", err)
		return false
	}
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sess.ID
	c.turns = sess.Turns
	if len(c.turns) > c.historyLimit {
		c.turns = c.turns[len(c.turns)-c.historyLimit:]
	}
	return true
}

// Reset persists the current session and starts a new empty one.
func (c *Context) Reset() {
	c.Save()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = newSessionID()
	c.turns = nil
}
