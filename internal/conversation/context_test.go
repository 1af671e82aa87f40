package conversation

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tekbot/internal/adapter/memstore"
	"tekbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordTurn_EvictsOldest(t *testing.T) {
	c := NewContext(memstore.NewMemoryStore(), 10, 1500, testLogger())

	for i := 1; i <= 11; i++ {
		c.RecordTurn(fmt.Sprintf("pergunta %d", i), fmt.Sprintf("resposta %d", i), nil)
	}

	if c.Len() != 10 {
		t.Fatalf("expected history capped at 10, got %d", c.Len())
	}
	turns := c.Turns()
	if turns[0].Question != "pergunta 2" {
		t.Errorf("expected oldest turn evicted, history starts at %q", turns[0].Question)
	}
	if turns[9].Question != "pergunta 11" {
		t.Errorf("expected newest turn kept, history ends at %q", turns[9].Question)
	}
}

func TestRenderRecent_LastTurnsOnly(t *testing.T) {
	c := NewContext(memstore.NewMemoryStore(), 10, 1500, testLogger())
	for i := 1; i <= 11; i++ {
		c.RecordTurn(fmt.Sprintf("pergunta %d", i), fmt.Sprintf("resposta %d", i), nil)
	}

	rendered := c.RenderRecent(5)

	if strings.Contains(rendered, "pergunta 6") {
		t.Errorf("render window too wide:\n%s", rendered)
	}
	for i := 7; i <= 11; i++ {
		if !strings.Contains(rendered, fmt.Sprintf("Pergunta: pergunta %d", i)) {
			t.Errorf("missing turn %d in:\n%s", i, rendered)
		}
	}
	if !strings.HasPrefix(rendered, "Pergunta: pergunta 7") {
		t.Errorf("expected render to start at turn 7:\n%s", rendered)
	}
	if !strings.HasSuffix(rendered, "Resposta: resposta 11") {
		t.Errorf("expected render to end at turn 11:\n%s", rendered)
	}
}

func TestRenderRecent_CharBudgetDropsWholeLines(t *testing.T) {
	// Each line is "Pergunta: aaaa..."/"Resposta: bbbb..." at 60 chars;
	// with a budget of 150 only the last two lines fit.
	c := NewContext(memstore.NewMemoryStore(), 10, 150, testLogger())
	c.RecordTurn(strings.Repeat("a", 50), strings.Repeat("b", 50), nil)
	c.RecordTurn(strings.Repeat("c", 50), strings.Repeat("d", 50), nil)

	rendered := c.RenderRecent(5)

	lines := strings.Split(rendered, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 surviving lines, got %d:\n%s", len(lines), rendered)
	}
	if !strings.HasPrefix(lines[0], "Pergunta: ccc") {
		t.Errorf("expected oldest lines dropped first, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Resposta: ddd") {
		t.Errorf("expected newest answer kept, got %q", lines[1])
	}
}

func TestRenderRecent_Empty(t *testing.T) {
	c := NewContext(memstore.NewMemoryStore(), 10, 1500, testLogger())
	if got := c.RenderRecent(5); got != "" {
		t.Errorf("expected empty render for empty history, got %q", got)
	}
}

func TestIsContinuation(t *testing.T) {
	c := NewContext(memstore.NewMemoryStore(), 10, 1500, testLogger())

	if c.IsContinuation("me dê mais detalhes") {
		t.Error("empty history can never be a continuation")
	}

	c.RecordTurn("como emitir nota", "Use o menu Fiscal.", nil)

	cases := map[string]bool{
		"me dê mais detalhes":       true,
		"Continue por favor":        true,
		"e sobre o certificado?":    true,
		"what about refunds":        true,
		"como cancelar uma fatura?": false,
	}
	for question, want := range cases {
		if got := c.IsContinuation(question); got != want {
			t.Errorf("IsContinuation(%q) = %v, want %v", question, got, want)
		}
	}
}

func TestSaveAndRestoreRecent(t *testing.T) {
	st := memstore.NewMemoryStore()

	first := NewContext(st, 10, 1500, testLogger())
	first.RecordTurn("pergunta 1", "resposta 1", []domain.BasisRef{{RecordID: "k1", Question: "pergunta 1"}})
	first.RecordTurn("pergunta 2", "resposta 2", nil)
	first.Save()

	second := NewContext(st, 10, 1500, testLogger())
	if !second.RestoreRecent(24 * time.Hour) {
		t.Fatal("expected a recent session to restore")
	}
	if second.SessionID() != first.SessionID() {
		t.Errorf("expected restored session id %q, got %q", first.SessionID(), second.SessionID())
	}
	turns := second.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 restored turns, got %d", len(turns))
	}
	if turns[1].Question != "pergunta 2" {
		t.Errorf("restored turns out of order, last is %q", turns[1].Question)
	}
	if len(turns[0].Basis) != 1 || turns[0].Basis[0].RecordID != "k1" {
		t.Error("expected basis refs to survive the round trip")
	}
}

func TestRestoreRecent_OutsideWindow(t *testing.T) {
	st := memstore.NewMemoryStore()
	stale := domain.Session{
		ID:        "sess-old",
		Turns:     []domain.ConversationTurn{{Question: "antiga", Answer: "resposta"}},
		UpdatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	if err := st.SaveSession(stale); err != nil {
		t.Fatal(err)
	}

	c := NewContext(st, 10, 1500, testLogger())
	before := c.SessionID()
	if c.RestoreRecent(24 * time.Hour) {
		t.Fatal("expected no restore from a stale session")
	}
	if c.SessionID() != before || c.Len() != 0 {
		t.Error("failed restore must leave the fresh session untouched")
	}
}

func TestRestoreRecent_TrimsToLimit(t *testing.T) {
	st := memstore.NewMemoryStore()
	turns := make([]domain.ConversationTurn, 12)
	for i := range turns {
		turns[i] = domain.ConversationTurn{Question: fmt.Sprintf("pergunta %d", i+1), Answer: "r"}
	}
	if err := st.SaveSession(domain.Session{ID: "sess-long", Turns: turns, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}

	c := NewContext(st, 10, 1500, testLogger())
	if !c.RestoreRecent(24 * time.Hour) {
		t.Fatal("expected restore")
	}
	if c.Len() != 10 {
		t.Fatalf("expected restored history trimmed to 10, got %d", c.Len())
	}
	if got := c.Turns()[0].Question; got != "pergunta 3" {
		t.Errorf("expected oldest turns trimmed, history starts at %q", got)
	}
}

func TestReset_StartsFreshSession(t *testing.T) {
	st := memstore.NewMemoryStore()
	c := NewContext(st, 10, 1500, testLogger())
	c.RecordTurn("pergunta 1", "resposta 1", nil)

	oldID := c.SessionID()
	c.Reset()

	if c.SessionID() == oldID {
		t.Error("expected a new session id after reset")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty history after reset, got %d turns", c.Len())
	}

	// The previous session was persisted on the way out.
	sessions, err := st.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != oldID {
		t.Errorf("expected the old session persisted by reset")
	}
}
