package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	touched  int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*models.Session{}}
}

func (m *memSessions) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	m.touched++
	return nil
}

func (m *memSessions) List(context.Context, int, int) ([]*models.Session, error) {
	return nil, nil
}

type memMessages struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (m *memMessages) Create(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memMessages) GetByID(context.Context, string) (*models.Message, error) {
	return nil, domain.ErrMessageNotFound
}

func (m *memMessages) GetBySession(_ context.Context, sessionID string) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) GetLastBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	all, _ := m.GetBySession(ctx, sessionID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *memMessages) CountBySession(ctx context.Context, sessionID string) (int, error) {
	all, _ := m.GetBySession(ctx, sessionID)
	return len(all), nil
}

type memSummaries struct {
	mu        sync.Mutex
	live      map[string]*models.SessionSummary
	snapshots []string
}

func newMemSummaries() *memSummaries {
	return &memSummaries{live: map[string]*models.SessionSummary{}}
}

func (m *memSummaries) GetLive(_ context.Context, sessionID string) (*models.SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[sessionID], nil
}

func (m *memSummaries) ReplaceLive(_ context.Context, summary *models.SessionSummary, snapshotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live[summary.SessionID] != nil {
		m.snapshots = append(m.snapshots, snapshotID)
	}
	m.live[summary.SessionID] = summary
	return nil
}

func (m *memSummaries) ListSnapshots(context.Context, string) ([]*models.SummarySnapshot, error) {
	return nil, nil
}

type memFacts struct {
	mu    sync.Mutex
	facts []*models.ProfileFact
}

func (m *memFacts) Create(_ context.Context, fact *models.ProfileFact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = append(m.facts, fact)
	return nil
}

func (m *memFacts) ListActive(_ context.Context, limit int) ([]*models.ProfileFact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.facts
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFacts) SetActive(context.Context, string, bool) error { return nil }

type nopRuns struct{}

func (nopRuns) Create(context.Context, *models.ToolRun) error { return nil }
func (nopRuns) ListBySession(context.Context, string, int) ([]*models.ToolRun, error) {
	return nil, nil
}
func (nopRuns) StatsBySession(context.Context, string) (*models.ToolStats, error) {
	return &models.ToolStats{}, nil
}

type countingIDs struct {
	mu sync.Mutex
	n  int
}

func (c *countingIDs) next(prefix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("%s_%d", prefix, c.n)
}

func (c *countingIDs) SessionID() string  { return c.next("as") }
func (c *countingIDs) MessageID() string  { return c.next("am") }
func (c *countingIDs) SummaryID() string  { return c.next("asum") }
func (c *countingIDs) SnapshotID() string { return c.next("asnap") }
func (c *countingIDs) FactID() string     { return c.next("af") }
func (c *countingIDs) ToolRunID() string  { return c.next("atr") }
func (c *countingIDs) ChunkID() string    { return c.next("ach") }

type scriptedLLM struct {
	mu       sync.Mutex
	response string
	calls    []ports.SamplingParams
	prompts  []string
}

func (s *scriptedLLM) Complete(_ context.Context, messages []ports.ChatMessage, params ports.SamplingParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, params)
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	return s.response, nil
}

func newTestStore(llm ports.LLMClient) (*Store, *memSessions, *memMessages, *memSummaries) {
	sessions := newMemSessions()
	messages := &memMessages{}
	summaries := newMemSummaries()
	store := NewStore(sessions, messages, summaries, &memFacts{}, nopRuns{}, &countingIDs{}, llm, 6, 20)
	return store, sessions, messages, summaries
}

func TestEnsure_CreatesNewSessionForEmptyID(t *testing.T) {
	store, sessions, _, _ := newTestStore(&scriptedLLM{})

	s, err := store.Ensure(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" {
		t.Fatal("expected generated session id")
	}
	if _, ok := sessions.sessions[s.ID]; !ok {
		t.Error("session was not persisted")
	}
}

func TestEnsure_ReturnsExistingSession(t *testing.T) {
	store, sessions, _, _ := newTestStore(&scriptedLLM{})
	existing := models.NewSession("as_keep", "t")
	sessions.sessions["as_keep"] = existing

	s, err := store.Ensure(context.Background(), "as_keep")
	if err != nil {
		t.Fatal(err)
	}
	if s != existing {
		t.Error("expected the stored session back")
	}
}

func TestEnsure_CreatesSessionWithRequestedID(t *testing.T) {
	store, sessions, _, _ := newTestStore(&scriptedLLM{})

	s, err := store.Ensure(context.Background(), "as_wanted")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != "as_wanted" {
		t.Errorf("expected requested id preserved, got %s", s.ID)
	}
	if _, ok := sessions.sessions["as_wanted"]; !ok {
		t.Error("session was not persisted")
	}
}

func TestAppend_TouchesSession(t *testing.T) {
	store, sessions, messages, _ := newTestStore(&scriptedLLM{})
	sessions.sessions["as_1"] = models.NewSession("as_1", "")

	if _, err := store.AppendUser(context.Background(), "as_1", "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AppendAssistant(context.Background(), "as_1", "hi"); err != nil {
		t.Fatal(err)
	}

	if len(messages.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages.messages))
	}
	if sessions.touched != 2 {
		t.Errorf("expected session touched per message, got %d", sessions.touched)
	}
}

func TestAppend_RejectsEmptyContent(t *testing.T) {
	store, sessions, _, _ := newTestStore(&scriptedLLM{})
	sessions.sessions["as_1"] = models.NewSession("as_1", "")

	_, err := store.AppendUser(context.Background(), "as_1", "   ")
	if !errors.Is(err, domain.ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
}

func TestMaybeSummarize_BelowThresholdDoesNothing(t *testing.T) {
	llm := &scriptedLLM{response: "summary"}
	store, sessions, _, summaries := newTestStore(llm)
	sessions.sessions["as_1"] = models.NewSession("as_1", "")
	for i := 0; i < 10; i++ {
		if _, err := store.AppendUser(context.Background(), "as_1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	did, err := store.MaybeSummarize(context.Background(), "as_1")
	if err != nil {
		t.Fatal(err)
	}
	if did {
		t.Error("expected no summarization below the interval")
	}
	if len(llm.calls) != 0 {
		t.Error("expected no LLM call")
	}
	if summaries.live["as_1"] != nil {
		t.Error("expected no live summary")
	}
}

func TestMaybeSummarize_RegeneratesAtInterval(t *testing.T) {
	llm := &scriptedLLM{response: "User is planning a move to Lisbon."}
	store, sessions, _, summaries := newTestStore(llm)
	sessions.sessions["as_1"] = models.NewSession("as_1", "")
	for i := 0; i < 22; i++ {
		if _, err := store.AppendUser(context.Background(), "as_1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	did, err := store.MaybeSummarize(context.Background(), "as_1")
	if err != nil {
		t.Fatal(err)
	}
	if !did {
		t.Fatal("expected summarization at the interval")
	}

	live := summaries.live["as_1"]
	if live == nil || live.SummaryText != "User is planning a move to Lisbon." {
		t.Fatalf("unexpected live summary: %+v", live)
	}
	if live.MessageCountAtUpdate != 22 {
		t.Errorf("expected message count 22, got %d", live.MessageCountAtUpdate)
	}

	// Only the older portion is summarized; the short-term buffer stays out.
	joined := strings.Join(llm.prompts, "\n")
	if strings.Contains(joined, "msg 21") {
		t.Error("expected the short-term tail excluded from the summary prompt")
	}
	if !strings.Contains(joined, "msg 0") {
		t.Error("expected older messages in the summary prompt")
	}
}

func TestMaybeSummarize_CountsSinceLastUpdate(t *testing.T) {
	llm := &scriptedLLM{response: "updated summary"}
	store, sessions, _, summaries := newTestStore(llm)
	sessions.sessions["as_1"] = models.NewSession("as_1", "")
	for i := 0; i < 25; i++ {
		if _, err := store.AppendUser(context.Background(), "as_1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	if did, _ := store.MaybeSummarize(context.Background(), "as_1"); !did {
		t.Fatal("expected first summarization")
	}
	// Only a few more messages; the interval counts from the last update.
	for i := 25; i < 30; i++ {
		if _, err := store.AppendUser(context.Background(), "as_1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if did, _ := store.MaybeSummarize(context.Background(), "as_1"); did {
		t.Error("expected no re-summarization before the next interval")
	}

	if len(summaries.snapshots) != 0 {
		t.Errorf("expected no snapshot yet, got %d", len(summaries.snapshots))
	}
}

func TestMaybeSummarize_ArchivesPreviousLive(t *testing.T) {
	llm := &scriptedLLM{response: "summary text"}
	store, sessions, _, summaries := newTestStore(llm)
	sessions.sessions["as_1"] = models.NewSession("as_1", "")

	for i := 0; i < 21; i++ {
		if _, err := store.AppendUser(context.Background(), "as_1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if did, _ := store.MaybeSummarize(context.Background(), "as_1"); !did {
		t.Fatal("expected first summarization")
	}
	for i := 21; i < 42; i++ {
		if _, err := store.AppendUser(context.Background(), "as_1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if did, _ := store.MaybeSummarize(context.Background(), "as_1"); !did {
		t.Fatal("expected second summarization")
	}

	if len(summaries.snapshots) != 1 {
		t.Errorf("expected previous live summary archived once, got %d snapshots", len(summaries.snapshots))
	}

	// Second pass feeds the previous summary back into the prompt.
	joined := strings.Join(llm.prompts, "\n")
	if !strings.Contains(joined, "Previous summary:") {
		t.Error("expected previous summary included in regeneration prompt")
	}
}
