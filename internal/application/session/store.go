// Package session wraps the repositories behind the turn-level operations
// the orchestrator needs: ensure session, append messages, short-term
// buffer, and rolling-summary maintenance.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// Store coordinates session persistence for one deployment. It holds no
// per-session state; everything session-scoped lives in the database.
type Store struct {
	sessions  ports.SessionRepository
	messages  ports.MessageRepository
	summaries ports.SummaryRepository
	facts     ports.FactRepository
	runs      ports.ToolRunRepository
	ids       ports.IDGenerator
	llm       ports.LLMClient

	shortTermK      int
	summaryInterval int
}

func NewStore(
	sessions ports.SessionRepository,
	messages ports.MessageRepository,
	summaries ports.SummaryRepository,
	facts ports.FactRepository,
	runs ports.ToolRunRepository,
	ids ports.IDGenerator,
	llm ports.LLMClient,
	shortTermK, summaryInterval int,
) *Store {
	if shortTermK <= 0 {
		shortTermK = 6
	}
	if summaryInterval <= 0 {
		summaryInterval = 20
	}
	return &Store{
		sessions:        sessions,
		messages:        messages,
		summaries:       summaries,
		facts:           facts,
		runs:            runs,
		ids:             ids,
		llm:             llm,
		shortTermK:      shortTermK,
		summaryInterval: summaryInterval,
	}
}

func (s *Store) ShortTermK() int {
	return s.shortTermK
}

// Ensure returns the session with the given ID, creating it (or a brand
// new one when id is empty) if needed.
func (s *Store) Ensure(ctx context.Context, id string) (*models.Session, error) {
	if id != "" {
		session, err := s.sessions.GetByID(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}
	if id == "" {
		id = s.ids.SessionID()
	}
	session := models.NewSession(id, "")
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// AppendUser persists a user message and bumps the session.
func (s *Store) AppendUser(ctx context.Context, sessionID, content string) (*models.Message, error) {
	return s.append(ctx, models.NewUserMessage(s.ids.MessageID(), sessionID, content))
}

// AppendAssistant persists an assistant message and bumps the session.
func (s *Store) AppendAssistant(ctx context.Context, sessionID, content string) (*models.Message, error) {
	return s.append(ctx, models.NewAssistantMessage(s.ids.MessageID(), sessionID, content))
}

func (s *Store) append(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return nil, domain.ErrEmptyContent
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := s.sessions.Touch(ctx, msg.SessionID); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return msg, nil
}

// ShortTerm returns the last K messages in chronological order.
func (s *Store) ShortTerm(ctx context.Context, sessionID string) ([]*models.Message, error) {
	return s.messages.GetLastBySession(ctx, sessionID, s.shortTermK)
}

func (s *Store) LiveSummary(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	return s.summaries.GetLive(ctx, sessionID)
}

func (s *Store) ToolStats(ctx context.Context, sessionID string) (*models.ToolStats, error) {
	return s.runs.StatsBySession(ctx, sessionID)
}

func (s *Store) ToolRuns(ctx context.Context, sessionID string, limit int) ([]*models.ToolRun, error) {
	return s.runs.ListBySession(ctx, sessionID, limit)
}

func (s *Store) ListFacts(ctx context.Context, limit int) ([]*models.ProfileFact, error) {
	return s.facts.ListActive(ctx, limit)
}

func (s *Store) AddFact(ctx context.Context, factType, text, source string) (*models.ProfileFact, error) {
	fact := models.NewProfileFact(s.ids.FactID(), factType, text, source)
	if err := s.facts.Create(ctx, fact); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return fact, nil
}

const summarySystemPrompt = "You maintain a rolling summary of a conversation. " +
	"Merge the previous summary with the new messages into a compact third-person summary. " +
	"Keep decisions, preferences, open questions and facts; drop pleasantries. Maximum 200 words."

// MaybeSummarize regenerates the rolling summary once enough messages have
// accumulated since the last update. The replacement is atomic; the
// previous live summary becomes an immutable snapshot.
func (s *Store) MaybeSummarize(ctx context.Context, sessionID string) (bool, error) {
	count, err := s.messages.CountBySession(ctx, sessionID)
	if err != nil {
		return false, err
	}

	live, err := s.summaries.GetLive(ctx, sessionID)
	if err != nil {
		return false, err
	}

	since := count
	prevText := ""
	if live != nil {
		since = count - live.MessageCountAtUpdate
		prevText = live.SummaryText
	}
	if since < s.summaryInterval {
		return false, nil
	}

	all, err := s.messages.GetBySession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	// Summarize the portion that will fall out of the short-term buffer.
	older := all
	if len(all) > s.shortTermK {
		older = all[:len(all)-s.shortTermK]
	}
	if len(older) == 0 {
		return false, nil
	}

	text, err := s.summarize(ctx, prevText, older)
	if err != nil {
		return false, err
	}

	summary := &models.SessionSummary{
		ID:                   s.ids.SummaryID(),
		SessionID:            sessionID,
		SummaryText:          text,
		MessageCountAtUpdate: count,
		UpdatedAt:            time.Now(),
	}
	if err := s.summaries.ReplaceLive(ctx, summary, s.ids.SnapshotID()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) summarize(ctx context.Context, previous string, older []*models.Message) (string, error) {
	var sb strings.Builder
	if previous != "" {
		sb.WriteString("Previous summary:\n")
		sb.WriteString(previous)
		sb.WriteString("\n\n")
	}
	sb.WriteString("New messages:\n")
	for _, m := range older {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}

	text, err := s.llm.Complete(ctx, []ports.ChatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: sb.String()},
	}, ports.SamplingParams{Temperature: 0.3, MaxTokens: 512})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrNothingToSummarize
	}
	return text, nil
}
