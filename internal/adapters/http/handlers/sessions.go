package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/longregen/argo/internal/application/session"
	"github.com/longregen/argo/internal/domain/models"
)

// SessionsHandler serves the read-only session introspection endpoints:
// profile facts, the live summary and the tool audit log.
type SessionsHandler struct {
	store *session.Store
}

func NewSessionsHandler(store *session.Store) *SessionsHandler {
	return &SessionsHandler{store: store}
}

type factDTO struct {
	ID        string    `json:"id"`
	FactType  string    `json:"fact_type"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFacts handles GET /facts?limit=N
func (h *SessionsHandler) ListFacts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	facts, err := h.store.ListFacts(r.Context(), limit)
	if err != nil {
		respondError(w, "internal_error", "failed to list facts", http.StatusInternalServerError)
		return
	}
	out := make([]factDTO, 0, len(facts))
	for _, f := range facts {
		out = append(out, factDTO{
			ID:        f.ID,
			FactType:  f.FactType,
			Text:      f.Text,
			Source:    f.Source,
			CreatedAt: f.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"facts": out})
}

// GetSummary handles GET /sessions/{id}/summary
func (h *SessionsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	summary, err := h.store.LiveSummary(r.Context(), sessionID)
	if err != nil {
		respondError(w, "internal_error", "failed to read summary", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		respondError(w, "not_found", "no summary for this session yet", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":    summary.SessionID,
		"summary":       summary.SummaryText,
		"message_count": summary.MessageCountAtUpdate,
		"updated_at":    summary.UpdatedAt,
	})
}

type toolRunDTO struct {
	ID        string            `json:"id"`
	ToolName  string            `json:"tool_name"`
	Input     string            `json:"input"`
	Output    string            `json:"output"`
	Status    string            `json:"status"`
	ErrorType string            `json:"error_type,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ListTools handles GET /sessions/{id}/tools: recent runs plus per-tool
// aggregates.
func (h *SessionsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	runs, err := h.store.ToolRuns(r.Context(), sessionID, queryInt(r, "limit", 20))
	if err != nil {
		respondError(w, "internal_error", "failed to list tool runs", http.StatusInternalServerError)
		return
	}
	stats, err := h.store.ToolStats(r.Context(), sessionID)
	if err != nil {
		respondError(w, "internal_error", "failed to aggregate tool stats", http.StatusInternalServerError)
		return
	}

	out := make([]toolRunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toolRunDTO{
			ID:        run.ID,
			ToolName:  run.ToolName,
			Input:     run.Input,
			Output:    run.Output,
			Status:    string(run.Status),
			ErrorType: run.ErrorType,
			Metadata:  run.Metadata,
			CreatedAt: run.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"runs":  out,
		"stats": statsPayload(stats),
	})
}

func statsPayload(stats *models.ToolStats) map[string]any {
	if stats == nil {
		return map[string]any{"total": 0, "errors": 0}
	}
	return map[string]any{
		"total":   stats.TotalRuns,
		"errors":  stats.Errors,
		"by_tool": stats.ByTool,
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
