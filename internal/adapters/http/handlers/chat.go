package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/longregen/argo/internal/application/orchestrator"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
)

// TurnRunner is the slice of the orchestrator the chat handler needs.
type TurnRunner interface {
	SendMessage(ctx context.Context, sessionID, userText string, mode models.Mode) (*orchestrator.TurnResult, error)
}

type ChatHandler struct {
	runner TurnRunner
}

func NewChatHandler(runner TurnRunner) *ChatHandler {
	return &ChatHandler{runner: runner}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Mode      string `json:"mode"`
}

// Stream handles POST /chat/stream. The response is Server-Sent Events:
// `session` with the chosen session id, `message` with the reply, `error`
// on failure, then `done`. A client disconnect cancels the turn via the
// request context.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "bad_request", "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		respondError(w, "bad_request", "message is required", http.StatusBadRequest)
		return
	}
	mode, ok := models.ParseMode(req.Mode)
	if !ok {
		if req.Mode == "" {
			mode = models.ModeQuickLookup
		} else {
			respondError(w, "bad_request", fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "internal_error", "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	result, err := h.runner.SendMessage(r.Context(), req.SessionID, req.Message, mode)

	if result != nil {
		writeEvent(w, flusher, "session", map[string]string{"session_id": result.SessionID})
	}
	switch {
	case err != nil && result == nil:
		if domain.Classify(err) == domain.KindCancelled {
			// Client is gone; nothing to write.
			return
		}
		writeEvent(w, flusher, "error", map[string]string{
			"kind":    string(domain.Classify(err)),
			"message": domain.Classify(err).UserMessage(),
		})
	case err != nil:
		// The turn failed but produced a user-visible reply.
		writeEvent(w, flusher, "message", map[string]string{"text": result.FinalText})
		writeEvent(w, flusher, "error", map[string]string{
			"kind":    string(domain.Classify(err)),
			"message": domain.Classify(err).UserMessage(),
		})
	default:
		writeEvent(w, flusher, "message", map[string]string{"text": result.FinalText})
	}
	writeEvent(w, flusher, "done", map[string]string{})
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("SSE: failed to marshal %s event: %v", event, err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
