package ports

import (
	"context"

	"github.com/longregen/argo/internal/domain/models"
)

// ChatMessage is one message in the OpenAI chat format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SamplingParams are the per-call generation settings. The orchestrator
// picks these per (mode, phase).
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// LLMClient is the OpenAI-style chat-completions transport. Tool use is
// entirely prompt-based; no structured tool API is ever sent.
type LLMClient interface {
	Complete(ctx context.Context, messages []ChatMessage, params SamplingParams) (string, error)
}

// Embedder turns text into vectors for the vector store.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ToolRequest is one normalized, approved tool invocation.
type ToolRequest struct {
	Tool string
	Args map[string]any
}

// ToolResult is the first-class outcome of one tool execution. A failed
// tool produces a well-formed error result, never a panic or an error
// crossing the orchestrator boundary.
type ToolResult struct {
	ToolName     string
	Text         string
	Snippets     []string
	URL          string
	SourceType   string
	Trust        models.TrustLevel
	FetchedAt    string
	Status       models.ToolRunStatus
	ErrorType    string
	ErrorMessage string
}

// OK reports whether the execution succeeded.
func (r *ToolResult) OK() bool {
	return r.Status == models.ToolRunOK
}

// Tool is one named capability exposed to the model. New tools plug in by
// implementing Tool and registering a policy validator; the orchestrator
// never changes.
type Tool interface {
	Name() string
	Description() string
	// Parameters maps parameter name to a short usage description, in
	// declaration order via ParameterOrder.
	Parameters() map[string]string
	ParameterOrder() []string
	Run(ctx context.Context, req ToolRequest) (*ToolResult, error)
}

// Ingestor writes documents into the vector store, routing by source type
// and the ephemeral flag.
type Ingestor interface {
	Ingest(ctx context.Context, doc *models.Document) (int, error)
}
