package orchestrator

import (
	"fmt"
	"strings"

	"github.com/longregen/argo/internal/application/registry"
	"github.com/longregen/argo/internal/debug"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

const basePrompt = "You are Argo, a locally hosted personal assistant with persistent memory. " +
	"You answer from the provided context when it is sufficient and use tools when it is not. " +
	"Never invent tool results. Cite URLs for claims sourced from the web."

// PromptBuilder renders the chat message list for one iteration. Tool
// instructions live only in the mode description; the transient tail is
// rebuilt fresh every iteration and never accumulated.
type PromptBuilder struct {
	registry *registry.Registry
	format   registry.Format
}

func NewPromptBuilder(reg *registry.Registry, format registry.Format) *PromptBuilder {
	return &PromptBuilder{registry: reg, format: format}
}

// BuildInput is everything one iteration's prompt depends on.
type BuildInput struct {
	SessionID    string
	Iteration    int
	Mode         models.Mode
	Phase        models.Phase
	ContextBlock string
	ShortTerm    []*models.Message
	UserText     string
	// Transient is E: tool results, rejection notices, nudges and the
	// research checklist for this iteration only.
	Transient []ports.ChatMessage
	Exclude   map[string]bool
}

// Build emits the ordered message list: system base + mode, system
// context, short-term messages, user input, then the transient tail.
func (b *PromptBuilder) Build(in BuildInput) []ports.ChatMessage {
	messages := []ports.ChatMessage{
		{Role: "system", Content: basePrompt + "\n\n" + b.modeDescription(in.Mode, in.Phase, in.Exclude)},
	}

	if in.ContextBlock != "" {
		messages = append(messages, ports.ChatMessage{
			Role:    "system",
			Content: "Context assembled from memory:\n\n" + in.ContextBlock,
		})
	}

	for _, m := range in.ShortTerm {
		messages = append(messages, ports.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	messages = append(messages, ports.ChatMessage{Role: "user", Content: in.UserText})
	messages = append(messages, in.Transient...)

	if debug.Enabled(debug.Prompt) {
		debug.DumpPrompt(in.SessionID, in.Iteration, renderForDump(messages))
	}
	return messages
}

// modeDescription is the only place tool instructions appear. The
// manifest varies with phase, so planning research iterations see no
// tools at all.
func (b *PromptBuilder) modeDescription(mode models.Mode, phase models.Phase, exclude map[string]bool) string {
	manifest := registry.Render(b.format, b.registry.ManifestFor(mode, phase, exclude))

	var sb strings.Builder
	switch mode {
	case models.ModeQuickLookup:
		sb.WriteString("Mode: quick lookup. Answer concisely, in a few sentences at most. ")
		sb.WriteString("Prefer the assembled context; call a tool only when the context cannot answer. ")
		sb.WriteString("When a web tool ran this turn, cite at least one source URL in your answer.")
	case models.ModeResearch:
		switch phase {
		case models.PhasePlanning:
			sb.WriteString("Mode: research, planning. Before searching, write a short research plan inside ")
			sb.WriteString("<research_plan>...</research_plan>: the sub-questions to answer and the searches you will run. ")
			sb.WriteString("Do not call tools yet.")
		case models.PhaseSynthesis:
			sb.WriteString("Mode: research, synthesis. You have gathered enough sources. Write your findings inside ")
			sb.WriteString("<synthesis>...</synthesis>, then <confidence>...</confidence> with your confidence level and why, ")
			sb.WriteString("then <gaps>...</gaps> listing what remains unknown. Cite source URLs. ")
			sb.WriteString("You may store durable findings with memory_write.")
		default:
			sb.WriteString("Mode: research, exploration. Execute your plan: search, then fetch the most promising results. ")
			sb.WriteString("Gather at least three distinct sources before synthesizing. ")
			sb.WriteString("You may emit several tool calls at once; they run in parallel.")
		}
	case models.ModeIngest:
		sb.WriteString("Mode: ingest. Read the provided material, produce a structured markdown summary, ")
		sb.WriteString("store it with memory_write including tags, and reply with a short confirmation of what was stored.")
	}

	if manifest != "" {
		sb.WriteString("\n\n")
		sb.WriteString(manifest)
	}
	return sb.String()
}

func renderForDump(messages []ports.ChatMessage) string {
	var sb strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&sb, "=== [%d] %s ===\n%s\n\n", i, m.Role, m.Content)
	}
	return sb.String()
}
