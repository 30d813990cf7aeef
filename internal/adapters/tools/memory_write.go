package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// MemoryWriteTool stores durable notes and findings in long-term memory.
// Writes route to a namespace by kind; they are never ephemeral.
type MemoryWriteTool struct {
	ingestor ports.Ingestor
}

func NewMemoryWriteTool(ingestor ports.Ingestor) *MemoryWriteTool {
	return &MemoryWriteTool{ingestor: ingestor}
}

func (t *MemoryWriteTool) Name() string {
	return "memory_write"
}

func (t *MemoryWriteTool) Description() string {
	return "Stores a durable note or finding in long-term memory so it can be retrieved in later sessions. Use during synthesis to persist conclusions worth keeping."
}

func (t *MemoryWriteTool) Parameters() map[string]string {
	return map[string]string{
		"text":  "The content to remember (1-4000 characters)",
		"kind":  "One of: note, journal, fact (default note)",
		"title": "Optional short title for the entry",
	}
}

func (t *MemoryWriteTool) ParameterOrder() []string {
	return []string{"text", "kind", "title"}
}

func (t *MemoryWriteTool) Run(ctx context.Context, req ports.ToolRequest) (*ports.ToolResult, error) {
	text, _ := req.Args["text"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidToolArgs)
	}

	kind, _ := req.Args["kind"].(string)
	sourceType := "note"
	switch kind {
	case "", "note":
	case "journal":
		sourceType = "journal"
	case "fact":
		sourceType = "autobiographical"
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidToolArgs, kind)
	}

	title, _ := req.Args["title"].(string)

	doc := &models.Document{
		Text:       text,
		SourceType: sourceType,
		Title:      strings.TrimSpace(title),
	}

	chunks, err := t.ingestor.Ingest(ctx, doc)
	if err != nil {
		return nil, err
	}

	ns := models.NamespaceForSource(sourceType, false)
	return &ports.ToolResult{
		ToolName:   t.Name(),
		Text:       fmt.Sprintf("Stored %d chunk(s) in %s.", chunks, ns),
		SourceType: "memory",
		Status:     models.ToolRunOK,
	}, nil
}

var _ ports.Tool = (*MemoryWriteTool)(nil)
