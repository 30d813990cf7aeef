package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

const defaultMemoryTopK = 5

// MemoryQueryTool searches one vector-store namespace by semantic
// similarity. Scores are decayed per the namespace retention policy.
type MemoryQueryTool struct {
	embedder ports.Embedder
	store    ports.VectorStore
}

func NewMemoryQueryTool(embedder ports.Embedder, store ports.VectorStore) *MemoryQueryTool {
	return &MemoryQueryTool{embedder: embedder, store: store}
}

func (t *MemoryQueryTool) Name() string {
	return "memory_query"
}

func (t *MemoryQueryTool) Description() string {
	return "Searches long-term memory in one namespace (reading_history, youtube_history, notes_journal, autobiographical_memory, web_cache) and returns the most relevant stored chunks."
}

func (t *MemoryQueryTool) Parameters() map[string]string {
	return map[string]string{
		"query":     "What to look for (1-500 characters)",
		"namespace": "Memory namespace to search (default reading_history)",
	}
}

func (t *MemoryQueryTool) ParameterOrder() []string {
	return []string{"query", "namespace"}
}

func (t *MemoryQueryTool) Run(ctx context.Context, req ports.ToolRequest) (*ports.ToolResult, error) {
	query, _ := req.Args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidToolArgs)
	}

	ns := models.NamespaceReadingHistory
	if v, ok := req.Args["namespace"].(string); ok && v != "" {
		if !models.IsKnownNamespace(v) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNamespace, v)
		}
		ns = models.Namespace(v)
	}

	embedding, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	chunks, err := t.store.Query(ctx, ns, embedding, defaultMemoryTopK)
	if err != nil {
		return nil, err
	}
	chunks = decayAndRank(chunks, time.Now())

	if len(chunks) == 0 {
		return &ports.ToolResult{
			ToolName:   t.Name(),
			Text:       fmt.Sprintf("No stored memories matched %q in %s.", query, ns),
			SourceType: "memory",
			Status:     models.ToolRunOK,
		}, nil
	}

	return &ports.ToolResult{
		ToolName:   t.Name(),
		Text:       renderChunks(chunks),
		Snippets:   chunkSnippets(chunks),
		SourceType: "memory",
		Trust:      models.TrustHigh,
		Status:     models.ToolRunOK,
	}, nil
}

// decayAndRank applies retention decay, drops expired chunks and re-sorts
// by the decayed score.
func decayAndRank(chunks []*models.Chunk, now time.Time) []*models.Chunk {
	kept := make([]*models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		ref := now
		if c.Metadata.FetchedAt != nil {
			ref = *c.Metadata.FetchedAt
		}
		score, alive := models.DecayedScore(c.Score, c.Metadata.Namespace, ref, now)
		if !alive {
			continue
		}
		c.Score = score
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	return kept
}

func renderChunks(chunks []*models.Chunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		sb.WriteString(fmt.Sprintf("%d. [%.2f]", i+1, c.Score))
		if c.Metadata.Title != "" {
			sb.WriteString(" " + c.Metadata.Title)
		}
		if c.Metadata.URL != "" {
			sb.WriteString(" (" + c.Metadata.URL + ")")
		}
		sb.WriteString("\n")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func chunkSnippets(chunks []*models.Chunk) []string {
	snippets := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Metadata.URL != "" {
			snippets = append(snippets, c.Metadata.URL)
		}
	}
	return snippets
}

var _ ports.Tool = (*MemoryQueryTool)(nil)
