package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// RetrieveContextTool re-runs archival retrieval across every long-lived
// namespace with a query of the model's choosing. It embeds once and fans
// the same vector out to each namespace.
type RetrieveContextTool struct {
	embedder   ports.Embedder
	store      ports.VectorStore
	topPerNS   int
	namespaces []models.Namespace
}

func NewRetrieveContextTool(embedder ports.Embedder, store ports.VectorStore, topPerNS int) *RetrieveContextTool {
	if topPerNS <= 0 {
		topPerNS = defaultMemoryTopK
	}
	return &RetrieveContextTool{
		embedder: embedder,
		store:    store,
		topPerNS: topPerNS,
		namespaces: []models.Namespace{
			models.NamespaceReadingHistory,
			models.NamespaceYoutubeHistory,
			models.NamespaceNotesJournal,
			models.NamespaceAutobiographical,
		},
	}
}

func (t *RetrieveContextTool) Name() string {
	return "retrieve_context"
}

func (t *RetrieveContextTool) Description() string {
	return "Searches all long-term memory namespaces at once with a rephrased query. Use when the initial context lacks something the user's history might hold."
}

func (t *RetrieveContextTool) Parameters() map[string]string {
	return map[string]string{
		"query": "What to look for across all memory (1-500 characters)",
	}
}

func (t *RetrieveContextTool) ParameterOrder() []string {
	return []string{"query"}
}

func (t *RetrieveContextTool) Run(ctx context.Context, req ports.ToolRequest) (*ports.ToolResult, error) {
	query, _ := req.Args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidToolArgs)
	}

	embedding, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var all []*models.Chunk
	for _, ns := range t.namespaces {
		chunks, err := t.store.Query(ctx, ns, embedding, t.topPerNS)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	all = decayAndRank(all, now)
	if len(all) > t.topPerNS*2 {
		all = all[:t.topPerNS*2]
	}

	if len(all) == 0 {
		return &ports.ToolResult{
			ToolName:   t.Name(),
			Text:       fmt.Sprintf("Nothing in long-term memory matched %q.", query),
			SourceType: "memory",
			Status:     models.ToolRunOK,
		}, nil
	}

	return &ports.ToolResult{
		ToolName:   t.Name(),
		Text:       renderChunks(all),
		Snippets:   chunkSnippets(all),
		SourceType: "memory",
		Trust:      models.TrustHigh,
		Status:     models.ToolRunOK,
	}, nil
}

var _ ports.Tool = (*RetrieveContextTool)(nil)
