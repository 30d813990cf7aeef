// Package memory builds the layered context block for a turn: rolling
// summary, retrieved chunks from the archival namespaces and the web cache,
// deduplicated against each other and against the turn's tool results.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

// Layer priority for deduplication. When two candidates share an identity,
// the higher priority wins.
const (
	priorityToolResult = 5
	priorityWebCache   = 4
	priorityRAG        = 3
	priorityAutobio    = 2
	prioritySummary    = 1
)

var archivalNamespaces = []models.Namespace{
	models.NamespaceReadingHistory,
	models.NamespaceYoutubeHistory,
	models.NamespaceNotesJournal,
}

// Assembler builds the context block. It embeds the user text once and
// fans the vector out to each namespace.
type Assembler struct {
	embedder    ports.Embedder
	store       ports.VectorStore
	summaries   ports.SummaryRepository
	topPerLayer int
	shortTermK  int
}

func NewAssembler(embedder ports.Embedder, store ports.VectorStore, summaries ports.SummaryRepository, topPerLayer, shortTermK int) *Assembler {
	if topPerLayer <= 0 {
		topPerLayer = 5
	}
	if shortTermK <= 0 {
		shortTermK = 6
	}
	return &Assembler{
		embedder:    embedder,
		store:       store,
		summaries:   summaries,
		topPerLayer: topPerLayer,
		shortTermK:  shortTermK,
	}
}

// Input is what the assembler needs from the current turn.
type Input struct {
	SessionID    string
	UserText     string
	ShortTermLen int
	// ToolResults from earlier iterations of this turn. They are not
	// rendered here (PromptBuilder owns that) but they outrank every
	// retrieved chunk during deduplication.
	ToolResults []*ports.ToolResult
}

// Context is the assembled block plus the chunks that survived dedup.
type Context struct {
	Block    string
	Summary  string
	Autobio  []*models.Chunk
	Archival []*models.Chunk
	WebCache []*models.Chunk
}

type candidate struct {
	chunk    *models.Chunk
	priority int
}

// Assemble builds the context block for one iteration. Retrieval failures
// in a single layer degrade that layer to empty rather than failing the
// turn.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*Context, error) {
	out := &Context{}
	now := time.Now()

	if a.summaries != nil && in.ShortTermLen >= a.shortTermK/2 {
		if summary, err := a.summaries.GetLive(ctx, in.SessionID); err == nil && summary != nil {
			out.Summary = summary.SummaryText
		}
	}

	embedding, err := a.embedder.Embed(ctx, in.UserText)
	if err != nil {
		return nil, err
	}

	autobio := a.queryLayer(ctx, []models.Namespace{models.NamespaceAutobiographical}, embedding, now)
	archival := a.queryLayer(ctx, archivalNamespaces, embedding, now)
	webCache := a.queryLayer(ctx, []models.Namespace{models.NamespaceWebCache}, embedding, now)

	seen := make(map[string]int)
	for _, r := range in.ToolResults {
		if !r.OK() {
			continue
		}
		seen[DedupKey(r.URL, r.Text)] = priorityToolResult
	}
	if out.Summary != "" {
		// Reserve the summary's identity so chunks never shadow it,
		// then let higher layers evict it.
		seen[DedupKey("", out.Summary)] = prioritySummary
	}

	out.WebCache = dedupLayer(webCache, priorityWebCache, seen)
	out.Archival = dedupLayer(archival, priorityRAG, seen)
	out.Autobio = dedupLayer(autobio, priorityAutobio, seen)

	if summaryKey := DedupKey("", out.Summary); out.Summary != "" && seen[summaryKey] > prioritySummary {
		out.Summary = ""
	}

	out.Block = render(out)
	return out, nil
}

// queryLayer retrieves, decays and ranks chunks across namespaces,
// keeping the overall top-M.
func (a *Assembler) queryLayer(ctx context.Context, namespaces []models.Namespace, embedding []float32, now time.Time) []*models.Chunk {
	var merged []*models.Chunk
	for _, ns := range namespaces {
		chunks, err := a.store.Query(ctx, ns, embedding, a.topPerLayer)
		if err != nil {
			continue
		}
		for _, c := range chunks {
			ref := models.DecayReference(c.Metadata, now)
			score, alive := models.DecayedScore(c.Score, c.Metadata.Namespace, ref, now)
			if !alive {
				continue
			}
			c.Score = score
			merged = append(merged, c)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > a.topPerLayer {
		merged = merged[:a.topPerLayer]
	}
	return merged
}

// dedupLayer keeps chunks whose identity has not been claimed by a
// higher-priority layer, claiming it for this layer as it goes.
func dedupLayer(chunks []*models.Chunk, priority int, seen map[string]int) []*models.Chunk {
	var kept []*models.Chunk
	for _, c := range chunks {
		key := DedupKey(c.Metadata.URL, c.Text)
		if prev, ok := seen[key]; ok && prev >= priority {
			continue
		}
		seen[key] = priority
		kept = append(kept, c)
	}
	return kept
}

func render(c *Context) string {
	var sb strings.Builder

	if c.Summary != "" {
		sb.WriteString("<session_summary>\n")
		sb.WriteString(c.Summary)
		sb.WriteString("\n</session_summary>\n")
	}
	writeChunkBlock(&sb, "autobiographical", c.Autobio)
	writeChunkBlock(&sb, "knowledge_base", c.Archival)
	writeChunkBlock(&sb, "web_cache", c.WebCache)

	return strings.TrimSpace(sb.String())
}

func writeChunkBlock(sb *strings.Builder, tag string, chunks []*models.Chunk) {
	if len(chunks) == 0 {
		return
	}
	fmt.Fprintf(sb, "<%s>\n", tag)
	for _, c := range chunks {
		fmt.Fprintf(sb, "<chunk id=%q trust=%q source_type=%q url=%q>\n", c.ID, c.Metadata.Trust, c.Metadata.SourceType, c.Metadata.URL)
		sb.WriteString(strings.TrimSpace(c.Text))
		sb.WriteString("\n</chunk>\n")
	}
	fmt.Fprintf(sb, "</%s>\n", tag)
}
