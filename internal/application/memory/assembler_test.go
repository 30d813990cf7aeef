package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (f *fakeEmbedder) Dimensions() int { return 2 }

type fakeStore struct {
	chunks map[models.Namespace][]*models.Chunk
}

func (f *fakeStore) Upsert(context.Context, models.Namespace, string, []float32, string, models.ChunkMetadata) error {
	return nil
}

func (f *fakeStore) Query(_ context.Context, ns models.Namespace, _ []float32, topK int) ([]*models.Chunk, error) {
	chunks := f.chunks[ns]
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	// Copy so decay rescoring does not mutate fixtures across calls.
	out := make([]*models.Chunk, len(chunks))
	for i, c := range chunks {
		cc := *c
		out[i] = &cc
	}
	return out, nil
}

func (f *fakeStore) DeleteOlderThan(context.Context, models.Namespace, time.Time) (int64, error) {
	return 0, nil
}

type fakeSummaries struct {
	live *models.SessionSummary
}

func (f *fakeSummaries) GetLive(context.Context, string) (*models.SessionSummary, error) {
	return f.live, nil
}
func (f *fakeSummaries) ReplaceLive(context.Context, *models.SessionSummary, string) error {
	return nil
}
func (f *fakeSummaries) ListSnapshots(context.Context, string) ([]*models.SummarySnapshot, error) {
	return nil, nil
}

func chunkIn(ns models.Namespace, id, url, text string, score float32, fetchedAt time.Time) *models.Chunk {
	return &models.Chunk{
		ID:    id,
		Text:  text,
		Score: score,
		Metadata: models.ChunkMetadata{
			URL:       url,
			Namespace: ns,
			FetchedAt: &fetchedAt,
			Trust:     models.TrustMedium,
		},
	}
}

func TestAssemble_DedupPrefersWebCacheOverArchival(t *testing.T) {
	now := time.Now()
	store := &fakeStore{chunks: map[models.Namespace][]*models.Chunk{
		models.NamespaceReadingHistory: {
			chunkIn(models.NamespaceReadingHistory, "ach_rh", "https://example.com/article", "archived copy", 0.9, now.Add(-time.Hour)),
		},
		models.NamespaceWebCache: {
			chunkIn(models.NamespaceWebCache, "ach_wc", "https://example.com/article/", "fresh copy", 0.8, now.Add(-time.Hour)),
		},
	}}

	a := NewAssembler(&fakeEmbedder{}, store, &fakeSummaries{}, 5, 6)
	got, err := a.Assemble(context.Background(), Input{SessionID: "as_1", UserText: "article", ShortTermLen: 6})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.WebCache) != 1 || got.WebCache[0].ID != "ach_wc" {
		t.Fatalf("expected web_cache chunk kept, got %+v", got.WebCache)
	}
	if len(got.Archival) != 0 {
		t.Errorf("expected archival duplicate dropped, got %+v", got.Archival)
	}
	if strings.Count(got.Block, "example.com/article") != 1 {
		t.Errorf("expected exactly one occurrence of the URL in the block:\n%s", got.Block)
	}
}

func TestAssemble_ExpiredWebCacheNeverAppears(t *testing.T) {
	now := time.Now()
	store := &fakeStore{chunks: map[models.Namespace][]*models.Chunk{
		models.NamespaceWebCache: {
			chunkIn(models.NamespaceWebCache, "ach_old", "https://example.com/old", "stale", 0.99, now.Add(-8*24*time.Hour)),
			chunkIn(models.NamespaceWebCache, "ach_new", "https://example.com/new", "fresh", 0.5, now.Add(-time.Hour)),
		},
	}}

	a := NewAssembler(&fakeEmbedder{}, store, &fakeSummaries{}, 5, 6)
	got, err := a.Assemble(context.Background(), Input{SessionID: "as_1", UserText: "q", ShortTermLen: 6})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.WebCache) != 1 || got.WebCache[0].ID != "ach_new" {
		t.Fatalf("expected only the fresh chunk, got %+v", got.WebCache)
	}
}

func TestAssemble_DecayRescoring(t *testing.T) {
	now := time.Now()
	store := &fakeStore{chunks: map[models.Namespace][]*models.Chunk{
		models.NamespaceReadingHistory: {
			chunkIn(models.NamespaceReadingHistory, "ach_1", "https://example.com/a", "aged", 0.8, now.Add(-180*24*time.Hour)),
		},
	}}

	a := NewAssembler(&fakeEmbedder{}, store, &fakeSummaries{}, 5, 6)
	got, err := a.Assemble(context.Background(), Input{SessionID: "as_1", UserText: "q", ShortTermLen: 6})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Archival) != 1 {
		t.Fatalf("expected 1 archival chunk, got %d", len(got.Archival))
	}
	// One half-life elapsed: 0.8 -> 0.4.
	score := got.Archival[0].Score
	if score < 0.39 || score > 0.41 {
		t.Errorf("expected decayed score near 0.4, got %f", score)
	}
}

func TestAssemble_SummaryExcludedForShortBuffer(t *testing.T) {
	summaries := &fakeSummaries{live: &models.SessionSummary{
		ID: "asum_1", SessionID: "as_1", SummaryText: "We discussed Go releases.",
	}}
	store := &fakeStore{chunks: map[models.Namespace][]*models.Chunk{}}
	a := NewAssembler(&fakeEmbedder{}, store, summaries, 5, 6)

	got, err := a.Assemble(context.Background(), Input{SessionID: "as_1", UserText: "q", ShortTermLen: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "" || strings.Contains(got.Block, "session_summary") {
		t.Error("expected summary excluded when buffer < K/2")
	}

	got, err = a.Assemble(context.Background(), Input{SessionID: "as_1", UserText: "q", ShortTermLen: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary == "" || !strings.Contains(got.Block, "<session_summary>") {
		t.Error("expected summary included when buffer >= K/2")
	}
}

func TestAssemble_ToolResultsSuppressRetrievedDuplicates(t *testing.T) {
	now := time.Now()
	store := &fakeStore{chunks: map[models.Namespace][]*models.Chunk{
		models.NamespaceWebCache: {
			chunkIn(models.NamespaceWebCache, "ach_1", "https://example.com/page", "cached copy", 0.9, now.Add(-time.Hour)),
		},
	}}

	a := NewAssembler(&fakeEmbedder{}, store, &fakeSummaries{}, 5, 6)
	got, err := a.Assemble(context.Background(), Input{
		SessionID:    "as_1",
		UserText:     "q",
		ShortTermLen: 6,
		ToolResults: []*ports.ToolResult{
			{ToolName: "web_access", URL: "https://example.com/page/", Text: "just fetched", Status: models.ToolRunOK},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.WebCache) != 0 {
		t.Errorf("expected cached duplicate of a fresh tool result dropped, got %+v", got.WebCache)
	}
}

func TestAssemble_NoContentHashDuplicates(t *testing.T) {
	now := time.Now()
	sameText := "identical paragraph of knowledge"
	store := &fakeStore{chunks: map[models.Namespace][]*models.Chunk{
		models.NamespaceReadingHistory: {
			chunkIn(models.NamespaceReadingHistory, "ach_a", "", sameText, 0.9, now.Add(-time.Hour)),
		},
		models.NamespaceNotesJournal: {
			chunkIn(models.NamespaceNotesJournal, "ach_b", "", sameText, 0.8, now.Add(-time.Hour)),
		},
	}}

	a := NewAssembler(&fakeEmbedder{}, store, &fakeSummaries{}, 5, 6)
	got, err := a.Assemble(context.Background(), Input{SessionID: "as_1", UserText: "q", ShortTermLen: 6})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Archival) != 1 {
		t.Errorf("expected content-hash dedup within the layer, got %d chunks", len(got.Archival))
	}
}
