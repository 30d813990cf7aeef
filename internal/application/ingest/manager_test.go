package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/longregen/argo/internal/domain/models"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (f *fakeEmbedder) Dimensions() int { return 2 }

type upsertCall struct {
	ns   models.Namespace
	id   string
	text string
	meta models.ChunkMetadata
}

type recordingStore struct {
	calls   []upsertCall
	deleted int64
}

func (r *recordingStore) Upsert(_ context.Context, ns models.Namespace, id string, _ []float32, text string, meta models.ChunkMetadata) error {
	r.calls = append(r.calls, upsertCall{ns, id, text, meta})
	return nil
}

func (r *recordingStore) Query(context.Context, models.Namespace, []float32, int) ([]*models.Chunk, error) {
	return nil, nil
}

func (r *recordingStore) DeleteOlderThan(context.Context, models.Namespace, time.Time) (int64, error) {
	return r.deleted, nil
}

type seqIDs struct{ n int }

func (s *seqIDs) next(p string) string { s.n++; return p }
func (s *seqIDs) SessionID() string    { return s.next("as_x") }
func (s *seqIDs) MessageID() string    { return s.next("am_x") }
func (s *seqIDs) SummaryID() string    { return s.next("asum_x") }
func (s *seqIDs) SnapshotID() string   { return s.next("asnap_x") }
func (s *seqIDs) FactID() string       { return s.next("af_x") }
func (s *seqIDs) ToolRunID() string    { return s.next("atr_x") }
func (s *seqIDs) ChunkID() string      { return s.next("ach_x") }

func TestIngest_EphemeralRoutesToWebCache(t *testing.T) {
	store := &recordingStore{}
	m := NewManager(&fakeEmbedder{}, store, &seqIDs{})

	n, err := m.Ingest(context.Background(), &models.Document{
		Text:       "article body",
		SourceType: "web_article",
		URL:        "https://example.com/a",
		Ephemeral:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(store.calls) != 1 {
		t.Fatalf("expected 1 chunk, got %d", n)
	}
	if store.calls[0].ns != models.NamespaceWebCache {
		t.Errorf("expected web_cache, got %s", store.calls[0].ns)
	}
	if store.calls[0].meta.Trust != models.TrustLow {
		t.Errorf("expected low trust for ephemeral content, got %s", store.calls[0].meta.Trust)
	}
}

func TestIngest_SourceTypeRouting(t *testing.T) {
	tests := []struct {
		sourceType string
		want       models.Namespace
	}{
		{"web_article", models.NamespaceReadingHistory},
		{"note", models.NamespaceNotesJournal},
		{"journal", models.NamespaceNotesJournal},
		{"autobiographical", models.NamespaceAutobiographical},
		{"youtube_watch", models.NamespaceYoutubeHistory},
	}
	for _, tt := range tests {
		store := &recordingStore{}
		m := NewManager(&fakeEmbedder{}, store, &seqIDs{})
		if _, err := m.Ingest(context.Background(), &models.Document{Text: "x", SourceType: tt.sourceType}); err != nil {
			t.Fatal(err)
		}
		if store.calls[0].ns != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.sourceType, tt.want, store.calls[0].ns)
		}
	}
}

func TestIngest_ChunksLongDocuments(t *testing.T) {
	store := &recordingStore{}
	m := NewManager(&fakeEmbedder{}, store, &seqIDs{})

	paragraph := strings.Repeat("Some sentence about a topic. ", 20)
	text := strings.Join([]string{paragraph, paragraph, paragraph, paragraph}, "\n\n")

	n, err := m.Ingest(context.Background(), &models.Document{Text: text, SourceType: "web_article"})
	if err != nil {
		t.Fatal(err)
	}
	if n < 2 {
		t.Fatalf("expected multiple chunks for %d chars, got %d", len(text), n)
	}
	for _, call := range store.calls {
		if len(call.text) > chunkSize+chunkOverlap {
			t.Errorf("chunk exceeds size bound: %d chars", len(call.text))
		}
	}
}

func TestIngest_DeterministicIDsForSameURL(t *testing.T) {
	storeA := &recordingStore{}
	m := NewManager(&fakeEmbedder{}, storeA, &seqIDs{})

	doc := &models.Document{Text: "body", SourceType: "web_article", URL: "https://example.com/a?utm_source=x"}
	if _, err := m.Ingest(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	doc2 := &models.Document{Text: "updated body", SourceType: "web_article", URL: "https://EXAMPLE.com/a"}
	if _, err := m.Ingest(context.Background(), doc2); err != nil {
		t.Fatal(err)
	}

	if storeA.calls[0].id != storeA.calls[1].id {
		t.Errorf("expected re-ingest of the same URL to reuse chunk IDs: %s vs %s", storeA.calls[0].id, storeA.calls[1].id)
	}
}

func TestIngest_EmptyDocument(t *testing.T) {
	m := NewManager(&fakeEmbedder{}, &recordingStore{}, &seqIDs{})
	if _, err := m.Ingest(context.Background(), &models.Document{Text: "   \n "}); err == nil {
		t.Error("expected error for empty document")
	}
}
