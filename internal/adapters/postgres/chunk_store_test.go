package postgres

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/pashagolub/pgxmock/v4"
)

func TestChunkStore_Upsert_UnknownNamespace(t *testing.T) {
	store := &ChunkStore{
		BaseRepository: BaseRepository{pool: nil},
	}

	err := store.Upsert(context.Background(), "scratch", "ach_1", []float32{0.1}, "text", models.ChunkMetadata{})
	if !errors.Is(err, domain.ErrUnknownNamespace) {
		t.Errorf("expected ErrUnknownNamespace, got %v", err)
	}
}

func TestChunkStore_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &ChunkStore{
		BaseRepository: BaseRepository{pool: nil},
	}

	fetchedAt := time.Now()
	meta := models.ChunkMetadata{
		URL:        "https://example.com/article",
		SourceType: "web_article",
		FetchedAt:  &fetchedAt,
		Trust:      models.TrustMedium,
		Title:      "Example",
	}

	mock.ExpectExec("INSERT INTO argo_chunks").
		WithArgs("ach_1", "reading_history", "chunk text", pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	err = store.Upsert(ctx, models.NamespaceReadingHistory, "ach_1", []float32{0.1, 0.2}, "chunk text", meta)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestChunkStore_Query_ScoresFromDistance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &ChunkStore{
		BaseRepository: BaseRepository{pool: nil},
	}

	fetchedAt := time.Now().Add(-time.Hour)
	rows := pgxmock.NewRows([]string{"id", "text", "url", "source_type", "fetched_at", "trust", "title", "created_at", "distance"}).
		AddRow("ach_1", "close match", "https://example.com/a", "web_article", fetchedAt, "medium", "A", fetchedAt, 0.0).
		AddRow("ach_2", "far match", "https://example.com/b", "web_article", fetchedAt, "medium", "B", fetchedAt, 1.0)

	mock.ExpectQuery("SELECT id, text, url").
		WithArgs("web_cache", pgxmock.AnyArg(), 5).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	chunks, err := store.Query(ctx, models.NamespaceWebCache, []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if math.Abs(float64(chunks[0].Score)-1.0) > 1e-6 {
		t.Errorf("expected score 1.0 at distance 0, got %f", chunks[0].Score)
	}
	if math.Abs(float64(chunks[1].Score)-0.5) > 1e-6 {
		t.Errorf("expected score 0.5 at distance 1, got %f", chunks[1].Score)
	}
	if chunks[0].Metadata.Namespace != models.NamespaceWebCache {
		t.Errorf("expected web_cache namespace, got %s", chunks[0].Metadata.Namespace)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestChunkStore_DeleteOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &ChunkStore{
		BaseRepository: BaseRepository{pool: nil},
	}

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM argo_chunks").
		WithArgs("web_cache", cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	ctx := setupMockContext(mock)
	deleted, err := store.DeleteOlderThan(ctx, models.NamespaceWebCache, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
