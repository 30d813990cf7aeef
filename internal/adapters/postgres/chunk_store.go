package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/argo/internal/adapters/metrics"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
	"github.com/pgvector/pgvector-go"
)

// ChunkStore is the pgvector-backed vector store. Each chunk lives in
// exactly one namespace; similarity uses cosine distance converted to a
// score with 1/(1+distance), so higher is better.
type ChunkStore struct {
	BaseRepository
}

func NewChunkStore(pool *pgxpool.Pool) *ChunkStore {
	return &ChunkStore{BaseRepository: NewBaseRepository(pool)}
}

func (s *ChunkStore) Upsert(ctx context.Context, ns models.Namespace, id string, embedding []float32, text string, meta models.ChunkMetadata) error {
	if !models.IsKnownNamespace(string(ns)) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownNamespace, ns)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO argo_chunks (
			id, namespace, text, embedding, url, source_type, fetched_at, trust, title, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			url = EXCLUDED.url,
			source_type = EXCLUDED.source_type,
			fetched_at = EXCLUDED.fetched_at,
			trust = EXCLUDED.trust,
			title = EXCLUDED.title`

	_, err := s.conn(ctx).Exec(ctx, query,
		id,
		string(ns),
		text,
		pgvector.NewVector(embedding),
		nullString(meta.URL),
		nullString(meta.SourceType),
		nullTime(meta.FetchedAt),
		nullString(string(meta.Trust)),
		nullString(meta.Title),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert chunk: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *ChunkStore) Query(ctx context.Context, ns models.Namespace, embedding []float32, topK int) ([]*models.Chunk, error) {
	if !models.IsKnownNamespace(string(ns)) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNamespace, ns)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, text, url, source_type, fetched_at, trust, title, created_at,
			   embedding <=> $2 AS distance
		FROM argo_chunks
		WHERE namespace = $1
		ORDER BY embedding <=> $2
		LIMIT $3`

	rows, err := s.conn(ctx).Query(ctx, query, string(ns), pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var c models.Chunk
		var url, sourceType, trust, title sql.NullString
		var fetchedAt sql.NullTime
		var createdAt time.Time
		var distance float64
		if err := rows.Scan(&c.ID, &c.Text, &url, &sourceType, &fetchedAt, &trust, &title, &createdAt, &distance); err != nil {
			return nil, fmt.Errorf("%w: failed to scan chunk: %v", domain.ErrStorage, err)
		}
		c.Score = float32(1.0 / (1.0 + distance))
		c.Metadata = models.ChunkMetadata{
			URL:        getString(url),
			SourceType: getString(sourceType),
			FetchedAt:  getTimePtr(fetchedAt),
			Trust:      models.TrustLevel(getString(trust)),
			Namespace:  ns,
			Title:      getString(title),
		}
		if c.Metadata.FetchedAt == nil {
			c.Metadata.FetchedAt = &createdAt
		}
		chunks = append(chunks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read chunks: %v", domain.ErrStorage, err)
	}

	metrics.ChunksRetrieved.WithLabelValues(string(ns)).Add(float64(len(chunks)))
	return chunks, nil
}

// DeleteOlderThan removes expired chunks, keyed on fetched_at when present
// and created_at otherwise. Used by the web_cache TTL sweep.
func (s *ChunkStore) DeleteOlderThan(ctx context.Context, ns models.Namespace, cutoff time.Time) (int64, error) {
	if !models.IsKnownNamespace(string(ns)) {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownNamespace, ns)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		DELETE FROM argo_chunks
		WHERE namespace = $1 AND COALESCE(fetched_at, created_at) < $2`

	tag, err := s.conn(ctx).Exec(ctx, query, string(ns), cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete chunks: %v", domain.ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

var _ ports.VectorStore = (*ChunkStore)(nil)
