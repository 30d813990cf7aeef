// Package ingest normalizes documents, chunks them, routes each chunk to a
// namespace by source type and the ephemeral flag, embeds and writes to the
// vector store.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/longregen/argo/internal/application/memory"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

const (
	// target chunk size in characters; chunks split on paragraph
	// boundaries where possible
	chunkSize    = 1200
	chunkOverlap = 120
	maxChunks    = 64
)

// Manager implements ports.Ingestor.
type Manager struct {
	embedder ports.Embedder
	store    ports.VectorStore
	ids      ports.IDGenerator
}

func NewManager(embedder ports.Embedder, store ports.VectorStore, ids ports.IDGenerator) *Manager {
	return &Manager{embedder: embedder, store: store, ids: ids}
}

// Ingest writes one document and returns the number of chunks stored.
func (m *Manager) Ingest(ctx context.Context, doc *models.Document) (int, error) {
	text := normalize(doc.Text)
	if text == "" {
		return 0, fmt.Errorf("%w: document has no text", domain.ErrInvalidInput)
	}

	ns := models.NamespaceForSource(doc.SourceType, doc.Ephemeral)
	trust := trustFor(doc.SourceType, doc.Ephemeral)
	now := time.Now()

	meta := models.ChunkMetadata{
		URL:        doc.URL,
		SourceType: doc.SourceType,
		FetchedAt:  &now,
		Trust:      trust,
		Namespace:  ns,
		Title:      doc.Title,
	}

	chunks := splitChunks(text)
	for i, chunk := range chunks {
		embedding, err := m.embedder.Embed(ctx, chunk)
		if err != nil {
			return i, err
		}
		if err := m.store.Upsert(ctx, ns, m.chunkID(doc, i), embedding, chunk, meta); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

// chunkID is deterministic for URL-bearing documents so a re-ingested page
// overwrites its previous chunks instead of accumulating copies.
func (m *Manager) chunkID(doc *models.Document, index int) string {
	if key := memory.NormalizeURL(doc.URL); key != "" {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", key, index)))
		return "ach_" + hex.EncodeToString(sum[:12])
	}
	return m.ids.ChunkID()
}

// SweepWebCache deletes web_cache chunks past their TTL. Run periodically
// by the server and on CLI startup.
func (m *Manager) SweepWebCache(ctx context.Context) (int64, error) {
	policy := models.RetentionFor(models.NamespaceWebCache)
	cutoff := time.Now().AddDate(0, 0, -policy.TTLDays)
	return m.store.DeleteOlderThan(ctx, models.NamespaceWebCache, cutoff)
}

var blankLines = regexp.MustCompile(`\n{3,}`)

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// splitChunks cuts the text into roughly chunkSize pieces, preferring
// paragraph boundaries, with a small overlap for retrieval continuity.
func splitChunks(text string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) && len(chunks) < maxChunks {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		cut := end
		if idx := strings.LastIndex(text[start:end], "\n\n"); idx > chunkSize/2 {
			cut = start + idx
		} else if idx := strings.LastIndex(text[start:end], ". "); idx > chunkSize/2 {
			cut = start + idx + 1
		}

		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - chunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

func trustFor(sourceType string, ephemeral bool) models.TrustLevel {
	switch {
	case ephemeral:
		return models.TrustLow
	case sourceType == "note" || sourceType == "journal" || sourceType == "autobiographical" || sourceType == "profile_fact":
		return models.TrustHigh
	default:
		return models.TrustMedium
	}
}

var _ ports.Ingestor = (*Manager)(nil)
