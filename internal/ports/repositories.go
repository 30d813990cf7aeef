package ports

import (
	"context"
	"time"

	"github.com/longregen/argo/internal/domain/models"
)

// SessionRepository manages conversation sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Touch(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Session, error)
}

// MessageRepository manages the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	GetLastBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
	GetBySession(ctx context.Context, sessionID string) ([]*models.Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// SummaryRepository manages rolling summaries and their snapshots. The
// replacement of the live summary and the archival of the previous one
// happen in a single transaction.
type SummaryRepository interface {
	GetLive(ctx context.Context, sessionID string) (*models.SessionSummary, error)
	// ReplaceLive atomically writes the new live summary, archiving the
	// previous live row (if any) as a snapshot.
	ReplaceLive(ctx context.Context, summary *models.SessionSummary, snapshotID string) error
	ListSnapshots(ctx context.Context, sessionID string) ([]*models.SummarySnapshot, error)
}

// FactRepository manages extracted profile facts. Deactivation is soft.
type FactRepository interface {
	Create(ctx context.Context, fact *models.ProfileFact) error
	ListActive(ctx context.Context, limit int) ([]*models.ProfileFact, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ToolRunRepository is the audit log for tool executions.
type ToolRunRepository interface {
	Create(ctx context.Context, run *models.ToolRun) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.ToolRun, error)
	StatsBySession(ctx context.Context, sessionID string) (*models.ToolStats, error)
}

// VectorStore is the namespaced similarity-search backend. Distance is
// already converted to similarity by the implementation, so higher scores
// are better. Concurrent reads are permitted; writes are serialized per
// namespace by the implementation.
type VectorStore interface {
	Upsert(ctx context.Context, ns models.Namespace, id string, embedding []float32, text string, meta models.ChunkMetadata) error
	Query(ctx context.Context, ns models.Namespace, embedding []float32, topK int) ([]*models.Chunk, error)
	DeleteOlderThan(ctx context.Context, ns models.Namespace, cutoff time.Time) (int64, error)
}

// TransactionManager runs a function inside a database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator produces prefixed identifiers for each entity kind.
type IDGenerator interface {
	SessionID() string
	MessageID() string
	SummaryID() string
	SnapshotID() string
	FactID() string
	ToolRunID() string
	ChunkID() string
}
