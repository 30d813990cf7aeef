package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

type SummaryRepository struct {
	BaseRepository
	txManager ports.TransactionManager
}

func NewSummaryRepository(pool *pgxpool.Pool, txManager ports.TransactionManager) *SummaryRepository {
	return &SummaryRepository{
		BaseRepository: NewBaseRepository(pool),
		txManager:      txManager,
	}
}

func (r *SummaryRepository) GetLive(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, summary_text, message_count_at_update, updated_at
		FROM argo_session_summaries
		WHERE session_id = $1`

	var s models.SessionSummary
	err := r.conn(ctx).QueryRow(ctx, query, sessionID).Scan(
		&s.ID, &s.SessionID, &s.SummaryText, &s.MessageCountAtUpdate, &s.UpdatedAt,
	)
	if err != nil {
		if checkNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get live summary: %w", err)
	}
	return &s, nil
}

// ReplaceLive writes the new live summary in a single transaction, archiving
// the previous live row (if any) as a snapshot under snapshotID. Readers see
// either the old summary or the new one, never an intermediate state.
func (r *SummaryRepository) ReplaceLive(ctx context.Context, summary *models.SessionSummary, snapshotID string) error {
	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		archive := `
			INSERT INTO argo_summary_snapshots (id, session_id, summary_text, message_count_at_update, created_at)
			SELECT $1, session_id, summary_text, message_count_at_update, updated_at
			FROM argo_session_summaries
			WHERE session_id = $2`

		if _, err := r.conn(ctx).Exec(ctx, archive, snapshotID, summary.SessionID); err != nil {
			return fmt.Errorf("%w: failed to archive summary: %v", domain.ErrStorage, err)
		}

		upsert := `
			INSERT INTO argo_session_summaries (id, session_id, summary_text, message_count_at_update, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (session_id) DO UPDATE SET
				id = EXCLUDED.id,
				summary_text = EXCLUDED.summary_text,
				message_count_at_update = EXCLUDED.message_count_at_update,
				updated_at = EXCLUDED.updated_at`

		_, err := r.conn(ctx).Exec(ctx, upsert,
			summary.ID,
			summary.SessionID,
			summary.SummaryText,
			summary.MessageCountAtUpdate,
			summary.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to replace summary: %v", domain.ErrStorage, err)
		}
		return nil
	})
}

func (r *SummaryRepository) ListSnapshots(ctx context.Context, sessionID string) ([]*models.SummarySnapshot, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, summary_text, message_count_at_update, created_at
		FROM argo_summary_snapshots
		WHERE session_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.SummarySnapshot
	for rows.Next() {
		var s models.SummarySnapshot
		if err := rows.Scan(&s.ID, &s.SessionID, &s.SummaryText, &s.MessageCountAtUpdate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

var _ ports.SummaryRepository = (*SummaryRepository)(nil)
