package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

type ToolRunRepository struct {
	BaseRepository
}

func NewToolRunRepository(pool *pgxpool.Pool) *ToolRunRepository {
	return &ToolRunRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *ToolRunRepository) Create(ctx context.Context, run *models.ToolRun) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var metadata []byte
	var err error
	if run.Metadata != nil {
		metadata, err = json.Marshal(run.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal tool run metadata: %w", err)
		}
	}

	query := `
		INSERT INTO argo_tool_runs (
			id, session_id, tool_name, input, output, metadata,
			status, error_type, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.conn(ctx).Exec(ctx, query,
		run.ID,
		run.SessionID,
		run.ToolName,
		run.Input,
		nullString(run.Output),
		metadata,
		string(run.Status),
		nullString(run.ErrorType),
		nullString(run.ErrorMessage),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tool run: %w", err)
	}
	return nil
}

func (r *ToolRunRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.ToolRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, tool_name, input, output, metadata,
			   status, error_type, error_message, created_at
		FROM argo_tool_runs
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.conn(ctx).Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ToolRun
	for rows.Next() {
		var t models.ToolRun
		var output, errorType, errorMessage sql.NullString
		var metadata []byte
		var status string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.ToolName, &t.Input, &output, &metadata,
			&status, &errorType, &errorMessage, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tool run: %w", err)
		}
		t.Output = getString(output)
		t.Status = models.ToolRunStatus(status)
		t.ErrorType = getString(errorType)
		t.ErrorMessage = getString(errorMessage)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool run metadata: %w", err)
			}
		}
		runs = append(runs, &t)
	}
	return runs, rows.Err()
}

func (r *ToolRunRepository) StatsBySession(ctx context.Context, sessionID string) (*models.ToolStats, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT tool_name,
			   COUNT(*) AS runs,
			   COUNT(*) FILTER (WHERE status = 'error') AS errors
		FROM argo_tool_runs
		WHERE session_id = $1
		GROUP BY tool_name
		ORDER BY tool_name`

	rows, err := r.conn(ctx).Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool stats: %w", err)
	}
	defer rows.Close()

	stats := &models.ToolStats{
		SessionID: sessionID,
		ByTool:    make(map[string]int),
	}
	for rows.Next() {
		var tool string
		var runs, errors int
		if err := rows.Scan(&tool, &runs, &errors); err != nil {
			return nil, fmt.Errorf("failed to scan tool stats: %w", err)
		}
		stats.ByTool[tool] = runs
		stats.TotalRuns += runs
		stats.Errors += errors
	}
	return stats, rows.Err()
}

var _ ports.ToolRunRepository = (*ToolRunRepository)(nil)
