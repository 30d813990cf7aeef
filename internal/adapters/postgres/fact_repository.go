package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

type FactRepository struct {
	BaseRepository
}

func NewFactRepository(pool *pgxpool.Pool) *FactRepository {
	return &FactRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *FactRepository) Create(ctx context.Context, fact *models.ProfileFact) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO argo_profile_facts (id, fact_type, text, source, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.conn(ctx).Exec(ctx, query,
		fact.ID,
		fact.FactType,
		fact.Text,
		nullString(fact.Source),
		fact.Active,
		fact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile fact: %w", err)
	}
	return nil
}

func (r *FactRepository) ListActive(ctx context.Context, limit int) ([]*models.ProfileFact, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, fact_type, text, source, active, created_at
		FROM argo_profile_facts
		WHERE active = TRUE
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.conn(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile facts: %w", err)
	}
	defer rows.Close()

	var facts []*models.ProfileFact
	for rows.Next() {
		var f models.ProfileFact
		var source sql.NullString
		if err := rows.Scan(&f.ID, &f.FactType, &f.Text, &source, &f.Active, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile fact: %w", err)
		}
		f.Source = getString(source)
		facts = append(facts, &f)
	}
	return facts, rows.Err()
}

func (r *FactRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE argo_profile_facts SET active = $2 WHERE id = $1`

	tag, err := r.conn(ctx).Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update profile fact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFactNotFound
	}
	return nil
}

var _ ports.FactRepository = (*FactRepository)(nil)
