package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/argo/internal/domain"
	"github.com/longregen/argo/internal/domain/models"
	"github.com/longregen/argo/internal/ports"
)

type MessageRepository struct {
	BaseRepository
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO argo_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.conn(ctx).Exec(ctx, query,
		message.ID,
		message.SessionID,
		string(message.Role),
		message.Content,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, role, content, created_at
		FROM argo_messages
		WHERE id = $1`

	m, err := scanMessage(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// GetLastBySession returns the most recent messages in chronological order.
func (r *MessageRepository) GetLastBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, role, content, created_at
		FROM (
			SELECT id, session_id, role, content, created_at
			FROM argo_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	return r.queryMessages(ctx, query, sessionID, limit)
}

func (r *MessageRepository) GetBySession(ctx context.Context, sessionID string) ([]*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, role, content, created_at
		FROM argo_messages
		WHERE session_id = $1
		ORDER BY created_at ASC`

	return r.queryMessages(ctx, query, sessionID)
}

func (r *MessageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM argo_messages WHERE session_id = $1`

	var count int
	if err := r.conn(ctx).QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	var role string
	if err := row.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = models.MessageRole(role)
	return &m, nil
}

var _ ports.MessageRepository = (*MessageRepository)(nil)
