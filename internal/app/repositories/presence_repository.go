package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PresenceRepository handles database operations for online statuses
type PresenceRepository struct {
	db *pgxpool.Pool
}

// NewPresenceRepository creates a new PresenceRepository
func NewPresenceRepository(db *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// GetOnlineStatus returns the stored status of a principal or nil
func (r *PresenceRepository) GetOnlineStatus(ctx context.Context, principalID uuid.UUID) (*models.OnlineStatus, error) {
	var s models.OnlineStatus
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, status, last_seen, socket_id
		FROM online_statuses
		WHERE user_id = $1
	`, principalID).Scan(&s.ID, &s.UserID, &s.Status, &s.LastSeen, &s.SocketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving online status: %w", err)
	}
	return &s, nil
}

// UpsertOnlineStatus writes the latest status of a principal
func (r *PresenceRepository) UpsertOnlineStatus(ctx context.Context, status *models.OnlineStatus) error {
	if status.ID == uuid.Nil {
		status.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO online_statuses (id, user_id, status, last_seen, socket_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET status = EXCLUDED.status, last_seen = EXCLUDED.last_seen, socket_id = EXCLUDED.socket_id
		RETURNING id
	`, status.ID, status.UserID, status.Status, status.LastSeen, status.SocketID).Scan(&status.ID)
	if err != nil {
		return fmt.Errorf("error upserting online status: %w", err)
	}
	return nil
}

// ListOnlineStatuses returns the stored statuses for the given principals
func (r *PresenceRepository) ListOnlineStatuses(ctx context.Context, principalIDs []uuid.UUID) ([]*models.OnlineStatus, error) {
	if len(principalIDs) == 0 {
		return []*models.OnlineStatus{}, nil
	}

	ids := make([]string, len(principalIDs))
	for i, id := range principalIDs {
		ids[i] = id.String()
	}

	sql, args, err := squirrel.Select("id", "user_id", "status", "last_seen", "socket_id").
		From("online_statuses").
		Where(squirrel.Eq{"user_id": ids}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	statuses := make([]*models.OnlineStatus, 0, len(principalIDs))
	for rows.Next() {
		var s models.OnlineStatus
		if err := rows.Scan(&s.ID, &s.UserID, &s.Status, &s.LastSeen, &s.SocketID); err != nil {
			return nil, fmt.Errorf("error scanning online status row: %w", err)
		}
		statuses = append(statuses, &s)
	}
	return statuses, rows.Err()
}

// ResetOnlineStatuses marks every row that is not offline as offline
func (r *PresenceRepository) ResetOnlineStatuses(ctx context.Context, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE online_statuses SET status = 'offline', last_seen = $1, socket_id = NULL
		WHERE status <> 'offline'
	`, at)
	if err != nil {
		return 0, fmt.Errorf("error resetting online statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}
