package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var chatColumns = []string{"c.id", "c.name", "c.is_group", "c.created_by", "c.last_message_at", "c.created_at", "c.updated_at"}

// ChatRepository handles database operations for chats and their participants
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func scanChat(row pgx.Row) (*models.Chat, error) {
	var chat models.Chat
	err := row.Scan(
		&chat.ID,
		&chat.Name,
		&chat.IsGroup,
		&chat.CreatedBy,
		&chat.LastMessageAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) queryChats(ctx context.Context, builder squirrel.SelectBuilder) ([]*models.Chat, error) {
	sql, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	chats := make([]*models.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat rows: %w", err)
	}

	return chats, nil
}

// GetChatByID retrieves a chat by its ID
func (r *ChatRepository) GetChatByID(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	sql, args, err := squirrel.Select(chatColumns...).
		From("chats c").
		Where(squirrel.Eq{"c.id": chatID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	chat, err := scanChat(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat %s: %w", chatID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving chat: %w", err)
	}
	return chat, nil
}

// TouchLastMessageAt bumps the activity timestamp of a chat
func (r *ChatRepository) TouchLastMessageAt(ctx context.Context, chatID uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE chats SET last_message_at = $2, updated_at = $2 WHERE id = $1`,
		chatID, at)
	if err != nil {
		return fmt.Errorf("error updating chat activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", chatID, apperrors.ErrNotFound)
	}
	return nil
}

// ListChatsForPrincipal returns the principal's chats ordered by last activity
func (r *ChatRepository) ListChatsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]*models.Chat, error) {
	return r.queryChats(ctx, squirrel.Select(chatColumns...).
		From("chats c").
		Join("chat_participants cp ON cp.chat_id = c.id").
		Where(squirrel.Eq{"cp.user_id": principalID}).
		OrderBy("c.last_message_at DESC"))
}

// ListAllChats pages through every chat for administrators
func (r *ChatRepository) ListAllChats(ctx context.Context, offset uint64, limit int) ([]*models.Chat, error) {
	return r.queryChats(ctx, squirrel.Select(chatColumns...).
		From("chats c").
		OrderBy("c.last_message_at DESC").
		Offset(offset).
		Limit(uint64(limit)))
}

// FindSharedChat returns a chat in which both principals participate
func (r *ChatRepository) FindSharedChat(ctx context.Context, a, b uuid.UUID) (*models.Chat, error) {
	chats, err := r.queryChats(ctx, squirrel.Select(chatColumns...).
		From("chats c").
		Join("chat_participants pa ON pa.chat_id = c.id").
		Join("chat_participants pb ON pb.chat_id = c.id").
		Where(squirrel.Eq{"pa.user_id": a, "pb.user_id": b}).
		OrderBy("c.created_at ASC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, nil
	}
	return chats[0], nil
}

// GetParticipant returns the membership row of a principal, or nil when absent
func (r *ChatRepository) GetParticipant(ctx context.Context, chatID, principalID uuid.UUID) (*models.ChatParticipant, error) {
	var p models.ChatParticipant
	err := r.db.QueryRow(ctx, `
		SELECT id, chat_id, user_id, role, joined_at
		FROM chat_participants
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, principalID).Scan(&p.ID, &p.ChatID, &p.UserID, &p.Role, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking chat membership: %w", err)
	}
	return &p, nil
}

// ListParticipants returns the members of a chat in join order
func (r *ChatRepository) ListParticipants(ctx context.Context, chatID uuid.UUID) ([]*models.ChatParticipant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, chat_id, user_id, role, joined_at
		FROM chat_participants
		WHERE chat_id = $1
		ORDER BY joined_at ASC, id ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.ChatParticipant, 0)
	for rows.Next() {
		var p models.ChatParticipant
		if err := rows.Scan(&p.ID, &p.ChatID, &p.UserID, &p.Role, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning participant row: %w", err)
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

// ListPeerIDs returns the distinct principals sharing at least one chat with principalID
func (r *ChatRepository) ListPeerIDs(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error) {
	sql, args, err := squirrel.Select("DISTINCT peer.user_id").
		From("chat_participants self").
		Join("chat_participants peer ON peer.chat_id = self.chat_id").
		Where(squirrel.Eq{"self.user_id": principalID}).
		Where(squirrel.NotEq{"peer.user_id": principalID}).
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

	peers := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning peer row: %w", err)
		}
		peers = append(peers, id)
	}
	return peers, rows.Err()
}
