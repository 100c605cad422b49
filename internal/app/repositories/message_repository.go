package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/dberrors"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var messageColumns = []string{"id", "chat_id", "sender_id", "content", "type", "is_read", "read_at", "reply_to", "created_at", "updated_at"}

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID,
		&m.ChatID,
		&m.SenderID,
		&m.Content,
		&m.Type,
		&m.IsRead,
		&m.ReadAt,
		&m.ReplyTo,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMessage inserts a new message into the database
func (r *MessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, content, type, reply_to)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING is_read, created_at, updated_at
	`,
		message.ID,
		message.ChatID,
		message.SenderID,
		message.Content,
		message.Type,
		message.ReplyTo,
	).Scan(&message.IsRead, &message.CreatedAt, &message.UpdatedAt)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return fmt.Errorf("chat %s: %w", message.ChatID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("error creating message: %w", err)
	}

	return nil
}

// GetMessageByID retrieves a message by its ID
func (r *MessageRepository) GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	sql, args, err := squirrel.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"id": messageID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	message, err := scanMessage(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", messageID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving message: %w", err)
	}
	return message, nil
}

// ListMessages pages through the messages of a chat
func (r *MessageRepository) ListMessages(ctx context.Context, chatID uuid.UUID, offset uint64, limit int, newestFirst bool) ([]*models.Message, error) {
	order := "created_at ASC, id ASC"
	if newestFirst {
		order = "created_at DESC, id DESC"
	}

	builder := squirrel.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"chat_id": chatID}).
		OrderBy(order).
		Offset(offset).
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// GetLastMessage returns the newest message of a chat or nil
func (r *MessageRepository) GetLastMessage(ctx context.Context, chatID uuid.UUID) (*models.Message, error) {
	messages, err := r.ListMessages(ctx, chatID, 0, 1, true)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

// MarkMessageRead marks one message of the chat as read
func (r *MessageRepository) MarkMessageRead(ctx context.Context, chatID, messageID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $3, updated_at = $3
		WHERE id = $1 AND chat_id = $2 AND is_read = FALSE
	`, messageID, chatID, at)
	if err != nil {
		return 0, fmt.Errorf("error marking message read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkChatRead marks every unread message from other senders as read
func (r *MessageRepository) MarkChatRead(ctx context.Context, chatID, readerID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $3, updated_at = $3
		WHERE chat_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`, chatID, readerID, at)
	if err != nil {
		return 0, fmt.Errorf("error marking chat read: %w", err)
	}
	return tag.RowsAffected(), nil
}
