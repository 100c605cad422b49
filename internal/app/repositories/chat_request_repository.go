package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/db"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/dberrors"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pendingPairConstraint       = "uq_chat_requests_pending_pair"
	participantUniqueConstraint = "uq_chat_participants_chat_user"
)

var chatRequestColumns = []string{"id", "requester_id", "receiver_id", "status", "message", "responded_at", "created_at", "updated_at"}

// ChatRequestRepository handles database operations for chat requests
type ChatRequestRepository struct {
	db *pgxpool.Pool
}

// NewChatRequestRepository creates a new ChatRequestRepository
func NewChatRequestRepository(db *pgxpool.Pool) *ChatRequestRepository {
	return &ChatRequestRepository{db: db}
}

func scanChatRequest(row pgx.Row) (*models.ChatRequest, error) {
	var req models.ChatRequest
	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.ReceiverID,
		&req.Status,
		&req.Message,
		&req.RespondedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateChatRequest inserts a pending request. The partial unique index on
// (requester_id, receiver_id) WHERE status = 'pending' settles concurrent senders.
func (r *ChatRequestRepository) CreateChatRequest(ctx context.Context, request *models.ChatRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.Status == "" {
		request.Status = models.ChatRequestPending
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO chat_requests (id, requester_id, receiver_id, status, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`,
		request.ID,
		request.RequesterID,
		request.ReceiverID,
		request.Status,
		request.Message,
	).Scan(&request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, pendingPairConstraint) {
			return apperrors.NewDuplicateRequestError()
		}
		return fmt.Errorf("error creating chat request: %w", err)
	}
	return nil
}

// GetChatRequestByID retrieves a chat request by its ID
func (r *ChatRequestRepository) GetChatRequestByID(ctx context.Context, requestID uuid.UUID) (*models.ChatRequest, error) {
	sql, args, err := squirrel.Select(chatRequestColumns...).
		From("chat_requests").
		Where(squirrel.Eq{"id": requestID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	req, err := scanChatRequest(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat request %s: %w", requestID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving chat request: %w", err)
	}
	return req, nil
}

// HasPendingRequest reports whether requester already has a pending request to receiver
func (r *ChatRequestRepository) HasPendingRequest(ctx context.Context, requesterID, receiverID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM chat_requests
			WHERE requester_id = $1 AND receiver_id = $2 AND status = 'pending'
		)
	`, requesterID, receiverID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking pending request: %w", err)
	}
	return exists, nil
}

func (r *ChatRequestRepository) listRequests(ctx context.Context, column string, principalID uuid.UUID) ([]*models.ChatRequest, error) {
	sql, args, err := squirrel.Select(chatRequestColumns...).
		From("chat_requests").
		Where(squirrel.Eq{column: principalID}).
		OrderBy("created_at DESC").
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

	requests := make([]*models.ChatRequest, 0)
	for rows.Next() {
		req, err := scanChatRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning chat request row: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ListSentRequests returns requests created by the principal, newest first
func (r *ChatRequestRepository) ListSentRequests(ctx context.Context, principalID uuid.UUID) ([]*models.ChatRequest, error) {
	return r.listRequests(ctx, "requester_id", principalID)
}

// ListReceivedRequests returns requests addressed to the principal, newest first
func (r *ChatRequestRepository) ListReceivedRequests(ctx context.Context, principalID uuid.UUID) ([]*models.ChatRequest, error) {
	return r.listRequests(ctx, "receiver_id", principalID)
}

// transition moves a pending request to status inside tx and returns its pair.
// Zero affected rows means another responder got there first.
func transition(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, status models.ChatRequestStatus, at time.Time) (requesterID, receiverID uuid.UUID, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE chat_requests SET status = $2, responded_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING requester_id, receiver_id
	`, requestID, status, at).Scan(&requesterID, &receiverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, uuid.Nil, apperrors.NewAlreadyRespondedError()
		}
		return uuid.Nil, uuid.Nil, fmt.Errorf("error updating chat request: %w", err)
	}
	return requesterID, receiverID, nil
}

// pairKey orders the two ids so both directions of a pair share one lock
func pairKey(a, b uuid.UUID) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return a.String() + ":" + b.String()
}

// ensureNotConnected serializes acceptances for the pair and fails when the
// two principals already share a chat
func ensureNotConnected(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairKey(a, b)); err != nil {
		return fmt.Errorf("error locking chat pair: %w", err)
	}
	var connected bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_participants pa
			JOIN chat_participants pb ON pb.chat_id = pa.chat_id
			WHERE pa.user_id = $1 AND pb.user_id = $2
		)
	`, a, b).Scan(&connected)
	if err != nil {
		return fmt.Errorf("error checking shared chat: %w", err)
	}
	if connected {
		return apperrors.NewAlreadyConnectedError()
	}
	return nil
}

// AcceptChatRequest accepts the request and creates the chat with its participants atomically.
// It fails with apperrors.ErrAlreadyConnected, writing nothing, when the pair already shares a chat.
func (r *ChatRequestRepository) AcceptChatRequest(ctx context.Context, requestID uuid.UUID, respondedAt time.Time, chat *models.Chat, participants []*models.ChatParticipant) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		requesterID, receiverID, err := transition(ctx, tx, requestID, models.ChatRequestAccepted, respondedAt)
		if err != nil {
			return err
		}
		if err := ensureNotConnected(ctx, tx, requesterID, receiverID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO chats (id, name, is_group, created_by, last_message_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, chat.ID, chat.Name, chat.IsGroup, chat.CreatedBy, chat.LastMessageAt, chat.CreatedAt); err != nil {
			return fmt.Errorf("error creating chat: %w", err)
		}

		batch := &pgx.Batch{}
		for _, p := range participants {
			batch.Queue(`
				INSERT INTO chat_participants (id, chat_id, user_id, role, joined_at)
				VALUES ($1, $2, $3, $4, $5)
			`, p.ID, p.ChatID, p.UserID, p.Role, p.JoinedAt)
		}
		results := tx.SendBatch(ctx, batch)
		for range participants {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				if dberrors.IsDuplicateConstraintError(err, participantUniqueConstraint) {
					return apperrors.NewConflictError("participant already in chat")
				}
				return fmt.Errorf("error creating chat participant: %w", err)
			}
		}
		return results.Close()
	})
}

// DeclineChatRequest declines a pending request
func (r *ChatRequestRepository) DeclineChatRequest(ctx context.Context, requestID uuid.UUID, respondedAt time.Time) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		_, _, err := transition(ctx, tx, requestID, models.ChatRequestDeclined, respondedAt)
		return err
	})
}
