// Package gormstore implements the chat persistence surface on gorm. It backs
// the embedded sqlite driver and the store-level tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a gorm-backed repositories.Store
type Store struct {
	db *gorm.DB
}

var _ repositories.Store = (*Store)(nil)

// Open connects to the sqlite database at dsn and migrates the chat schema
func Open(dsn string, logger zerolog.Logger) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// sqlite serializes writers; a single connection keeps transactions from
	// failing with SQLITE_BUSY and keeps shared in-memory databases alive.
	sqlDB.SetMaxOpenConns(1)

	store := New(gdb)
	if err := store.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// OpenInMemory opens a private in-memory database. Every call gets its own database.
func OpenInMemory(logger zerolog.Logger) (*Store, error) {
	return Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger)
}

// New wraps an existing gorm handle
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the gorm handle for seeding and tests
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates the chat tables and the pending-pair partial index
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Chat{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.ChatRequest{},
		&models.OnlineStatus{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	if err := s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_chat_requests_pending_pair
		ON chat_requests (requester_id, receiver_id) WHERE status = 'pending'`).Error; err != nil {
		return fmt.Errorf("create pending pair index: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, apperrors.ErrNotFound)
	}
	return fmt.Errorf("error retrieving %s: %w", kind, err)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || (err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}

// --- chats ---

// GetChatByID retrieves a chat by its ID
func (s *Store) GetChatByID(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	if err := s.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error; err != nil {
		return nil, notFound("chat", chatID, err)
	}
	return &chat, nil
}

// TouchLastMessageAt bumps the activity timestamp of a chat
func (s *Store) TouchLastMessageAt(ctx context.Context, chatID uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{"last_message_at": at, "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("error updating chat activity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chat %s: %w", chatID, apperrors.ErrNotFound)
	}
	return nil
}

// ListChatsForPrincipal returns the principal's chats ordered by last activity
func (s *Store) ListChatsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]*models.Chat, error) {
	chats := make([]*models.Chat, 0)
	err := s.db.WithContext(ctx).
		Select("chats.*").
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", principalID).
		Order("chats.last_message_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("error listing chats: %w", err)
	}
	return chats, nil
}

// ListAllChats pages through every chat
func (s *Store) ListAllChats(ctx context.Context, offset uint64, limit int) ([]*models.Chat, error) {
	chats := make([]*models.Chat, 0)
	err := s.db.WithContext(ctx).
		Order("last_message_at DESC").
		Offset(int(offset)).
		Limit(limit).
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("error listing chats: %w", err)
	}
	return chats, nil
}

// FindSharedChat returns a chat in which both principals participate
func (s *Store) FindSharedChat(ctx context.Context, a, b uuid.UUID) (*models.Chat, error) {
	return findSharedChat(s.db.WithContext(ctx), a, b)
}

func findSharedChat(db *gorm.DB, a, b uuid.UUID) (*models.Chat, error) {
	chats := make([]*models.Chat, 0, 1)
	err := db.
		Select("chats.*").
		Joins("JOIN chat_participants pa ON pa.chat_id = chats.id").
		Joins("JOIN chat_participants pb ON pb.chat_id = chats.id").
		Where("pa.user_id = ? AND pb.user_id = ?", a, b).
		Order("chats.created_at ASC").
		Limit(1).
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("error finding shared chat: %w", err)
	}
	if len(chats) == 0 {
		return nil, nil
	}
	return chats[0], nil
}

// --- participants ---

// GetParticipant returns the membership row of a principal, or nil when absent
func (s *Store) GetParticipant(ctx context.Context, chatID, principalID uuid.UUID) (*models.ChatParticipant, error) {
	var p models.ChatParticipant
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, principalID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking chat membership: %w", err)
	}
	return &p, nil
}

// ListParticipants returns the members of a chat in join order
func (s *Store) ListParticipants(ctx context.Context, chatID uuid.UUID) ([]*models.ChatParticipant, error) {
	participants := make([]*models.ChatParticipant, 0)
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("error listing participants: %w", err)
	}
	return participants, nil
}

// ListPeerIDs returns the distinct principals sharing at least one chat with principalID
func (s *Store) ListPeerIDs(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT peer.user_id
		FROM chat_participants self
		JOIN chat_participants peer ON peer.chat_id = self.chat_id
		WHERE self.user_id = ? AND peer.user_id <> ?
	`, principalID, principalID).Rows()
	if err != nil {
		return nil, fmt.Errorf("error listing peers: %w", err)
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

// --- messages ---

// CreateMessage inserts a new message
func (s *Store) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.Type == "" {
		message.Type = models.MessageTypeText
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}

// GetMessageByID retrieves a message by its ID
func (s *Store) GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	var m models.Message
	if err := s.db.WithContext(ctx).First(&m, "id = ?", messageID).Error; err != nil {
		return nil, notFound("message", messageID, err)
	}
	return &m, nil
}

// ListMessages pages through the messages of a chat
func (s *Store) ListMessages(ctx context.Context, chatID uuid.UUID, offset uint64, limit int, newestFirst bool) ([]*models.Message, error) {
	order := "created_at ASC, id ASC"
	if newestFirst {
		order = "created_at DESC, id DESC"
	}

	q := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order(order).
		Offset(int(offset))
	if limit > 0 {
		q = q.Limit(limit)
	}

	messages := make([]*models.Message, 0)
	if err := q.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return messages, nil
}

// GetLastMessage returns the newest message of a chat or nil
func (s *Store) GetLastMessage(ctx context.Context, chatID uuid.UUID) (*models.Message, error) {
	messages, err := s.ListMessages(ctx, chatID, 0, 1, true)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

// MarkMessageRead marks one message of the chat as read
func (s *Store) MarkMessageRead(ctx context.Context, chatID, messageID uuid.UUID, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND chat_id = ? AND is_read = ?", messageID, chatID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at, "updated_at": at})
	if res.Error != nil {
		return 0, fmt.Errorf("error marking message read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkChatRead marks every unread message from other senders as read
func (s *Store) MarkChatRead(ctx context.Context, chatID, readerID uuid.UUID, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, readerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at, "updated_at": at})
	if res.Error != nil {
		return 0, fmt.Errorf("error marking chat read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// --- chat requests ---

// CreateChatRequest inserts a pending request unless one already exists for the pair
func (s *Store) CreateChatRequest(ctx context.Context, request *models.ChatRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.Status == "" {
		request.Status = models.ChatRequestPending
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.ChatRequest{}).
			Where("requester_id = ? AND receiver_id = ? AND status = ?", request.RequesterID, request.ReceiverID, models.ChatRequestPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("error checking pending request: %w", err)
		}
		if pending > 0 {
			return apperrors.NewDuplicateRequestError()
		}
		return tx.Create(request).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateRequestError()
		}
		if apperrors.IsDomainError(err) {
			return err
		}
		return fmt.Errorf("error creating chat request: %w", err)
	}
	return nil
}

// GetChatRequestByID retrieves a chat request by its ID
func (s *Store) GetChatRequestByID(ctx context.Context, requestID uuid.UUID) (*models.ChatRequest, error) {
	var req models.ChatRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", requestID).Error; err != nil {
		return nil, notFound("chat request", requestID, err)
	}
	return &req, nil
}

// HasPendingRequest reports whether requester already has a pending request to receiver
func (s *Store) HasPendingRequest(ctx context.Context, requesterID, receiverID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ChatRequest{}).
		Where("requester_id = ? AND receiver_id = ? AND status = ?", requesterID, receiverID, models.ChatRequestPending).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("error checking pending request: %w", err)
	}
	return count > 0, nil
}

func (s *Store) listRequests(ctx context.Context, column string, principalID uuid.UUID) ([]*models.ChatRequest, error) {
	requests := make([]*models.ChatRequest, 0)
	err := s.db.WithContext(ctx).
		Where(column+" = ?", principalID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("error listing chat requests: %w", err)
	}
	return requests, nil
}

// ListSentRequests returns requests created by the principal, newest first
func (s *Store) ListSentRequests(ctx context.Context, principalID uuid.UUID) ([]*models.ChatRequest, error) {
	return s.listRequests(ctx, "requester_id", principalID)
}

// ListReceivedRequests returns requests addressed to the principal, newest first
func (s *Store) ListReceivedRequests(ctx context.Context, principalID uuid.UUID) ([]*models.ChatRequest, error) {
	return s.listRequests(ctx, "receiver_id", principalID)
}

func transition(tx *gorm.DB, requestID uuid.UUID, status models.ChatRequestStatus, at time.Time) error {
	res := tx.Model(&models.ChatRequest{}).
		Where("id = ? AND status = ?", requestID, models.ChatRequestPending).
		Updates(map[string]interface{}{"status": status, "responded_at": at, "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("error updating chat request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewAlreadyRespondedError()
	}
	return nil
}

// AcceptChatRequest accepts the request and creates the chat with its participants atomically.
// A pair that already shares a chat fails with apperrors.ErrAlreadyConnected.
func (s *Store) AcceptChatRequest(ctx context.Context, requestID uuid.UUID, respondedAt time.Time, chat *models.Chat, participants []*models.ChatParticipant) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, requestID, models.ChatRequestAccepted, respondedAt); err != nil {
			return err
		}
		var request models.ChatRequest
		if err := tx.Where("id = ?", requestID).First(&request).Error; err != nil {
			return fmt.Errorf("error retrieving chat request: %w", err)
		}
		shared, err := findSharedChat(tx, request.RequesterID, request.ReceiverID)
		if err != nil {
			return err
		}
		if shared != nil {
			return apperrors.NewAlreadyConnectedError()
		}
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("error creating chat: %w", err)
		}
		if err := tx.Create(&participants).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflictError("participant already in chat")
			}
			return fmt.Errorf("error creating chat participants: %w", err)
		}
		return nil
	})
}

// DeclineChatRequest declines a pending request
func (s *Store) DeclineChatRequest(ctx context.Context, requestID uuid.UUID, respondedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, requestID, models.ChatRequestDeclined, respondedAt)
	})
}

// --- presence ---

// GetOnlineStatus returns the stored status of a principal or nil
func (s *Store) GetOnlineStatus(ctx context.Context, principalID uuid.UUID) (*models.OnlineStatus, error) {
	var status models.OnlineStatus
	err := s.db.WithContext(ctx).Where("user_id = ?", principalID).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving online status: %w", err)
	}
	return &status, nil
}

// UpsertOnlineStatus writes the latest status of a principal
func (s *Store) UpsertOnlineStatus(ctx context.Context, status *models.OnlineStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.OnlineStatus
		err := tx.Where("user_id = ?", status.UserID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if status.ID == uuid.Nil {
				status.ID = uuid.New()
			}
			return tx.Create(status).Error
		case err != nil:
			return fmt.Errorf("error retrieving online status: %w", err)
		}

		status.ID = existing.ID
		return tx.Model(&existing).Updates(map[string]interface{}{
			"status":    status.Status,
			"last_seen": status.LastSeen,
			"socket_id": status.SocketID,
		}).Error
	})
}

// ResetOnlineStatuses marks every row that is not offline as offline
func (s *Store) ResetOnlineStatuses(ctx context.Context, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.OnlineStatus{}).
		Where("status <> ?", models.PresenceOffline).
		Updates(map[string]interface{}{
			"status":    models.PresenceOffline,
			"last_seen": at,
			"socket_id": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("error resetting online statuses: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListOnlineStatuses returns the stored statuses for the given principals
func (s *Store) ListOnlineStatuses(ctx context.Context, principalIDs []uuid.UUID) ([]*models.OnlineStatus, error) {
	statuses := make([]*models.OnlineStatus, 0, len(principalIDs))
	if len(principalIDs) == 0 {
		return statuses, nil
	}
	ids := make([]string, len(principalIDs))
	for i, id := range principalIDs {
		ids[i] = id.String()
	}
	if err := s.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("error listing online statuses: %w", err)
	}
	return statuses, nil
}

// --- directory ---

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, notFound("user", userID, err)
	}
	return &u, nil
}

// GetAdminByID retrieves an admin by ID
func (s *Store) GetAdminByID(ctx context.Context, adminID uuid.UUID) (*models.Admin, error) {
	var a models.Admin
	if err := s.db.WithContext(ctx).First(&a, "id = ?", adminID).Error; err != nil {
		return nil, notFound("admin", adminID, err)
	}
	return &a, nil
}

// SearchUsers matches approved users by name or email
func (s *Store) SearchUsers(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]*models.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	users := make([]*models.User, 0)
	err := s.db.WithContext(ctx).
		Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", pattern, pattern).
		Where("id <> ? AND is_approved = ?", excludeID, true).
		Order("name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("error searching users: %w", err)
	}
	return users, nil
}

// EnsureUser inserts the user unless the id already exists
func (s *Store) EnsureUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error; err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

// EnsureAdmin inserts the admin unless the id already exists
func (s *Store) EnsureAdmin(ctx context.Context, a *models.Admin) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a).Error; err != nil {
		return fmt.Errorf("error inserting admin: %w", err)
	}
	return nil
}
