package repositories

import (
	"context"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/google/uuid"
)

// Lookups that find nothing return an error wrapping apperrors.ErrNotFound,
// except the "optional" lookups documented as returning (nil, nil).

// ChatStore reads and bumps chats
type ChatStore interface {
	GetChatByID(ctx context.Context, chatID uuid.UUID) (*models.Chat, error)
	TouchLastMessageAt(ctx context.Context, chatID uuid.UUID, at time.Time) error
	// ListChatsForPrincipal returns the principal's chats, most recently active first
	ListChatsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]*models.Chat, error)
	ListAllChats(ctx context.Context, offset uint64, limit int) ([]*models.Chat, error)
	// FindSharedChat returns any chat both principals take part in, or (nil, nil)
	FindSharedChat(ctx context.Context, a, b uuid.UUID) (*models.Chat, error)
}

// ParticipantStore answers membership questions
type ParticipantStore interface {
	// GetParticipant returns (nil, nil) when the principal is not a member
	GetParticipant(ctx context.Context, chatID, principalID uuid.UUID) (*models.ChatParticipant, error)
	ListParticipants(ctx context.Context, chatID uuid.UUID) ([]*models.ChatParticipant, error)
	// ListPeerIDs returns every distinct other principal sharing at least one chat
	ListPeerIDs(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error)
}

// MessageStore persists chat messages
type MessageStore interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error)
	// ListMessages pages through a chat. newestFirst selects the sort direction.
	ListMessages(ctx context.Context, chatID uuid.UUID, offset uint64, limit int, newestFirst bool) ([]*models.Message, error)
	// GetLastMessage returns (nil, nil) for an empty chat
	GetLastMessage(ctx context.Context, chatID uuid.UUID) (*models.Message, error)
	MarkMessageRead(ctx context.Context, chatID, messageID uuid.UUID, at time.Time) (int64, error)
	// MarkChatRead marks every unread message not authored by readerID
	MarkChatRead(ctx context.Context, chatID, readerID uuid.UUID, at time.Time) (int64, error)
}

// ChatRequestStore persists the request workflow
type ChatRequestStore interface {
	// CreateChatRequest fails with apperrors.ErrDuplicateRequest when a pending
	// request already exists for the same ordered pair
	CreateChatRequest(ctx context.Context, request *models.ChatRequest) error
	GetChatRequestByID(ctx context.Context, requestID uuid.UUID) (*models.ChatRequest, error)
	HasPendingRequest(ctx context.Context, requesterID, receiverID uuid.UUID) (bool, error)
	ListSentRequests(ctx context.Context, principalID uuid.UUID) ([]*models.ChatRequest, error)
	ListReceivedRequests(ctx context.Context, principalID uuid.UUID) ([]*models.ChatRequest, error)
	// AcceptChatRequest moves the request from pending to accepted and inserts
	// the chat with its participants in one transaction. It fails with
	// apperrors.ErrAlreadyResponded, writing nothing, when the request is no longer pending.
	// It fails with apperrors.ErrAlreadyConnected, writing nothing, when the pair
	// already shares a chat, for instance after a reciprocal request was accepted.
	AcceptChatRequest(ctx context.Context, requestID uuid.UUID, respondedAt time.Time, chat *models.Chat, participants []*models.ChatParticipant) error
	// DeclineChatRequest moves the request from pending to declined
	DeclineChatRequest(ctx context.Context, requestID uuid.UUID, respondedAt time.Time) error
}

// PresenceStore persists OnlineStatus rows
type PresenceStore interface {
	// GetOnlineStatus returns (nil, nil) when the principal was never seen
	GetOnlineStatus(ctx context.Context, principalID uuid.UUID) (*models.OnlineStatus, error)
	UpsertOnlineStatus(ctx context.Context, status *models.OnlineStatus) error
	ListOnlineStatuses(ctx context.Context, principalIDs []uuid.UUID) ([]*models.OnlineStatus, error)
	// ResetOnlineStatuses marks every principal still recorded as connected offline
	ResetOnlineStatuses(ctx context.Context, at time.Time) (int64, error)
}

// DirectoryStore reads the two identity tables
type DirectoryStore interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetAdminByID(ctx context.Context, adminID uuid.UUID) (*models.Admin, error)
	// SearchUsers matches approved users by name or email, excluding one id
	SearchUsers(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]*models.User, error)
}

// Store is the full persistence surface consumed by the chat core
type Store interface {
	ChatStore
	ParticipantStore
	MessageStore
	ChatRequestStore
	PresenceStore
	DirectoryStore
	Close() error
}
