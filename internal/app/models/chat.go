package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole is a principal's role inside one chat
type ParticipantRole string

const (
	ParticipantOwner  ParticipantRole = "owner"
	ParticipantMember ParticipantRole = "member"
)

// Chat is a conversation room. Direct chats are only created by accepting a chat request.
type Chat struct {
	ID            uuid.UUID `json:"id" db:"id" gorm:"type:text;primaryKey"`
	Name          *string   `json:"name" db:"name"`
	IsGroup       bool      `json:"isGroup" db:"is_group"`
	CreatedBy     uuid.UUID `json:"createdBy" db:"created_by" gorm:"type:text;not null"`
	LastMessageAt time.Time `json:"lastMessageAt" db:"last_message_at" gorm:"index"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

func (Chat) TableName() string { return "chats" }

// ChatParticipant links a principal to a chat
type ChatParticipant struct {
	ID       uuid.UUID       `json:"id" db:"id" gorm:"type:text;primaryKey"`
	ChatID   uuid.UUID       `json:"chatId" db:"chat_id" gorm:"type:text;not null;uniqueIndex:idx_chat_participant"`
	UserID   uuid.UUID       `json:"userId" db:"user_id" gorm:"type:text;not null;uniqueIndex:idx_chat_participant;index"`
	Role     ParticipantRole `json:"role" db:"role" gorm:"type:text;default:member"`
	JoinedAt time.Time       `json:"joinedAt" db:"joined_at"`
}

func (ChatParticipant) TableName() string { return "chat_participants" }

// MessageType tags the payload carried by a message
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeEmoji  MessageType = "emoji"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether t is one of the known message types
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeEmoji, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

// Message belongs to exactly one chat. ReplyTo points at an earlier message of the same chat.
type Message struct {
	ID        uuid.UUID   `json:"id" db:"id" gorm:"type:text;primaryKey"`
	ChatID    uuid.UUID   `json:"chatId" db:"chat_id" gorm:"type:text;not null;index:idx_messages_chat_created,priority:1"`
	SenderID  uuid.UUID   `json:"senderId" db:"sender_id" gorm:"type:text;not null"`
	Content   string      `json:"content" db:"content" gorm:"not null"`
	Type      MessageType `json:"type" db:"type" gorm:"type:text;default:text"`
	IsRead    bool        `json:"isRead" db:"is_read"`
	ReadAt    *time.Time  `json:"readAt" db:"read_at"`
	ReplyTo   *uuid.UUID  `json:"replyTo" db:"reply_to" gorm:"type:text"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at" gorm:"index:idx_messages_chat_created,priority:2"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

func (Message) TableName() string { return "messages" }

// ChatRequestStatus is the state of a chat request. Accepted and declined are terminal.
type ChatRequestStatus string

const (
	ChatRequestPending  ChatRequestStatus = "pending"
	ChatRequestAccepted ChatRequestStatus = "accepted"
	ChatRequestDeclined ChatRequestStatus = "declined"
)

// IsDecision reports whether s is a valid answer to a pending request
func (s ChatRequestStatus) IsDecision() bool {
	return s == ChatRequestAccepted || s == ChatRequestDeclined
}

// ChatRequest asks a receiver to open a direct chat with the requester
type ChatRequest struct {
	ID          uuid.UUID         `json:"id" db:"id" gorm:"type:text;primaryKey"`
	RequesterID uuid.UUID         `json:"requesterId" db:"requester_id" gorm:"type:text;not null;index:idx_chat_requests_pair"`
	ReceiverID  uuid.UUID         `json:"receiverId" db:"receiver_id" gorm:"type:text;not null;index:idx_chat_requests_pair;index"`
	Status      ChatRequestStatus `json:"status" db:"status" gorm:"type:text;default:pending"`
	Message     *string           `json:"message" db:"message"`
	RespondedAt *time.Time        `json:"respondedAt" db:"responded_at"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
}

func (ChatRequest) TableName() string { return "chat_requests" }

// PresenceStatus is a principal's liveness
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

// OnlineStatus holds the latest known presence of one principal
type OnlineStatus struct {
	ID       uuid.UUID      `json:"id" db:"id" gorm:"type:text;primaryKey"`
	UserID   uuid.UUID      `json:"userId" db:"user_id" gorm:"type:text;uniqueIndex;not null"`
	Status   PresenceStatus `json:"status" db:"status" gorm:"type:text;default:offline"`
	LastSeen time.Time      `json:"lastSeen" db:"last_seen"`
	SocketID *string        `json:"socketId" db:"socket_id"`
}

func (OnlineStatus) TableName() string { return "online_statuses" }
