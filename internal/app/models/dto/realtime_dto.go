package dto

import (
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/google/uuid"
)

// Server to client event names
const (
	EventError                = "error"
	EventNewMessage           = "new_message"
	EventUserTyping           = "user_typing"
	EventMessageRead          = "message_read"
	EventUserStatusChanged    = "user_status_changed"
	EventChatRequestReceived  = "chat_request_received"
	EventChatRequestResponded = "chat_request_responded"
	EventChatCreated          = "chat_created"
	EventChatRequestSent      = "chat_request_sent"
)

// Client to server event names
const (
	EventJoinChat           = "join_chat"
	EventLeaveChat          = "leave_chat"
	EventSendMessage        = "send_message"
	EventTyping             = "typing"
	EventMarkRead           = "mark_read"
	EventSendChatRequest    = "send_chat_request"
	EventRespondChatRequest = "respond_chat_request"
)

// TypingPayload is relayed as user_typing
type TypingPayload struct {
	UserID   uuid.UUID `json:"userId"`
	ChatID   uuid.UUID `json:"chatId"`
	IsTyping bool      `json:"isTyping"`
}

// ReadReceiptPayload is relayed as message_read
type ReadReceiptPayload struct {
	UserID    uuid.UUID  `json:"userId"`
	ChatID    uuid.UUID  `json:"chatId"`
	MessageID *uuid.UUID `json:"messageId,omitempty"`
}

// StatusChangedPayload is sent as user_status_changed
type StatusChangedPayload struct {
	UserID   uuid.UUID             `json:"userId"`
	Status   models.PresenceStatus `json:"status"`
	LastSeen time.Time             `json:"lastSeen"`
}

// ChatRequestRespondedPayload is sent to the requester as chat_request_responded
type ChatRequestRespondedPayload struct {
	RequestID uuid.UUID                `json:"requestId"`
	Status    models.ChatRequestStatus `json:"status"`
	Receiver  PrincipalDisplay         `json:"receiver"`
}

// ErrorPayload is the scoped error event sent to one connection
type ErrorPayload struct {
	Message         string     `json:"message"`
	Code            ErrorCode  `json:"code"`
	Event           string     `json:"event,omitempty"`
	ChatID          *uuid.UUID `json:"chatId,omitempty"`
	ClientMessageID string     `json:"clientMessageId,omitempty"`
}
