package dto

import (
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/google/uuid"
)

// UnknownPrincipalName is shown when neither identity table knows an id
const UnknownPrincipalName = "Unknown User"

// --- Request DTOs ---

// SendChatRequestRequest is the body of POST /chat/request
type SendChatRequestRequest struct {
	ReceiverID string `json:"receiverId" binding:"required,uuid"`
	Message    string `json:"message" binding:"max=500"`
}

// RespondChatRequestRequest is the body of PUT /chat/request/:requestId/respond
type RespondChatRequestRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted declined"`
}

// --- Response DTOs ---

// PrincipalDisplay is the uniform identity shape for users and admins
type PrincipalDisplay struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"isAdmin"`
	Role    *string   `json:"role,omitempty"`
}

// UnknownPrincipal is the deterministic placeholder for unresolved ids
func UnknownPrincipal(id uuid.UUID) PrincipalDisplay {
	return PrincipalDisplay{ID: id, Name: UnknownPrincipalName}
}

// UserDisplay converts a user row
func UserDisplay(u *models.User) PrincipalDisplay {
	return PrincipalDisplay{ID: u.ID, Name: u.Name, Email: u.Email}
}

// AdminDisplay converts an admin row
func AdminDisplay(a *models.Admin) PrincipalDisplay {
	role := string(a.Role)
	return PrincipalDisplay{ID: a.ID, Name: a.Name, Email: a.Email, IsAdmin: true, Role: &role}
}

// ReplyPreview is the resolved target of a reply
type ReplyPreview struct {
	ID      uuid.UUID          `json:"id"`
	Content string             `json:"content"`
	Type    models.MessageType `json:"type"`
	Sender  PrincipalDisplay   `json:"sender"`
}

// MessageResponse is a persisted message with resolved sender and reply target
type MessageResponse struct {
	ID              uuid.UUID          `json:"id"`
	ChatID          uuid.UUID          `json:"chatId"`
	SenderID        uuid.UUID          `json:"senderId"`
	Content         string             `json:"content"`
	Type            models.MessageType `json:"type"`
	IsRead          bool               `json:"isRead"`
	ReadAt          *time.Time         `json:"readAt,omitempty"`
	ReplyTo         *uuid.UUID         `json:"replyTo,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	Sender          PrincipalDisplay   `json:"sender"`
	ReplyToMessage  *ReplyPreview      `json:"replyToMessage,omitempty"`
	ClientMessageID string             `json:"clientMessageId,omitempty"`
}

// ToMessageResponse transforms a models.Message
func ToMessageResponse(message *models.Message, sender PrincipalDisplay, reply *ReplyPreview) MessageResponse {
	return MessageResponse{
		ID:             message.ID,
		ChatID:         message.ChatID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		Type:           message.Type,
		IsRead:         message.IsRead,
		ReadAt:         message.ReadAt,
		ReplyTo:        message.ReplyTo,
		CreatedAt:      message.CreatedAt,
		UpdatedAt:      message.UpdatedAt,
		Sender:         sender,
		ReplyToMessage: reply,
	}
}

// OnlineStatusResponse is the presence part of a participant listing
type OnlineStatusResponse struct {
	Status   models.PresenceStatus `json:"status"`
	LastSeen *time.Time            `json:"lastSeen,omitempty"`
}

// ParticipantResponse describes one chat member
type ParticipantResponse struct {
	ID           uuid.UUID              `json:"id"`
	ChatID       uuid.UUID              `json:"chatId"`
	UserID       uuid.UUID              `json:"userId"`
	Role         models.ParticipantRole `json:"role"`
	JoinedAt     time.Time              `json:"joinedAt"`
	User         PrincipalDisplay       `json:"user"`
	OnlineStatus *OnlineStatusResponse  `json:"onlineStatus,omitempty"`
}

// ChatResponse is a chat with its participants and most recent message
type ChatResponse struct {
	ID            uuid.UUID             `json:"id"`
	Name          *string               `json:"name"`
	IsGroup       bool                  `json:"isGroup"`
	CreatedBy     uuid.UUID             `json:"createdBy"`
	LastMessageAt time.Time             `json:"lastMessageAt"`
	CreatedAt     time.Time             `json:"createdAt"`
	Participants  []ParticipantResponse `json:"participants"`
	LastMessage   *MessageResponse      `json:"lastMessage,omitempty"`
}

// ToChatResponse transforms a models.Chat without participants
func ToChatResponse(chat *models.Chat) ChatResponse {
	return ChatResponse{
		ID:            chat.ID,
		Name:          chat.Name,
		IsGroup:       chat.IsGroup,
		CreatedBy:     chat.CreatedBy,
		LastMessageAt: chat.LastMessageAt,
		CreatedAt:     chat.CreatedAt,
		Participants:  []ParticipantResponse{},
	}
}

// ChatRequestResponse is a chat request enriched with both parties
type ChatRequestResponse struct {
	ID          uuid.UUID                `json:"id"`
	RequesterID uuid.UUID                `json:"requesterId"`
	ReceiverID  uuid.UUID                `json:"receiverId"`
	Status      models.ChatRequestStatus `json:"status"`
	Message     *string                  `json:"message"`
	RespondedAt *time.Time               `json:"respondedAt,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	Requester   *PrincipalDisplay        `json:"requester,omitempty"`
	Receiver    *PrincipalDisplay        `json:"receiver,omitempty"`
}

// ToChatRequestResponse transforms a models.ChatRequest
func ToChatRequestResponse(req *models.ChatRequest) ChatRequestResponse {
	return ChatRequestResponse{
		ID:          req.ID,
		RequesterID: req.RequesterID,
		ReceiverID:  req.ReceiverID,
		Status:      req.Status,
		Message:     req.Message,
		RespondedAt: req.RespondedAt,
		CreatedAt:   req.CreatedAt,
	}
}

// ChatRequestsResponse groups a principal's requests
type ChatRequestsResponse struct {
	Sent     []ChatRequestResponse `json:"sent"`
	Received []ChatRequestResponse `json:"received"`
}

// RespondChatRequestResult is returned by the respond operation
type RespondChatRequestResult struct {
	Request ChatRequestResponse `json:"request"`
	Chat    *ChatResponse       `json:"chat,omitempty"`
}
