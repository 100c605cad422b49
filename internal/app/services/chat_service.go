package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/helpers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// MinSearchQueryLength is the shortest accepted user search
	MinSearchQueryLength = 2
	searchResultLimit    = 20
)

// MembershipChecker answers whether a principal belongs to a chat
type MembershipChecker interface {
	IsParticipant(ctx context.Context, chatID, principalID uuid.UUID) (bool, error)
}

// SendMessageInput carries one send_message request
type SendMessageInput struct {
	ChatID          uuid.UUID
	Content         string
	Type            models.MessageType
	ReplyTo         *uuid.UUID
	ClientMessageID string
}

// ChatService defines the interface for chat and messaging operations
type ChatService interface {
	// EnsureMember fails with a forbidden error when the principal is not in the chat
	EnsureMember(ctx context.Context, chatID, principalID uuid.UUID) error
	SendMessage(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*dto.MessageResponse, error)
	Typing(ctx context.Context, principalID, chatID uuid.UUID, isTyping bool) error
	MarkRead(ctx context.Context, principalID, chatID uuid.UUID, messageID *uuid.UUID) error

	ListChats(ctx context.Context, principalID uuid.UUID) ([]dto.ChatResponse, error)
	GetMessages(ctx context.Context, chatID, principalID uuid.UUID, page, limit int) ([]dto.MessageResponse, error)
	GetParticipants(ctx context.Context, chatID, principalID uuid.UUID) ([]dto.ParticipantResponse, error)
	SearchUsers(ctx context.Context, principalID uuid.UUID, query string) ([]dto.PrincipalDisplay, error)

	ListAllChats(ctx context.Context, page, limit int) ([]dto.ChatResponse, error)
	GetChatMessagesAsAdmin(ctx context.Context, chatID uuid.UUID, page, limit int) ([]dto.MessageResponse, error)
}

// chatServiceImpl implements ChatService
type chatServiceImpl struct {
	store     repositories.Store
	members   MembershipChecker
	views     *viewBuilder
	notifier  Notifier
	publisher DomainEventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewChatService creates a new ChatService
func NewChatService(
	store repositories.Store,
	members MembershipChecker,
	identity *IdentityResolver,
	presence PresenceService,
	notifier Notifier,
	publisher DomainEventPublisher,
	logger zerolog.Logger,
) ChatService {
	return &chatServiceImpl{
		store:     store,
		members:   members,
		views:     &viewBuilder{store: store, identity: identity, presence: presence},
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *chatServiceImpl) EnsureMember(ctx context.Context, chatID, principalID uuid.UUID) error {
	ok, err := s.members.IsParticipant(ctx, chatID, principalID)
	if err != nil {
		return apperrors.NewPersistenceError("check membership", err)
	}
	if !ok {
		return apperrors.NewForbiddenError("You are not a participant of this chat")
	}
	return nil
}

// SendMessage persists a message, bumps the chat and only then broadcasts it.
// Nothing is broadcast when any write fails.
func (s *chatServiceImpl) SendMessage(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*dto.MessageResponse, error) {
	log := s.logger.With().
		Str("chatID", input.ChatID.String()).
		Str("senderID", senderID.String()).
		Logger()

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("Message content is required", map[string]interface{}{
			"content": "must not be empty",
		})
	}
	msgType := input.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, apperrors.NewValidationError("Invalid message type", map[string]interface{}{
			"type": string(msgType),
		})
	}

	if err := s.EnsureMember(ctx, input.ChatID, senderID); err != nil {
		return nil, err
	}

	if input.ReplyTo != nil {
		target, err := s.store.GetMessageByID(ctx, *input.ReplyTo)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewNotFoundError("Reply target not found in this chat")
			}
			return nil, apperrors.NewPersistenceError("get reply target", err)
		}
		if target.ChatID != input.ChatID {
			return nil, apperrors.NewNotFoundError("Reply target not found in this chat")
		}
	}

	now := s.now()
	message := &models.Message{
		ID:        uuid.New(),
		ChatID:    input.ChatID,
		SenderID:  senderID,
		Content:   content,
		Type:      msgType,
		ReplyTo:   input.ReplyTo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateMessage(ctx, message); err != nil {
		log.Error().Err(err).Msg("Failed to persist message")
		return nil, apperrors.NewPersistenceError("create message", err)
	}
	if err := s.store.TouchLastMessageAt(ctx, input.ChatID, now); err != nil {
		log.Error().Err(err).Msg("Failed to update chat activity")
		return nil, apperrors.NewPersistenceError("touch chat", err)
	}

	resp := s.views.message(ctx, message, make(map[uuid.UUID]dto.PrincipalDisplay))
	resp.ClientMessageID = input.ClientMessageID

	if s.notifier != nil {
		s.notifier.BroadcastToChat(input.ChatID, dto.EventNewMessage, resp, nil)
	}
	publishEvent(ctx, s.publisher, s.logger, RoutingMessageCreated, resp)

	log.Debug().Str("messageID", message.ID.String()).Msg("Message sent")
	return &resp, nil
}

// Typing relays a typing indicator to the other members. Non-members are dropped silently.
func (s *chatServiceImpl) Typing(ctx context.Context, principalID, chatID uuid.UUID, isTyping bool) error {
	ok, err := s.members.IsParticipant(ctx, chatID, principalID)
	if err != nil {
		return apperrors.NewPersistenceError("check membership", err)
	}
	if !ok || s.notifier == nil {
		return nil
	}
	s.notifier.BroadcastToChat(chatID, dto.EventUserTyping, dto.TypingPayload{
		UserID:   principalID,
		ChatID:   chatID,
		IsTyping: isTyping,
	}, &principalID)
	return nil
}

// MarkRead marks one message, or every unread message from others, as read and
// relays the receipt to the other members. Non-members are dropped silently.
func (s *chatServiceImpl) MarkRead(ctx context.Context, principalID, chatID uuid.UUID, messageID *uuid.UUID) error {
	ok, err := s.members.IsParticipant(ctx, chatID, principalID)
	if err != nil {
		return apperrors.NewPersistenceError("check membership", err)
	}
	if !ok {
		return nil
	}

	now := s.now()
	var updated int64
	if messageID != nil {
		updated, err = s.store.MarkMessageRead(ctx, chatID, *messageID, now)
	} else {
		updated, err = s.store.MarkChatRead(ctx, chatID, principalID, now)
	}
	if err != nil {
		return apperrors.NewPersistenceError("mark read", err)
	}
	if messageID != nil && updated == 0 {
		// Nothing changed: either already read, or not a message of this chat
		if err := s.ensureMessageInChat(ctx, chatID, *messageID); err != nil {
			return err
		}
	}

	s.logger.Debug().
		Str("chatID", chatID.String()).
		Str("readerID", principalID.String()).
		Int64("updated", updated).
		Msg("Messages marked read")

	if s.notifier != nil {
		s.notifier.BroadcastToChat(chatID, dto.EventMessageRead, dto.ReadReceiptPayload{
			UserID:    principalID,
			ChatID:    chatID,
			MessageID: messageID,
		}, &principalID)
	}
	return nil
}

func (s *chatServiceImpl) ensureMessageInChat(ctx context.Context, chatID, messageID uuid.UUID) error {
	message, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("Message not found in this chat")
		}
		return apperrors.NewPersistenceError("get message", err)
	}
	if message.ChatID != chatID {
		return apperrors.NewNotFoundError("Message not found in this chat")
	}
	return nil
}

// ListChats returns the principal's chats, most recently active first
func (s *chatServiceImpl) ListChats(ctx context.Context, principalID uuid.UUID) ([]dto.ChatResponse, error) {
	chats, err := s.store.ListChatsForPrincipal(ctx, principalID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list chats", err)
	}
	return s.views.chats(ctx, chats)
}

// GetMessages returns one page of a chat in chronological order.
// Page 1 holds the most recent messages.
func (s *chatServiceImpl) GetMessages(ctx context.Context, chatID, principalID uuid.UUID, page, limit int) ([]dto.MessageResponse, error) {
	if err := s.EnsureMember(ctx, chatID, principalID); err != nil {
		return nil, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, limit)
	messages, err := s.store.ListMessages(ctx, chatID, offset, limit, true)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list messages", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return s.views.messages(ctx, messages), nil
}

// GetParticipants lists the chat members with their presence
func (s *chatServiceImpl) GetParticipants(ctx context.Context, chatID, principalID uuid.UUID) ([]dto.ParticipantResponse, error) {
	if err := s.EnsureMember(ctx, chatID, principalID); err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, chatID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list participants", err)
	}
	return s.views.participants(ctx, participants, true), nil
}

// SearchUsers finds approved users to start a chat with
func (s *chatServiceImpl) SearchUsers(ctx context.Context, principalID uuid.UUID, query string) ([]dto.PrincipalDisplay, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchQueryLength {
		return nil, apperrors.NewValidationError("Search query must be at least 2 characters", map[string]interface{}{
			"q": "too short",
		})
	}

	users, err := s.store.SearchUsers(ctx, query, principalID, searchResultLimit)
	if err != nil {
		return nil, apperrors.NewPersistenceError("search users", err)
	}
	out := make([]dto.PrincipalDisplay, 0, len(users))
	for _, u := range users {
		out = append(out, dto.UserDisplay(u))
	}
	return out, nil
}

// ListAllChats pages through every chat for moderation
func (s *chatServiceImpl) ListAllChats(ctx context.Context, page, limit int) ([]dto.ChatResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, limit)
	chats, err := s.store.ListAllChats(ctx, offset, limit)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list all chats", err)
	}
	return s.views.chats(ctx, chats)
}

// GetChatMessagesAsAdmin reads any chat in chronological order without a membership check
func (s *chatServiceImpl) GetChatMessagesAsAdmin(ctx context.Context, chatID uuid.UUID, page, limit int) ([]dto.MessageResponse, error) {
	if _, err := s.store.GetChatByID(ctx, chatID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Chat not found")
		}
		return nil, apperrors.NewPersistenceError("get chat", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, limit)
	messages, err := s.store.ListMessages(ctx, chatID, offset, limit, false)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list messages", err)
	}
	return s.views.messages(ctx, messages), nil
}
