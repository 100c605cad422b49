package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/services"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultHandlerTimeout = 10 * time.Second

// eventHandler handles one decoded frame. The returned chat id, when known,
// scopes the error event sent back to the connection.
type eventHandler func(ctx context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error)

// Dispatcher routes inbound frames to the chat services
type Dispatcher struct {
	hub      *Hub
	chats    services.ChatService
	requests services.ChatRequestService
	handlers map[string]eventHandler
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(hub *Hub, chats services.ChatService, requests services.ChatRequestService, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		hub:      hub,
		chats:    chats,
		requests: requests,
		timeout:  defaultHandlerTimeout,
		logger:   logger,
	}
	d.handlers = map[string]eventHandler{
		dto.EventJoinChat:           d.handleJoinChat,
		dto.EventLeaveChat:          d.handleLeaveChat,
		dto.EventSendMessage:        d.handleSendMessage,
		dto.EventTyping:             d.handleTyping,
		dto.EventMarkRead:           d.handleMarkRead,
		dto.EventSendChatRequest:    d.handleSendChatRequest,
		dto.EventRespondChatRequest: d.handleRespondChatRequest,
	}
	return d
}

// Dispatch handles one frame to completion. A closed socket does not abort a
// handler that already started, so a write that lands is still broadcast.
func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, frame InboundFrame) {
	handler, ok := d.handlers[frame.Event]
	if !ok {
		d.sendError(c, frame, nil, apperrors.NewBadRequestError("Unknown event: "+frame.Event))
		return
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	chatID, err := handler(opCtx, c, frame)
	if err != nil {
		d.sendError(c, frame, chatID, err)
	}
}

// sendError emits a scoped error event to the originating connection only
func (d *Dispatcher) sendError(c *Client, frame InboundFrame, chatID *uuid.UUID, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		err = apperrors.NewValidationError("Invalid event data", map[string]interface{}{"fields": verrs.Error()})
	}

	log := c.logger.Warn()
	if !apperrors.IsDomainError(err) {
		log = c.logger.Error()
	}
	log.Err(err).Str("event", frame.Event).Msg("Event failed")

	d.hub.SendTo(c, dto.EventError, dto.ErrorPayload{
		Message:         dto.PublicMessage(err),
		Code:            dto.ErrorCodeFor(err),
		Event:           frame.Event,
		ChatID:          chatID,
		ClientMessageID: frame.ClientMessageID,
	})
}

func badData(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	return apperrors.NewBadRequestError(err.Error())
}

func (d *Dispatcher) handleJoinChat(ctx context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error) {
	chatID, err := decodeChatRef(frame.Data)
	if err != nil {
		return nil, badData(err)
	}
	if err := d.chats.EnsureMember(ctx, chatID, c.principal.ID); err != nil {
		return &chatID, err
	}
	d.hub.Join(c, chatID)
	return &chatID, nil
}

func (d *Dispatcher) handleLeaveChat(_ context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error) {
	chatID, err := decodeChatRef(frame.Data)
	if err != nil {
		return nil, badData(err)
	}
	d.hub.Leave(c, chatID)
	return &chatID, nil
}

func (d *Dispatcher) handleSendMessage(ctx context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error) {
	var payload SendMessagePayload
	if err := decodePayload(frame.Data, &payload); err != nil {
		return nil, badData(err)
	}
	chatID := uuid.MustParse(payload.ChatID)
	replyTo, err := parseOptionalID(payload.ReplyTo)
	if err != nil {
		return &chatID, badData(err)
	}

	_, err = d.chats.SendMessage(ctx, c.principal.ID, services.SendMessageInput{
		ChatID:          chatID,
		Content:         payload.Content,
		Type:            models.MessageType(payload.Type),
		ReplyTo:         replyTo,
		ClientMessageID: frame.ClientMessageID,
	})
	return &chatID, err
}

// handleTyping never reports errors back; typing is advisory
func (d *Dispatcher) handleTyping(ctx context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error) {
	var payload TypingPayload
	if err := decodePayload(frame.Data, &payload); err != nil {
		return nil, badData(err)
	}
	chatID := uuid.MustParse(payload.ChatID)
	if err := d.chats.Typing(ctx, c.principal.ID, chatID, payload.IsTyping); err != nil {
		c.logger.Warn().Err(err).Str("chatID", chatID.String()).Msg("Typing relay failed")
	}
	return &chatID, nil
}

func (d *Dispatcher) handleMarkRead(ctx context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error) {
	var payload MarkReadPayload
	if err := decodePayload(frame.Data, &payload); err != nil {
		return nil, badData(err)
	}
	chatID := uuid.MustParse(payload.ChatID)
	messageID, err := parseOptionalID(payload.MessageID)
	if err != nil {
		return &chatID, badData(err)
	}
	return &chatID, d.chats.MarkRead(ctx, c.principal.ID, chatID, messageID)
}

func (d *Dispatcher) handleSendChatRequest(ctx context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error) {
	var payload SendChatRequestPayload
	if err := decodePayload(frame.Data, &payload); err != nil {
		return nil, badData(err)
	}
	request, err := d.requests.SendRequest(ctx, c.principal.ID, uuid.MustParse(payload.ReceiverID), payload.Message)
	if err != nil {
		return nil, err
	}
	d.hub.SendTo(c, dto.EventChatRequestSent, request)
	return nil, nil
}

func (d *Dispatcher) handleRespondChatRequest(ctx context.Context, c *Client, frame InboundFrame) (*uuid.UUID, error) {
	var payload RespondChatRequestPayload
	if err := decodePayload(frame.Data, &payload); err != nil {
		return nil, badData(err)
	}
	_, err := d.requests.RespondToRequest(ctx, uuid.MustParse(payload.RequestID), c.principal.ID,
		models.ChatRequestStatus(payload.Status))
	return nil, err
}
