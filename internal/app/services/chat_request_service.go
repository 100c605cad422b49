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
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChatRequestService runs the request, accept and decline workflow that opens direct chats
type ChatRequestService interface {
	SendRequest(ctx context.Context, requesterID, receiverID uuid.UUID, message string) (*dto.ChatRequestResponse, error)
	RespondToRequest(ctx context.Context, requestID, responderID uuid.UUID, decision models.ChatRequestStatus) (*dto.RespondChatRequestResult, error)
	ListRequests(ctx context.Context, principalID uuid.UUID) (*dto.ChatRequestsResponse, error)
}

type chatRequestServiceImpl struct {
	store     repositories.Store
	identity  *IdentityResolver
	views     *viewBuilder
	notifier  Notifier
	publisher DomainEventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewChatRequestService creates a new ChatRequestService
func NewChatRequestService(
	store repositories.Store,
	identity *IdentityResolver,
	notifier Notifier,
	publisher DomainEventPublisher,
	logger zerolog.Logger,
) ChatRequestService {
	return &chatRequestServiceImpl{
		store:     store,
		identity:  identity,
		views:     &viewBuilder{store: store, identity: identity},
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SendRequest creates a pending request and notifies the receiver
func (s *chatRequestServiceImpl) SendRequest(ctx context.Context, requesterID, receiverID uuid.UUID, message string) (*dto.ChatRequestResponse, error) {
	log := s.logger.With().
		Str("requesterID", requesterID.String()).
		Str("receiverID", receiverID.String()).
		Logger()

	if requesterID == receiverID {
		return nil, apperrors.NewSelfRequestError()
	}

	_, known, err := s.identity.Lookup(ctx, receiverID)
	if !known {
		if err != nil {
			log.Error().Err(err).Msg("Failed to look up receiver")
			return nil, apperrors.NewPersistenceError("look up receiver", err)
		}
		return nil, apperrors.NewNotFoundError("Receiver not found")
	}

	pending, err := s.store.HasPendingRequest(ctx, requesterID, receiverID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("check pending request", err)
	}
	if pending {
		return nil, apperrors.NewDuplicateRequestError()
	}

	reverse, err := s.store.HasPendingRequest(ctx, receiverID, requesterID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("check reverse request", err)
	}
	if reverse {
		return nil, apperrors.NewReciprocalRequestError()
	}

	shared, err := s.store.FindSharedChat(ctx, requesterID, receiverID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("find shared chat", err)
	}
	if shared != nil {
		return nil, apperrors.NewAlreadyConnectedError()
	}

	now := s.now()
	request := &models.ChatRequest{
		ID:          uuid.New(),
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      models.ChatRequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if text := strings.TrimSpace(message); text != "" {
		request.Message = &text
	}

	if err := s.store.CreateChatRequest(ctx, request); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateRequest) {
			return nil, apperrors.NewDuplicateRequestError()
		}
		log.Error().Err(err).Msg("Failed to create chat request")
		return nil, apperrors.NewPersistenceError("create chat request", err)
	}

	resp := s.views.request(ctx, request)
	if s.notifier != nil {
		s.notifier.NotifyPrincipal(receiverID, dto.EventChatRequestReceived, resp)
	}
	publishEvent(ctx, s.publisher, s.logger, RoutingChatRequestCreated, resp)

	log.Info().Str("requestID", request.ID.String()).Msg("Chat request sent")
	return &resp, nil
}

// RespondToRequest accepts or declines a pending request. Only the receiver may respond,
// and acceptance creates the direct chat with both participants in one transaction.
func (s *chatRequestServiceImpl) RespondToRequest(ctx context.Context, requestID, responderID uuid.UUID, decision models.ChatRequestStatus) (*dto.RespondChatRequestResult, error) {
	log := s.logger.With().
		Str("requestID", requestID.String()).
		Str("responderID", responderID.String()).
		Str("decision", string(decision)).
		Logger()

	if !decision.IsDecision() {
		return nil, apperrors.NewValidationError("Invalid status", map[string]interface{}{
			"status": "must be accepted or declined",
		})
	}

	request, err := s.store.GetChatRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Chat request not found")
		}
		return nil, apperrors.NewPersistenceError("get chat request", err)
	}

	if request.ReceiverID != responderID {
		log.Warn().Msg("Non-receiver tried to respond to chat request")
		return nil, apperrors.NewForbiddenError("Only the receiver can respond to this chat request")
	}
	if request.Status != models.ChatRequestPending {
		return nil, apperrors.NewAlreadyRespondedError()
	}

	now := s.now()
	result := &dto.RespondChatRequestResult{}

	switch decision {
	case models.ChatRequestAccepted:
		chat := &models.Chat{
			ID:            uuid.New(),
			IsGroup:       false,
			CreatedBy:     request.RequesterID,
			LastMessageAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		participants := []*models.ChatParticipant{
			{ID: uuid.New(), ChatID: chat.ID, UserID: request.RequesterID, Role: models.ParticipantOwner, JoinedAt: now},
			{ID: uuid.New(), ChatID: chat.ID, UserID: request.ReceiverID, Role: models.ParticipantMember, JoinedAt: now},
		}
		if err := s.store.AcceptChatRequest(ctx, requestID, now, chat, participants); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyResponded) {
				return nil, apperrors.NewAlreadyRespondedError()
			}
			if errors.Is(err, apperrors.ErrAlreadyConnected) {
				log.Info().Msg("Pair already shares a chat, request left pending")
				return nil, apperrors.NewAlreadyConnectedError()
			}
			log.Error().Err(err).Msg("Failed to accept chat request")
			return nil, apperrors.NewPersistenceError("accept chat request", err)
		}

		chatResp, err := s.views.chat(ctx, chat)
		if err != nil {
			// The chat is committed; fall back to what we just wrote.
			log.Warn().Err(err).Msg("Failed to load accepted chat")
			chatResp = dto.ToChatResponse(chat)
			chatResp.Participants = s.views.participants(ctx, participants, false)
		}
		result.Chat = &chatResp

	default:
		if err := s.store.DeclineChatRequest(ctx, requestID, now); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyResponded) {
				return nil, apperrors.NewAlreadyRespondedError()
			}
			log.Error().Err(err).Msg("Failed to decline chat request")
			return nil, apperrors.NewPersistenceError("decline chat request", err)
		}
	}

	request.Status = decision
	request.RespondedAt = &now
	request.UpdatedAt = now
	result.Request = s.views.request(ctx, request)

	s.notifyResponded(ctx, request, result)
	publishEvent(ctx, s.publisher, s.logger, RoutingChatRequestResponded, result.Request)
	if result.Chat != nil {
		publishEvent(ctx, s.publisher, s.logger, RoutingChatCreated, result.Chat)
	}

	log.Info().Msg("Chat request responded")
	return result, nil
}

func (s *chatRequestServiceImpl) notifyResponded(ctx context.Context, request *models.ChatRequest, result *dto.RespondChatRequestResult) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyPrincipal(request.RequesterID, dto.EventChatRequestResponded, dto.ChatRequestRespondedPayload{
		RequestID: request.ID,
		Status:    request.Status,
		Receiver:  *result.Request.Receiver,
	})
	if result.Chat != nil {
		s.notifier.NotifyPrincipal(request.RequesterID, dto.EventChatCreated, result.Chat)
		s.notifier.NotifyPrincipal(request.ReceiverID, dto.EventChatCreated, result.Chat)
	}
}

// ListRequests returns the principal's sent and received requests, newest first
func (s *chatRequestServiceImpl) ListRequests(ctx context.Context, principalID uuid.UUID) (*dto.ChatRequestsResponse, error) {
	sent, err := s.store.ListSentRequests(ctx, principalID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list sent requests", err)
	}
	received, err := s.store.ListReceivedRequests(ctx, principalID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list received requests", err)
	}

	resp := &dto.ChatRequestsResponse{
		Sent:     make([]dto.ChatRequestResponse, 0, len(sent)),
		Received: make([]dto.ChatRequestResponse, 0, len(received)),
	}
	for _, r := range sent {
		resp.Sent = append(resp.Sent, s.views.request(ctx, r))
	}
	for _, r := range received {
		resp.Received = append(resp.Received, s.views.request(ctx, r))
	}
	return resp, nil
}
