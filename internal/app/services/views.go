package services

import (
	"context"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/google/uuid"
)

// viewBuilder enriches stored rows with identities, presence and reply previews
type viewBuilder struct {
	store    repositories.Store
	identity *IdentityResolver
	presence PresenceService
}

func (v *viewBuilder) message(ctx context.Context, message *models.Message, senders map[uuid.UUID]dto.PrincipalDisplay) dto.MessageResponse {
	sender, ok := senders[message.SenderID]
	if !ok {
		sender = v.identity.Resolve(ctx, message.SenderID)
		senders[message.SenderID] = sender
	}
	return dto.ToMessageResponse(message, sender, v.replyPreview(ctx, message, senders))
}

// replyPreview is nil when the target vanished or lives in another chat
func (v *viewBuilder) replyPreview(ctx context.Context, message *models.Message, senders map[uuid.UUID]dto.PrincipalDisplay) *dto.ReplyPreview {
	if message.ReplyTo == nil {
		return nil
	}
	target, err := v.store.GetMessageByID(ctx, *message.ReplyTo)
	if err != nil || target.ChatID != message.ChatID {
		return nil
	}
	sender, ok := senders[target.SenderID]
	if !ok {
		sender = v.identity.Resolve(ctx, target.SenderID)
		senders[target.SenderID] = sender
	}
	return &dto.ReplyPreview{
		ID:      target.ID,
		Content: target.Content,
		Type:    target.Type,
		Sender:  sender,
	}
}

func (v *viewBuilder) messages(ctx context.Context, messages []*models.Message) []dto.MessageResponse {
	senders := make(map[uuid.UUID]dto.PrincipalDisplay)
	out := make([]dto.MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, v.message(ctx, message, senders))
	}
	return out
}

func (v *viewBuilder) participants(ctx context.Context, participants []*models.ChatParticipant, withPresence bool) []dto.ParticipantResponse {
	ids := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	displays := v.identity.ResolveMany(ctx, ids)

	var statuses map[uuid.UUID]*models.OnlineStatus
	if withPresence && v.presence != nil {
		statuses = v.presence.GetStatuses(ctx, ids)
	}

	out := make([]dto.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		resp := dto.ParticipantResponse{
			ID:       p.ID,
			ChatID:   p.ChatID,
			UserID:   p.UserID,
			Role:     p.Role,
			JoinedAt: p.JoinedAt,
			User:     displays[p.UserID],
		}
		if withPresence {
			resp.OnlineStatus = &dto.OnlineStatusResponse{Status: models.PresenceOffline}
			if status, ok := statuses[p.UserID]; ok {
				lastSeen := status.LastSeen
				resp.OnlineStatus = &dto.OnlineStatusResponse{Status: status.Status, LastSeen: &lastSeen}
			}
		}
		out = append(out, resp)
	}
	return out
}

// chat assembles a chat with its participants and latest message
func (v *viewBuilder) chat(ctx context.Context, chat *models.Chat) (dto.ChatResponse, error) {
	resp := dto.ToChatResponse(chat)

	participants, err := v.store.ListParticipants(ctx, chat.ID)
	if err != nil {
		return resp, apperrors.NewPersistenceError("list participants", err)
	}
	resp.Participants = v.participants(ctx, participants, false)

	last, err := v.store.GetLastMessage(ctx, chat.ID)
	if err != nil {
		return resp, apperrors.NewPersistenceError("get last message", err)
	}
	if last != nil {
		lastResp := v.message(ctx, last, make(map[uuid.UUID]dto.PrincipalDisplay))
		resp.LastMessage = &lastResp
	}
	return resp, nil
}

func (v *viewBuilder) chats(ctx context.Context, chats []*models.Chat) ([]dto.ChatResponse, error) {
	out := make([]dto.ChatResponse, 0, len(chats))
	for _, chat := range chats {
		resp, err := v.chat(ctx, chat)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func (v *viewBuilder) request(ctx context.Context, request *models.ChatRequest) dto.ChatRequestResponse {
	resp := dto.ToChatRequestResponse(request)
	requester := v.identity.Resolve(ctx, request.RequesterID)
	receiver := v.identity.Resolve(ctx, request.ReceiverID)
	resp.Requester = &requester
	resp.Receiver = &receiver
	return resp
}
