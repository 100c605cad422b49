package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Routing keys of the domain events published for downstream consumers
const (
	RoutingMessageCreated       = "chat.message.created"
	RoutingChatRequestCreated   = "chat.request.created"
	RoutingChatRequestResponded = "chat.request.responded"
	RoutingChatCreated          = "chat.created"
	RoutingPresenceChanged      = "presence.changed"
)

// Notifier delivers realtime events to connected clients
type Notifier interface {
	// NotifyPrincipal sends to every connection in the principal's personal room
	NotifyPrincipal(principalID uuid.UUID, event string, payload interface{})
	// BroadcastToChat sends to every connection that joined the chat room,
	// skipping the connections of exclude when it is set
	BroadcastToChat(chatID uuid.UUID, event string, payload interface{}, exclude *uuid.UUID)
}

// DomainEventPublisher publishes domain events to a message broker
type DomainEventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// publishEvent publishes best-effort; a broker outage never fails the operation
func publishEvent(ctx context.Context, publisher DomainEventPublisher, logger zerolog.Logger, routingKey string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, routingKey, payload); err != nil {
		logger.Warn().Err(err).Str("routingKey", routingKey).Msg("Failed to publish domain event")
	}
}
