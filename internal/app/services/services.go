// Package services holds the chat core business logic: identity resolution,
// presence, the chat request workflow and messaging.
package services

import (
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Store     repositories.Store
	Members   MembershipChecker
	Notifier  Notifier
	Publisher DomainEventPublisher
	Logger    zerolog.Logger
}

// Services groups the chat core services
type Services struct {
	Identity     *IdentityResolver
	Presence     PresenceService
	ChatRequests ChatRequestService
	Chats        ChatService
}

// NewServices wires the chat core services together
func NewServices(deps Dependencies) *Services {
	identity := NewDefaultIdentityResolver(deps.Store, deps.Logger.With().Str("service", "identity").Logger())
	presence := NewPresenceService(deps.Store, deps.Notifier, deps.Publisher,
		deps.Logger.With().Str("service", "presence").Logger())

	return &Services{
		Identity: identity,
		Presence: presence,
		ChatRequests: NewChatRequestService(deps.Store, identity, deps.Notifier, deps.Publisher,
			deps.Logger.With().Str("service", "chat_request").Logger()),
		Chats: NewChatService(deps.Store, deps.Members, identity, presence, deps.Notifier, deps.Publisher,
			deps.Logger.With().Str("service", "chat").Logger()),
	}
}
