package services

import (
	"context"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PresenceStore is the slice of persistence presence tracking needs
type PresenceStore interface {
	repositories.PresenceStore
	ListPeerIDs(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error)
}

// PresenceService tracks liveness and tells peers about changes.
// Presence is best-effort: storage failures are logged and never returned.
type PresenceService interface {
	MarkOnline(ctx context.Context, principalID uuid.UUID, connectionID string)
	MarkOffline(ctx context.Context, principalID uuid.UUID)
	GetStatuses(ctx context.Context, principalIDs []uuid.UUID) map[uuid.UUID]*models.OnlineStatus
}

type presenceServiceImpl struct {
	store     PresenceStore
	notifier  Notifier
	publisher DomainEventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPresenceService creates a new PresenceService
func NewPresenceService(store PresenceStore, notifier Notifier, publisher DomainEventPublisher, logger zerolog.Logger) PresenceService {
	return &presenceServiceImpl{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MarkOnline records the principal as online. Peers are only told when the
// stored status actually changes, so extra tabs do not repeat the event.
func (s *presenceServiceImpl) MarkOnline(ctx context.Context, principalID uuid.UUID, connectionID string) {
	s.transition(ctx, principalID, models.PresenceOnline, &connectionID)
}

// MarkOffline records the principal as offline and tells its peers
func (s *presenceServiceImpl) MarkOffline(ctx context.Context, principalID uuid.UUID) {
	s.transition(ctx, principalID, models.PresenceOffline, nil)
}

func (s *presenceServiceImpl) transition(ctx context.Context, principalID uuid.UUID, status models.PresenceStatus, connectionID *string) {
	log := s.logger.With().
		Str("principalID", principalID.String()).
		Str("status", string(status)).
		Logger()

	previous, err := s.store.GetOnlineStatus(ctx, principalID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read previous presence")
		previous = nil
	}

	now := s.now()
	if err := s.store.UpsertOnlineStatus(ctx, &models.OnlineStatus{
		UserID:   principalID,
		Status:   status,
		LastSeen: now,
		SocketID: connectionID,
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to persist presence")
	}

	if previous != nil && previous.Status == status {
		log.Debug().Msg("Presence unchanged, skipping fan-out")
		return
	}

	payload := dto.StatusChangedPayload{
		UserID:   principalID,
		Status:   status,
		LastSeen: now,
	}
	s.fanOut(ctx, principalID, payload, log)
	publishEvent(ctx, s.publisher, s.logger, RoutingPresenceChanged, payload)
}

// fanOut sends exactly one event per distinct peer, however many chats they share
func (s *presenceServiceImpl) fanOut(ctx context.Context, principalID uuid.UUID, payload dto.StatusChangedPayload, log zerolog.Logger) {
	if s.notifier == nil {
		return
	}
	peers, err := s.store.ListPeerIDs(ctx, principalID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list peers for presence fan-out")
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(peers))
	for _, peer := range peers {
		if peer == principalID {
			continue
		}
		if _, dup := seen[peer]; dup {
			continue
		}
		seen[peer] = struct{}{}
		s.notifier.NotifyPrincipal(peer, dto.EventUserStatusChanged, payload)
	}
	log.Debug().Int("peers", len(seen)).Msg("Presence fanned out")
}

// GetStatuses returns the known presence rows keyed by principal id
func (s *presenceServiceImpl) GetStatuses(ctx context.Context, principalIDs []uuid.UUID) map[uuid.UUID]*models.OnlineStatus {
	out := make(map[uuid.UUID]*models.OnlineStatus, len(principalIDs))
	if len(principalIDs) == 0 {
		return out
	}
	statuses, err := s.store.ListOnlineStatuses(ctx, principalIDs)
	if err != nil {
		s.logger.Warn().Err(err).Int("count", len(principalIDs)).Msg("Failed to list presence")
		return out
	}
	for _, status := range statuses {
		out[status.UserID] = status
	}
	return out
}
