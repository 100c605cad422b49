package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories/gormstore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type notification struct {
	principal uuid.UUID
	chat      uuid.UUID
	event     string
	payload   interface{}
	exclude   *uuid.UUID
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) NotifyPrincipal(principalID uuid.UUID, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{principal: principalID, event: event, payload: payload})
}

func (n *recordingNotifier) BroadcastToChat(chatID uuid.UUID, event string, payload interface{}, exclude *uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{chat: chatID, event: event, payload: payload, exclude: exclude})
}

func (n *recordingNotifier) byEvent(event string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, e := range n.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

// storeMembers answers membership straight from the store
type storeMembers struct {
	store *gormstore.Store
}

func (m storeMembers) IsParticipant(ctx context.Context, chatID, principalID uuid.UUID) (bool, error) {
	p, err := m.store.GetParticipant(ctx, chatID, principalID)
	return p != nil, err
}

type fixture struct {
	store     *gormstore.Store
	notifier  *recordingNotifier
	publisher *recordingPublisher
	svc       *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, func(store *gormstore.Store) repositories.Store { return store })
}

// newFixtureWith builds the services over wrap(store) while setup helpers keep
// writing to the plain store
func newFixtureWith(t *testing.T, wrap func(*gormstore.Store) repositories.Store) *fixture {
	t.Helper()
	store, err := gormstore.OpenInMemory(zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	svc := NewServices(Dependencies{
		Store:     wrap(store),
		Members:   storeMembers{store: store},
		Notifier:  notifier,
		Publisher: publisher,
		Logger:    zerolog.Nop(),
	})
	return &fixture{store: store, notifier: notifier, publisher: publisher, svc: svc}
}

var errStoreDown = errors.New("database is unavailable")

// flakyStore fails the selected operations once switched on
type flakyStore struct {
	*gormstore.Store
	mu      sync.Mutex
	failing map[string]bool
}

func (s *flakyStore) fail(ops ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = make(map[string]bool, len(ops))
	for _, op := range ops {
		s.failing[op] = true
	}
}

func (s *flakyStore) broken(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failing[op]
}

func (s *flakyStore) CreateMessage(ctx context.Context, message *models.Message) error {
	if s.broken("messages") {
		return errStoreDown
	}
	return s.Store.CreateMessage(ctx, message)
}

func (s *flakyStore) UpsertOnlineStatus(ctx context.Context, status *models.OnlineStatus) error {
	if s.broken("presence") {
		return errStoreDown
	}
	return s.Store.UpsertOnlineStatus(ctx, status)
}

func (s *flakyStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.broken("directory") {
		return nil, errStoreDown
	}
	return s.Store.GetUserByID(ctx, userID)
}

func (s *flakyStore) GetAdminByID(ctx context.Context, adminID uuid.UUID) (*models.Admin, error) {
	if s.broken("directory") {
		return nil, errStoreDown
	}
	return s.Store.GetAdminByID(ctx, adminID)
}

func newFlakyFixture(t *testing.T) (*fixture, *flakyStore) {
	t.Helper()
	var flaky *flakyStore
	f := newFixtureWith(t, func(store *gormstore.Store) repositories.Store {
		flaky = &flakyStore{Store: store}
		return flaky
	})
	return f, flaky
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &models.User{ID: uuid.New(), Name: name, Email: name + "@example.edu", IsApproved: true}
	if err := f.store.DB().Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (f *fixture) admin(t *testing.T, name string) uuid.UUID {
	t.Helper()
	a := &models.Admin{ID: uuid.New(), Name: name, Email: name + "@admin.example.edu", Role: models.AdminRoleSuper, IsActive: true}
	if err := f.store.DB().Create(a).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return a.ID
}

// connect runs the request workflow and returns the resulting chat id
func (f *fixture) connect(t *testing.T, requester, receiver uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	req, err := f.svc.ChatRequests.SendRequest(ctx, requester, receiver, "hi")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	result, err := f.svc.ChatRequests.RespondToRequest(ctx, req.ID, receiver, models.ChatRequestAccepted)
	if err != nil {
		t.Fatalf("accept request: %v", err)
	}
	if result.Chat == nil {
		t.Fatalf("accept returned no chat")
	}
	return result.Chat.ID
}
