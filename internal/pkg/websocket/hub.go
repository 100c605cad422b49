package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Audience selects which room an envelope is delivered to
type Audience string

const (
	AudienceChat      Audience = "chat"
	AudiencePrincipal Audience = "principal"
)

// Envelope is one encoded frame addressed to a room. Envelopes are what the
// hub hands to listeners and what other nodes relay back in.
type Envelope struct {
	Audience Audience        `json:"audience"`
	Target   uuid.UUID       `json:"target"`
	Exclude  *uuid.UUID      `json:"exclude,omitempty"`
	Frame    json.RawMessage `json:"frame"`
	Origin   string          `json:"origin"`
}

type roomChange struct {
	client *Client
	chatID uuid.UUID
}

type directFrame struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and the rooms they joined.
// All room state is owned by the Run loop; it is only reachable through
// register, join, leave and delivery.
type Hub struct {
	nodeID string

	// Registered clients
	clients map[*Client]struct{}

	// Personal rooms keyed by principal id
	principals map[uuid.UUID]map[*Client]struct{}

	// Chat rooms keyed by chat id
	chats map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan roomChange
	leave      chan roomChange
	deliver    chan Envelope
	direct     chan directFrame
	done       chan struct{}
	stopped    chan struct{}

	// Guards the maps for the read-only stats accessors
	mu sync.RWMutex

	listenersMu sync.RWMutex
	listeners   []chan Envelope

	presence      services.PresenceService
	presenceQueue *presenceQueue

	logger zerolog.Logger
}

var _ services.Notifier = (*Hub)(nil)

// NewHub creates a new Hub instance. presence may be nil.
func NewHub(nodeID string, presence services.PresenceService, logger zerolog.Logger) *Hub {
	return &Hub{
		nodeID:        nodeID,
		clients:       make(map[*Client]struct{}),
		principals:    make(map[uuid.UUID]map[*Client]struct{}),
		chats:         make(map[uuid.UUID]map[*Client]struct{}),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		join:          make(chan roomChange),
		leave:         make(chan roomChange),
		deliver:       make(chan Envelope, 256),
		direct:        make(chan directFrame, 256),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
		presence:      presence,
		presenceQueue: newPresenceQueue(),
		logger:        logger,
	}
}

// SetPresence attaches the presence service. It must be called before Run.
func (h *Hub) SetPresence(presence services.PresenceService) {
	h.presence = presence
}

// NodeID identifies this process among relaying nodes
func (h *Hub) NodeID() string {
	return h.nodeID
}

// Run starts the hub and blocks until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	go h.runPresence(ctx)

	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			h.removeClient(client)
		}
		h.mu.Unlock()
		close(h.done)
		h.logger.Info().Msg("Hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case change := <-h.join:
			h.joinRoom(change)

		case change := <-h.leave:
			h.leaveRoom(change)

		case env := <-h.deliver:
			h.deliverEnvelope(env)

		case frame := <-h.direct:
			h.deliverDirect(frame)
		}
	}
}

// registerClient adds the client and its personal room, then marks the principal online
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	room, ok := h.principals[client.principal.ID]
	if !ok {
		room = make(map[*Client]struct{})
		h.principals[client.principal.ID] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	h.presenceQueue.push(presenceChange{principalID: client.principal.ID, connectionID: client.id, online: true})

	h.logger.Info().
		Str("connectionID", client.id).
		Str("principalID", client.principal.ID.String()).
		Str("kind", string(client.principal.Kind)).
		Msg("Client registered")
}

// unregisterClient removes the client from every room
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	h.removeClient(client)

	h.logger.Info().
		Str("connectionID", client.id).
		Str("principalID", client.principal.ID.String()).
		Msg("Client unregistered")
}

// removeClient prunes the client and queues offline once the principal has no
// connections left. Callers hold h.mu.
func (h *Hub) removeClient(client *Client) {
	delete(h.clients, client)
	close(client.send)

	for chatID := range client.rooms {
		if room, ok := h.chats[chatID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.chats, chatID)
			}
		}
	}
	client.rooms = nil

	principalID := client.principal.ID
	if room, ok := h.principals[principalID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.principals, principalID)
			h.presenceQueue.push(presenceChange{principalID: principalID, online: false})
		}
	}
}

func (h *Hub) joinRoom(change roomChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[change.client]; !ok {
		return
	}
	room, ok := h.chats[change.chatID]
	if !ok {
		room = make(map[*Client]struct{})
		h.chats[change.chatID] = room
	}
	room[change.client] = struct{}{}
	change.client.rooms[change.chatID] = struct{}{}

	h.logger.Debug().
		Str("connectionID", change.client.id).
		Str("chatID", change.chatID.String()).
		Msg("Client joined chat room")
}

func (h *Hub) leaveRoom(change roomChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[change.client]; !ok {
		return
	}
	delete(change.client.rooms, change.chatID)
	if room, ok := h.chats[change.chatID]; ok {
		delete(room, change.client)
		if len(room) == 0 {
			delete(h.chats, change.chatID)
		}
	}
}

// deliverEnvelope sends the frame to every connection of the target room
func (h *Hub) deliverEnvelope(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var room map[*Client]struct{}
	switch env.Audience {
	case AudienceChat:
		room = h.chats[env.Target]
	case AudiencePrincipal:
		room = h.principals[env.Target]
	}
	if len(room) == 0 {
		return
	}

	var slow []*Client
	for client := range room {
		if env.Exclude != nil && client.principal.ID == *env.Exclude {
			continue
		}
		select {
		case client.send <- env.Frame:
		default:
			slow = append(slow, client)
		}
	}

	// Slow clients are dropped; their writePump closes the socket.
	for _, client := range slow {
		h.logger.Warn().
			Str("connectionID", client.id).
			Str("principalID", client.principal.ID.String()).
			Msg("Dropping slow client")
		h.removeClient(client)
	}
}

func (h *Hub) deliverDirect(frame directFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[frame.client]; !ok {
		return
	}
	select {
	case frame.client.send <- frame.data:
	default:
		h.removeClient(frame.client)
	}
}

// Stopped is closed once Run returned and the final presence changes were written
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopped
}

// Register adds a connection to the hub
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection from the hub. Unknown clients are ignored.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join adds a connection to a chat room
func (h *Hub) Join(client *Client, chatID uuid.UUID) {
	select {
	case h.join <- roomChange{client: client, chatID: chatID}:
	case <-h.done:
	}
}

// Leave removes a connection from a chat room. Leaving a room twice is a no-op.
func (h *Hub) Leave(client *Client, chatID uuid.UUID) {
	select {
	case h.leave <- roomChange{client: client, chatID: chatID}:
	case <-h.done:
	}
}

// SendTo queues a frame for one connection only
func (h *Hub) SendTo(client *Client, event string, payload interface{}) {
	data, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode frame")
		return
	}
	select {
	case h.direct <- directFrame{client: client, data: data}:
	case <-h.done:
	}
}

// NotifyPrincipal sends an event to every connection of the principal
func (h *Hub) NotifyPrincipal(principalID uuid.UUID, event string, payload interface{}) {
	h.publish(AudiencePrincipal, principalID, nil, event, payload)
}

// BroadcastToChat sends an event to every connection in the chat room
func (h *Hub) BroadcastToChat(chatID uuid.UUID, event string, payload interface{}, exclude *uuid.UUID) {
	h.publish(AudienceChat, chatID, exclude, event, payload)
}

func (h *Hub) publish(audience Audience, target uuid.UUID, exclude *uuid.UUID, event string, payload interface{}) {
	data, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode frame")
		return
	}
	env := Envelope{
		Audience: audience,
		Target:   target,
		Exclude:  exclude,
		Frame:    data,
		Origin:   h.nodeID,
	}
	h.notifyListeners(env)
	h.enqueue(env)
}

// DeliverRemote delivers an envelope relayed from another node to local
// connections. Envelopes from this node are ignored.
func (h *Hub) DeliverRemote(env Envelope) {
	if env.Origin == h.nodeID {
		return
	}
	h.enqueue(env)
}

func (h *Hub) enqueue(env Envelope) {
	select {
	case h.deliver <- env:
	case <-h.done:
	}
}

// notifyListeners hands a locally published envelope to every listener
func (h *Hub) notifyListeners(env Envelope) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, listener := range h.listeners {
		select {
		case listener <- env:
		default:
			h.logger.Warn().Msg("Skipped slow envelope listener")
		}
	}
}

// AddListener registers a channel to receive every envelope published on this node
func (h *Hub) AddListener(listener chan Envelope) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	h.listeners = append(h.listeners, listener)
	h.logger.Info().Msg("Added envelope listener")
}

// RemoveListener removes a listener from the hub
func (h *Hub) RemoveListener(listener chan Envelope) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	for i, l := range h.listeners {
		if l == listener {
			h.listeners[i] = h.listeners[len(h.listeners)-1]
			h.listeners = h.listeners[:len(h.listeners)-1]
			h.logger.Info().Msg("Removed envelope listener")
			break
		}
	}
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsConnected reports whether the principal has at least one connection on this node
func (h *Hub) IsConnected(principalID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.principals[principalID]) > 0
}

// RoomSize returns the number of connections in a chat room
func (h *Hub) RoomSize(chatID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chats[chatID])
}
