package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// memoryBroker fans every payload out to all subscribers, including the publisher
type memoryBroker struct {
	mu   sync.Mutex
	subs []chan []byte
}

func (b *memoryBroker) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub <- payload
	}
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 64)
	b.subs = append(b.subs, ch)
	return ch, func() error { return nil }, nil
}

// recordingHub captures remote deliveries and lets the test publish locally
type recordingHub struct {
	mu        sync.Mutex
	listeners []chan websocket.Envelope
	delivered chan websocket.Envelope
	origin    string
}

func newRecordingHub(origin string) *recordingHub {
	return &recordingHub{delivered: make(chan websocket.Envelope, 16), origin: origin}
}

func (h *recordingHub) AddListener(l chan websocket.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

func (h *recordingHub) RemoveListener(chan websocket.Envelope) {}

func (h *recordingHub) DeliverRemote(env websocket.Envelope) {
	if env.Origin == h.origin {
		return
	}
	h.delivered <- env
}

func (h *recordingHub) listenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *recordingHub) publishLocal(env websocket.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.listeners {
		l <- env
	}
}

func TestRelayCrossesNodes(t *testing.T) {
	broker := &memoryBroker{}
	nodeA, nodeB := newRecordingHub("a"), newRecordingHub("b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, hub := range []*recordingHub{nodeA, nodeB} {
		r := New(broker, "test", hub, zerolog.Nop())
		go func() { _ = r.Run(ctx) }()
	}

	deadline := time.Now().Add(2 * time.Second)
	for nodeA.listenerCount() == 0 || nodeB.listenerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relays did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	chatID := uuid.New()
	frame, _ := json.Marshal(map[string]string{"event": "new_message"})
	nodeA.publishLocal(websocket.Envelope{
		Audience: websocket.AudienceChat,
		Target:   chatID,
		Frame:    frame,
		Origin:   "a",
	})

	select {
	case env := <-nodeB.delivered:
		if env.Target != chatID || env.Audience != websocket.AudienceChat || string(env.Frame) != string(frame) {
			t.Fatalf("unexpected envelope %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("node b never received the envelope")
	}

	select {
	case env := <-nodeA.delivered:
		t.Fatalf("origin node must not deliver its own envelope twice, got %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}
