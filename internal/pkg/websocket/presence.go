package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const presenceTimeout = 5 * time.Second

type presenceChange struct {
	principalID  uuid.UUID
	connectionID string
	online       bool
}

// presenceQueue is an unbounded FIFO between the Run loop and the presence
// worker. The Run loop must never block on storage.
type presenceQueue struct {
	mu     sync.Mutex
	items  []presenceChange
	signal chan struct{}
	closed bool
}

func newPresenceQueue() *presenceQueue {
	return &presenceQueue{signal: make(chan struct{}, 1)}
}

func (q *presenceQueue) push(change presenceChange) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, change)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *presenceQueue) drain() []presenceChange {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *presenceQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// runPresence applies presence changes in the order the hub produced them.
// It outlives the Run loop long enough to record the shutdown disconnects.
func (h *Hub) runPresence(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			h.flushPresence()
			return
		case <-h.presenceQueue.signal:
			h.applyPresence(ctx, h.presenceQueue.drain())
		}
	}
}

// flushPresence applies whatever is still queued once the hub stopped
func (h *Hub) flushPresence() {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	h.presenceQueue.close()
	h.applyPresence(ctx, h.presenceQueue.drain())
}

func (h *Hub) applyPresence(ctx context.Context, changes []presenceChange) {
	if h.presence == nil {
		return
	}
	for _, change := range changes {
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), presenceTimeout)
		if change.online {
			h.presence.MarkOnline(opCtx, change.principalID, change.connectionID)
		} else {
			h.presence.MarkOffline(opCtx, change.principalID)
		}
		cancel()
	}
}
