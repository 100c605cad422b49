// Package chatclient is the client side of the realtime chat: an optimistic
// message timeline reconciled against server confirmations, the chat list and
// a websocket session that keeps both current.
package chatclient

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
)

// ErrNoChatOpen is returned when sending without an open chat
var ErrNoChatOpen = errors.New("no chat is open")

// EntryState is the reconciliation phase of a timeline entry
type EntryState string

const (
	EntryPending   EntryState = "pending"
	EntryConfirmed EntryState = "confirmed"
)

// Entry is one message in the timeline. Pending entries carry a temporary id
// and the correlation id sent with them; confirmed entries carry the server message.
type Entry struct {
	ID            string
	CorrelationID string
	State         EntryState
	ChatID        uuid.UUID
	SenderID      uuid.UUID
	Content       string
	Type          models.MessageType
	ReplyTo       *uuid.UUID
	CreatedAt     time.Time
	Message       *dto.MessageResponse
}

func confirmedEntry(msg dto.MessageResponse) Entry {
	return Entry{
		ID:            msg.ID.String(),
		CorrelationID: msg.ClientMessageID,
		State:         EntryConfirmed,
		ChatID:        msg.ChatID,
		SenderID:      msg.SenderID,
		Content:       msg.Content,
		Type:          msg.Type,
		ReplyTo:       msg.ReplyTo,
		CreatedAt:     msg.CreatedAt,
		Message:       &msg,
	}
}

// Timeline is the ordered message sequence of the open chat. It is safe for
// concurrent use.
type Timeline struct {
	mu      sync.RWMutex
	chatID  uuid.UUID
	entries []Entry
	seq     int
	now     func() time.Time
}

// NewTimeline creates an empty timeline with no chat open
func NewTimeline() *Timeline {
	return &Timeline{now: time.Now}
}

// ChatID returns the open chat, or uuid.Nil
func (t *Timeline) ChatID() uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chatID
}

// Open discards the current sequence and starts chatID from the given page
func (t *Timeline) Open(chatID uuid.UUID, page []dto.MessageResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chatID = chatID
	t.entries = make([]Entry, 0, len(page))
	for _, msg := range page {
		if msg.ChatID == chatID {
			t.entries = append(t.entries, confirmedEntry(msg))
		}
	}
}

// Merge puts an authoritative history page in front of whatever arrived live
// since the chat was opened. Messages already present are skipped.
func (t *Timeline) Merge(page []dto.MessageResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()

	present := make(map[string]struct{}, len(t.entries))
	for _, e := range t.entries {
		if e.State == EntryConfirmed {
			present[e.ID] = struct{}{}
		}
	}
	merged := make([]Entry, 0, len(page)+len(t.entries))
	for _, msg := range page {
		if msg.ChatID != t.chatID {
			continue
		}
		if _, ok := present[msg.ID.String()]; ok {
			continue
		}
		merged = append(merged, confirmedEntry(msg))
	}
	t.entries = append(merged, t.entries...)
}

// AddOptimistic appends an unconfirmed entry before any network round-trip
func (t *Timeline) AddOptimistic(senderID uuid.UUID, content string, msgType models.MessageType, replyTo *uuid.UUID) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.chatID == uuid.Nil {
		return Entry{}, ErrNoChatOpen
	}
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	t.seq++
	entry := Entry{
		ID:            fmt.Sprintf("temp-%d", t.seq),
		CorrelationID: uuid.NewString(),
		State:         EntryPending,
		ChatID:        t.chatID,
		SenderID:      senderID,
		Content:       content,
		Type:          msgType,
		ReplyTo:       replyTo,
		CreatedAt:     t.now(),
	}
	t.entries = append(t.entries, entry)
	return entry, nil
}

// Confirm applies a server-confirmed message. A message echoing the
// correlation id of a pending entry replaces exactly that entry; otherwise
// every pending entry of the same sender is dropped. Messages of other chats
// and repeated confirmations are ignored. It reports whether the timeline changed.
func (t *Timeline) Confirm(msg dto.MessageResponse) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.chatID == uuid.Nil || msg.ChatID != t.chatID {
		return false
	}
	id := msg.ID.String()
	for _, e := range t.entries {
		if e.State == EntryConfirmed && e.ID == id {
			return false
		}
	}

	matched := -1
	if msg.ClientMessageID != "" {
		for i, e := range t.entries {
			if e.State == EntryPending && e.CorrelationID == msg.ClientMessageID {
				matched = i
				break
			}
		}
	}

	kept := t.entries[:0]
	for i, e := range t.entries {
		switch {
		case matched >= 0 && i == matched:
			continue
		case matched < 0 && e.State == EntryPending && e.SenderID == msg.SenderID:
			continue
		}
		kept = append(kept, e)
	}
	t.entries = append(kept, confirmedEntry(msg))
	return true
}

// RollbackLast removes the pending entry a send error refers to: the one with
// the given correlation id, or the newest pending entry when the id is empty.
func (t *Timeline) RollbackLast(correlationID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if e.State != EntryPending {
			continue
		}
		if correlationID != "" && e.CorrelationID != correlationID {
			continue
		}
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return e, true
	}
	return Entry{}, false
}

// Entries returns a copy of the sequence in display order
func (t *Timeline) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Pending counts the unconfirmed entries of a sender
func (t *Timeline) Pending(senderID uuid.UUID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.entries {
		if e.State == EntryPending && e.SenderID == senderID {
			n++
		}
	}
	return n
}
