package chatclient

import (
	"testing"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
)

func serverMessage(chatID, senderID uuid.UUID, content, correlationID string) dto.MessageResponse {
	return dto.MessageResponse{
		ID:              uuid.New(),
		ChatID:          chatID,
		SenderID:        senderID,
		Content:         content,
		Type:            models.MessageTypeText,
		CreatedAt:       time.Now(),
		ClientMessageID: correlationID,
	}
}

func contents(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func assertContents(t *testing.T, tl *Timeline, want ...string) {
	t.Helper()
	got := contents(tl.Entries())
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAddOptimisticRequiresOpenChat(t *testing.T) {
	tl := NewTimeline()
	if _, err := tl.AddOptimistic(uuid.New(), "hi", "", nil); err != ErrNoChatOpen {
		t.Fatalf("expected ErrNoChatOpen, got %v", err)
	}
}

func TestConfirmWithoutCorrelationDropsSendersPending(t *testing.T) {
	chatID, me := uuid.New(), uuid.New()
	tl := NewTimeline()
	tl.Open(chatID, nil)

	first, err := tl.AddOptimistic(me, "one", "", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.State != EntryPending || first.Type != models.MessageTypeText {
		t.Fatalf("unexpected optimistic entry %+v", first)
	}
	if _, err := tl.AddOptimistic(me, "two", "", nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !tl.Confirm(serverMessage(chatID, me, "one", "")) {
		t.Fatal("confirmation should change the timeline")
	}
	assertContents(t, tl, "one")
	if n := tl.Pending(me); n != 0 {
		t.Fatalf("expected no pending entries, got %d", n)
	}
}

func TestConfirmWithCorrelationReplacesOnlyThatEntry(t *testing.T) {
	chatID, me := uuid.New(), uuid.New()
	tl := NewTimeline()
	tl.Open(chatID, nil)

	first, _ := tl.AddOptimistic(me, "one", "", nil)
	tl.AddOptimistic(me, "two", "", nil)

	tl.Confirm(serverMessage(chatID, me, "one", first.CorrelationID))
	assertContents(t, tl, "two", "one")

	entries := tl.Entries()
	if entries[0].State != EntryPending || entries[1].State != EntryConfirmed {
		t.Fatalf("unexpected states %+v", entries)
	}
	if tl.Pending(me) != 1 {
		t.Fatalf("second send must stay pending")
	}
}

func TestConfirmIgnoresOtherChatsAndDuplicates(t *testing.T) {
	chatID, me, peer := uuid.New(), uuid.New(), uuid.New()
	tl := NewTimeline()
	tl.Open(chatID, nil)
	tl.AddOptimistic(me, "mine", "", nil)

	if tl.Confirm(serverMessage(uuid.New(), me, "elsewhere", "")) {
		t.Fatal("message from another chat must be ignored")
	}

	msg := serverMessage(chatID, peer, "hello", "")
	if !tl.Confirm(msg) {
		t.Fatal("peer message should be appended")
	}
	if tl.Confirm(msg) {
		t.Fatal("duplicate confirmation must be ignored")
	}
	// a peer's message never clears my pending entries
	assertContents(t, tl, "mine", "hello")
	if tl.Pending(me) != 1 {
		t.Fatal("pending entry of another sender was dropped")
	}
}

func TestRollbackLast(t *testing.T) {
	chatID, me := uuid.New(), uuid.New()
	tl := NewTimeline()
	tl.Open(chatID, nil)
	a, _ := tl.AddOptimistic(me, "a", "", nil)
	tl.AddOptimistic(me, "b", "", nil)

	removed, ok := tl.RollbackLast(a.CorrelationID)
	if !ok || removed.Content != "a" {
		t.Fatalf("expected to roll back a, got %+v %v", removed, ok)
	}
	removed, ok = tl.RollbackLast("")
	if !ok || removed.Content != "b" {
		t.Fatalf("expected to roll back b, got %+v %v", removed, ok)
	}
	if _, ok := tl.RollbackLast(""); ok {
		t.Fatal("nothing left to roll back")
	}
	assertContents(t, tl)
}

func TestMergeKeepsLiveMessagesAfterHistory(t *testing.T) {
	chatID, peer := uuid.New(), uuid.New()
	tl := NewTimeline()
	tl.Open(chatID, nil)

	old := serverMessage(chatID, peer, "old", "")
	live := serverMessage(chatID, peer, "live", "")
	tl.Confirm(live)

	tl.Merge([]dto.MessageResponse{old, live, serverMessage(uuid.New(), peer, "foreign", "")})
	assertContents(t, tl, "old", "live")
}

func TestOpenReplacesSequence(t *testing.T) {
	first, second, peer := uuid.New(), uuid.New(), uuid.New()
	tl := NewTimeline()
	tl.Open(first, []dto.MessageResponse{serverMessage(first, peer, "x", "")})
	assertContents(t, tl, "x")

	tl.Open(second, []dto.MessageResponse{serverMessage(second, peer, "y", "")})
	assertContents(t, tl, "y")
	if tl.ChatID() != second {
		t.Fatalf("expected chat %s open", second)
	}
}
