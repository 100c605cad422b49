package chatclient

import (
	"testing"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
)

func TestChatListOrdering(t *testing.T) {
	a := dto.ChatResponse{ID: uuid.New()}
	b := dto.ChatResponse{ID: uuid.New()}
	c := dto.ChatResponse{ID: uuid.New()}

	list := NewChatList()
	list.Set([]dto.ChatResponse{a, b})
	list.Add(c)
	list.Add(a)

	got := list.Chats()
	if len(got) != 3 || got[0].ID != c.ID || got[1].ID != a.ID || got[2].ID != b.ID {
		t.Fatalf("unexpected order after add: %v", got)
	}

	at := time.Now()
	msg := dto.MessageResponse{ID: uuid.New(), ChatID: b.ID, Content: "bump", CreatedAt: at}
	if !list.ApplyMessage(msg) {
		t.Fatal("message for listed chat should apply")
	}
	got = list.Chats()
	if got[0].ID != b.ID || got[1].ID != c.ID || got[2].ID != a.ID {
		t.Fatalf("unexpected order after message: %v", got)
	}
	if got[0].LastMessage == nil || got[0].LastMessage.Content != "bump" || !got[0].LastMessageAt.Equal(at) {
		t.Fatalf("last message not recorded: %+v", got[0])
	}

	if list.ApplyMessage(dto.MessageResponse{ChatID: uuid.New()}) {
		t.Fatal("message for unknown chat must not apply")
	}
}
