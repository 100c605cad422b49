package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/google/uuid"
)

// steppingClock returns a strictly increasing time on every call
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestSendMessageBroadcastsAfterPersisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	chatID := f.connect(t, alice, bob)
	f.notifier.reset()

	resp, err := f.svc.Chats.SendMessage(ctx, alice, SendMessageInput{
		ChatID:          chatID,
		Content:         "  notes for chapter 3  ",
		ClientMessageID: "tmp-1",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.Content != "notes for chapter 3" || resp.Type != models.MessageTypeText {
		t.Fatalf("unexpected message %+v", resp)
	}
	if resp.Sender.Name != "alice" || resp.ClientMessageID != "tmp-1" {
		t.Fatalf("expected resolved sender and echoed client id, got %+v", resp)
	}

	stored, err := f.store.GetMessageByID(ctx, resp.ID)
	if err != nil {
		t.Fatalf("message not persisted: %v", err)
	}
	chat, err := f.store.GetChatByID(ctx, chatID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if chat.LastMessageAt.Before(stored.CreatedAt) {
		t.Fatalf("last activity not bumped: %v < %v", chat.LastMessageAt, stored.CreatedAt)
	}

	broadcasts := f.notifier.byEvent(dto.EventNewMessage)
	if len(broadcasts) != 1 || broadcasts[0].chat != chatID || broadcasts[0].exclude != nil {
		t.Fatalf("expected one room broadcast including the sender, got %+v", broadcasts)
	}
}

func TestSendMessageRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, mallory := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "mallory")
	chatID := f.connect(t, alice, bob)
	otherChat := f.connect(t, alice, mallory)

	foreign, err := f.svc.Chats.SendMessage(ctx, alice, SendMessageInput{ChatID: otherChat, Content: "elsewhere"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	f.notifier.reset()

	cases := map[string]struct {
		sender uuid.UUID
		input  SendMessageInput
		want   error
	}{
		"non-member": {mallory, SendMessageInput{ChatID: chatID, Content: "hi"}, apperrors.ErrForbidden},
		"empty":      {alice, SendMessageInput{ChatID: chatID, Content: "   "}, apperrors.ErrValidationFailed},
		"bad type":   {alice, SendMessageInput{ChatID: chatID, Content: "x", Type: "video"}, apperrors.ErrValidationFailed},
		"cross-chat reply": {alice, SendMessageInput{ChatID: chatID, Content: "re", ReplyTo: &foreign.ID},
			apperrors.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.svc.Chats.SendMessage(ctx, tc.sender, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if got := f.notifier.byEvent(dto.EventNewMessage); len(got) != 0 {
		t.Fatalf("rejected sends must not broadcast, got %d", len(got))
	}
}

func TestReplyPreviewAndMessagePaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	chatID := f.connect(t, alice, bob)
	f.svc.Chats.(*chatServiceImpl).now = steppingClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	first, err := f.svc.Chats.SendMessage(ctx, alice, SendMessageInput{ChatID: chatID, Content: "first"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.Chats.SendMessage(ctx, bob, SendMessageInput{ChatID: chatID, Content: "second", ReplyTo: &first.ID}); err != nil {
		t.Fatalf("send reply: %v", err)
	}
	if _, err := f.svc.Chats.SendMessage(ctx, alice, SendMessageInput{ChatID: chatID, Content: "third", Type: models.MessageTypeEmoji}); err != nil {
		t.Fatalf("send: %v", err)
	}

	all, err := f.svc.Chats.GetMessages(ctx, chatID, bob, 1, 50)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(all) != 3 || all[0].Content != "first" || all[2].Content != "third" {
		t.Fatalf("expected chronological order, got %+v", all)
	}
	if all[1].ReplyToMessage == nil || all[1].ReplyToMessage.ID != first.ID || all[1].ReplyToMessage.Sender.Name != "alice" {
		t.Fatalf("expected reply preview, got %+v", all[1].ReplyToMessage)
	}

	// page one holds the newest messages
	page, err := f.svc.Chats.GetMessages(ctx, chatID, bob, 1, 2)
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if len(page) != 2 || page[0].Content != "second" || page[1].Content != "third" {
		t.Fatalf("unexpected first page %+v", page)
	}

	if _, err := f.svc.Chats.GetMessages(ctx, chatID, f.user(t, "eve"), 1, 50); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}

	admin, err := f.svc.Chats.GetChatMessagesAsAdmin(ctx, chatID, 1, 50)
	if err != nil || len(admin) != 3 {
		t.Fatalf("admin read: %v (%d)", err, len(admin))
	}
	if _, err := f.svc.Chats.GetChatMessagesAsAdmin(ctx, uuid.New(), 1, 50); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTypingAndReadReceiptsExcludeSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	chatID := f.connect(t, alice, bob)

	if _, err := f.svc.Chats.SendMessage(ctx, alice, SendMessageInput{ChatID: chatID, Content: "ping"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	f.notifier.reset()

	if err := f.svc.Chats.Typing(ctx, bob, chatID, true); err != nil {
		t.Fatalf("typing: %v", err)
	}
	typing := f.notifier.byEvent(dto.EventUserTyping)
	if len(typing) != 1 || typing[0].exclude == nil || *typing[0].exclude != bob {
		t.Fatalf("expected typing relay excluding bob, got %+v", typing)
	}

	// non-members are dropped without an error
	if err := f.svc.Chats.Typing(ctx, f.user(t, "eve"), chatID, true); err != nil {
		t.Fatalf("typing by non-member: %v", err)
	}
	if got := f.notifier.byEvent(dto.EventUserTyping); len(got) != 1 {
		t.Fatalf("non-member typing must not relay")
	}

	if err := f.svc.Chats.MarkRead(ctx, bob, chatID, nil); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	read := f.notifier.byEvent(dto.EventMessageRead)
	if len(read) != 1 || *read[0].exclude != bob {
		t.Fatalf("expected read receipt excluding bob, got %+v", read)
	}

	msgs, err := f.svc.Chats.GetMessages(ctx, chatID, alice, 1, 50)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if !msgs[0].IsRead || msgs[0].ReadAt == nil {
		t.Fatalf("expected message marked read, got %+v", msgs[0])
	}
}

func TestListChatsAndParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	root := f.admin(t, "root")
	chatWithBob := f.connect(t, alice, bob)
	chatWithRoot := f.connect(t, root, alice)

	if _, err := f.svc.Chats.SendMessage(ctx, root, SendMessageInput{ChatID: chatWithRoot, Content: "welcome"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	chats, err := f.svc.Chats.ListChats(ctx, alice)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 2 || chats[0].ID != chatWithRoot || chats[1].ID != chatWithBob {
		t.Fatalf("expected most recent chat first, got %+v", chats)
	}
	if chats[0].LastMessage == nil || !chats[0].LastMessage.Sender.IsAdmin {
		t.Fatalf("expected admin sender on last message, got %+v", chats[0].LastMessage)
	}

	f.svc.Presence.MarkOnline(ctx, bob, "conn-1")
	participants, err := f.svc.Chats.GetParticipants(ctx, chatWithBob, alice)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	statuses := map[uuid.UUID]models.PresenceStatus{}
	for _, p := range participants {
		statuses[p.UserID] = p.OnlineStatus.Status
	}
	if statuses[bob] != models.PresenceOnline || statuses[alice] != models.PresenceOffline {
		t.Fatalf("unexpected presence %+v", statuses)
	}

	all, err := f.svc.Chats.ListAllChats(ctx, 1, 10)
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %v (%d)", err, len(all))
	}
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	f.user(t, "alina")
	f.user(t, "bob")

	if _, err := f.svc.Chats.SearchUsers(ctx, alice, " a "); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}

	found, err := f.svc.Chats.SearchUsers(ctx, alice, "ali")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "alina" {
		t.Fatalf("expected only alina, got %+v", found)
	}
}

func TestFailedMessageWriteIsNotBroadcast(t *testing.T) {
	f, flaky := newFlakyFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	chatID := f.connect(t, alice, bob)
	f.notifier.reset()

	flaky.fail("messages")
	resp, err := f.svc.Chats.SendMessage(ctx, alice, SendMessageInput{ChatID: chatID, Content: "lost", ClientMessageID: "tmp-9"})
	if !errors.Is(err, apperrors.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if resp != nil {
		t.Fatalf("expected no message, got %+v", resp)
	}
	if dto.ErrorCodeFor(err) != dto.ErrorCodeDatabaseError || dto.PublicMessage(err) != "Internal server error" {
		t.Fatalf("storage details must stay hidden, got %s %q", dto.ErrorCodeFor(err), dto.PublicMessage(err))
	}
	if got := f.notifier.byEvent(dto.EventNewMessage); len(got) != 0 {
		t.Fatalf("failed write must not broadcast, got %d", len(got))
	}

	msgs, err := f.svc.Chats.GetMessages(ctx, chatID, alice, 1, 50)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history, got %d", len(msgs))
	}
}

func TestMarkReadRejectsForeignMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	chatID := f.connect(t, alice, bob)
	otherChat := f.connect(t, alice, carol)

	foreign, err := f.svc.Chats.SendMessage(ctx, carol, SendMessageInput{ChatID: otherChat, Content: "elsewhere"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	own, err := f.svc.Chats.SendMessage(ctx, alice, SendMessageInput{ChatID: chatID, Content: "here"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	f.notifier.reset()

	for _, id := range []uuid.UUID{foreign.ID, uuid.New()} {
		id := id
		if err := f.svc.Chats.MarkRead(ctx, bob, chatID, &id); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected not found for %s, got %v", id, err)
		}
	}
	if got := f.notifier.byEvent(dto.EventMessageRead); len(got) != 0 {
		t.Fatalf("no receipt expected for foreign messages, got %d", len(got))
	}

	stored, err := f.store.GetMessageByID(ctx, foreign.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if stored.IsRead {
		t.Fatalf("message of another chat must stay unread")
	}

	// marking twice is fine; the second call changes nothing but still relays
	for i := 0; i < 2; i++ {
		if err := f.svc.Chats.MarkRead(ctx, bob, chatID, &own.ID); err != nil {
			t.Fatalf("mark read %d: %v", i, err)
		}
	}
	if got := f.notifier.byEvent(dto.EventMessageRead); len(got) != 2 {
		t.Fatalf("expected two receipts, got %d", len(got))
	}
}
