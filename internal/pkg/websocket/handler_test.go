package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories/gormstore"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/services"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type testEnv struct {
	store  *gormstore.Store
	hub    *Hub
	jwt    *auth.JWTService
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	store, err := gormstore.OpenInMemory(logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "ws-test", AccessTokenExp: time.Hour})
	gate := auth.NewGate(jwtService, store, logger)

	hub := NewHub("node-test", nil, logger)
	svc := services.NewServices(services.Dependencies{
		Store:    store,
		Members:  gate,
		Notifier: hub,
		Logger:   logger,
	})
	hub.SetPresence(svc.Presence)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Stopped()
	})

	dispatcher := NewDispatcher(hub, svc.Chats, svc.ChatRequests, logger)
	handler := NewHandler(hub, gate, dispatcher, Options{}, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", handler.HandleConnection)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{store: store, hub: hub, jwt: jwtService, server: server}
}

func (e *testEnv) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &models.User{ID: uuid.New(), Name: name, Email: name + "@example.edu", IsApproved: true}
	if err := e.store.DB().Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (e *testEnv) url(token string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?token=" + token
}

type wsConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func (e *testEnv) dial(t *testing.T, id uuid.UUID) *wsConn {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(models.Principal{ID: id, Kind: models.PrincipalUser})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(e.url(token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	waitFor(t, "registration", func() bool { return e.hub.IsConnected(id) })
	waitFor(t, "presence", func() bool {
		status, err := e.store.GetOnlineStatus(context.Background(), id)
		return err == nil && status != nil && status.Status == models.PresenceOnline
	})
	return &wsConn{t: t, conn: conn}
}

func (c *wsConn) emit(event string, data interface{}, clientMessageID string) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	frame := InboundFrame{Event: event, Data: raw, ClientMessageID: clientMessageID}
	if err := c.conn.WriteJSON(frame); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

type rawFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// expect reads until the named event arrives, skipping others
func (c *wsConn) expect(event string) json.RawMessage {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		c.conn.SetReadDeadline(deadline)
		var frame rawFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.t.Fatalf("waiting for %s: %v", event, err)
		}
		if frame.Event == event {
			return frame.Data
		}
	}
}

// expectNone fails if the named event arrives within wait
func (c *wsConn) expectNone(event string, wait time.Duration) {
	c.t.Helper()
	deadline := time.Now().Add(wait)
	for {
		c.conn.SetReadDeadline(deadline)
		var frame rawFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			// read deadline reached; a timed out conn is not reused
			return
		}
		if frame.Event == event {
			c.t.Fatalf("unexpected %s: %s", event, frame.Data)
		}
	}
}

func decode[T any](t *testing.T, data json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestUpgradeRequiresCredential(t *testing.T) {
	env := newTestEnv(t)

	for name, target := range map[string]string{
		"missing": "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws",
		"garbage": env.url("garbage"),
		"unknown": env.url(func() string {
			token, _ := env.jwt.GenerateAccessToken(models.Principal{ID: uuid.New()})
			return token
		}()),
	} {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(target, nil)
			if err == nil {
				t.Fatalf("expected the upgrade to be refused")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %+v", resp)
			}
		})
	}
	if env.hub.ConnectionCount() != 0 {
		t.Fatalf("refused connections must not register")
	}
}

func TestRequestAcceptThenMessage(t *testing.T) {
	env := newTestEnv(t)
	u1, u2, u3 := env.user(t, "u1"), env.user(t, "u2"), env.user(t, "u3")
	c1, c2, c3 := env.dial(t, u1), env.dial(t, u2), env.dial(t, u3)

	c1.emit(dto.EventSendChatRequest, map[string]string{"receiverId": u2.String(), "message": "hi"}, "")
	sent := decode[dto.ChatRequestResponse](t, c1.expect(dto.EventChatRequestSent))
	received := decode[dto.ChatRequestResponse](t, c2.expect(dto.EventChatRequestReceived))
	if received.ID != sent.ID || received.Requester == nil || received.Requester.Name != "u1" {
		t.Fatalf("unexpected received request %+v", received)
	}

	c1.emit(dto.EventSendChatRequest, map[string]string{"receiverId": u2.String(), "message": "hi again"}, "")
	dup := decode[dto.ErrorPayload](t, c1.expect(dto.EventError))
	if dup.Code != dto.ErrorCodeDuplicateRequest || dup.Event != dto.EventSendChatRequest {
		t.Fatalf("expected duplicate request error, got %+v", dup)
	}

	c2.emit(dto.EventRespondChatRequest, map[string]string{"requestId": sent.ID.String(), "status": "accepted"}, "")
	outcome := decode[dto.ChatRequestRespondedPayload](t, c1.expect(dto.EventChatRequestResponded))
	if outcome.Status != models.ChatRequestAccepted || outcome.Receiver.ID != u2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	chat := decode[dto.ChatResponse](t, c1.expect(dto.EventChatCreated))
	if len(chat.Participants) != 2 {
		t.Fatalf("expected two participants, got %+v", chat.Participants)
	}
	if got := decode[dto.ChatResponse](t, c2.expect(dto.EventChatCreated)); got.ID != chat.ID {
		t.Fatalf("both parties must see the same chat")
	}

	c1.emit(dto.EventJoinChat, chat.ID.String(), "")
	c2.emit(dto.EventJoinChat, map[string]string{"chatId": chat.ID.String()}, "")
	waitFor(t, "both joined", func() bool { return env.hub.RoomSize(chat.ID) == 2 })

	// a non-member is refused and stays out of the room
	c3.emit(dto.EventJoinChat, chat.ID.String(), "")
	denied := decode[dto.ErrorPayload](t, c3.expect(dto.EventError))
	if denied.Code != dto.ErrorCodeForbidden || denied.ChatID == nil || *denied.ChatID != chat.ID {
		t.Fatalf("expected scoped forbidden error, got %+v", denied)
	}
	c3.emit(dto.EventSendMessage, map[string]string{"chatId": chat.ID.String(), "content": "let me in"}, "tmp-u3")
	rejected := decode[dto.ErrorPayload](t, c3.expect(dto.EventError))
	if rejected.Code != dto.ErrorCodeForbidden || rejected.ClientMessageID != "tmp-u3" {
		t.Fatalf("expected correlated forbidden error, got %+v", rejected)
	}
	if env.hub.RoomSize(chat.ID) != 2 {
		t.Fatalf("non-member must not join the room")
	}

	c1.emit(dto.EventSendMessage, map[string]string{"chatId": chat.ID.String(), "content": "notes attached"}, "tmp-1")
	delivered := decode[dto.MessageResponse](t, c2.expect(dto.EventNewMessage))
	if delivered.Content != "notes attached" || delivered.Sender.Name != "u1" {
		t.Fatalf("unexpected delivery %+v", delivered)
	}
	echo := decode[dto.MessageResponse](t, c1.expect(dto.EventNewMessage))
	if echo.ID != delivered.ID || echo.ClientMessageID != "tmp-1" {
		t.Fatalf("sender must get the confirmed message with its correlation id, got %+v", echo)
	}

	messages, err := env.store.ListMessages(context.Background(), chat.ID, 0, 10, false)
	if err != nil || len(messages) != 1 {
		t.Fatalf("expected only the member's message persisted, got %d (%v)", len(messages), err)
	}
}

func TestMessagesKeepSendOrder(t *testing.T) {
	env := newTestEnv(t)
	u1, u2 := env.user(t, "u1"), env.user(t, "u2")
	c1, c2 := env.dial(t, u1), env.dial(t, u2)

	c1.emit(dto.EventSendChatRequest, map[string]string{"receiverId": u2.String()}, "")
	req := decode[dto.ChatRequestResponse](t, c2.expect(dto.EventChatRequestReceived))
	c2.emit(dto.EventRespondChatRequest, map[string]string{"requestId": req.ID.String(), "status": "accepted"}, "")
	chat := decode[dto.ChatResponse](t, c2.expect(dto.EventChatCreated))

	c1.emit(dto.EventJoinChat, chat.ID.String(), "")
	c2.emit(dto.EventJoinChat, chat.ID.String(), "")
	waitFor(t, "both joined", func() bool { return env.hub.RoomSize(chat.ID) == 2 })

	const n = 15
	for i := 0; i < n; i++ {
		c1.emit(dto.EventSendMessage, map[string]string{"chatId": chat.ID.String(), "content": string(rune('a' + i))}, "")
	}
	for i := 0; i < n; i++ {
		msg := decode[dto.MessageResponse](t, c2.expect(dto.EventNewMessage))
		if want := string(rune('a' + i)); msg.Content != want {
			t.Fatalf("message %d out of order: got %q want %q", i, msg.Content, want)
		}
	}
}

func TestBadFramesKeepConnectionAlive(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.user(t, "u1")
	c1 := env.dial(t, u1)

	if err := c1.conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := decode[dto.ErrorPayload](t, c1.expect(dto.EventError)); got.Code != dto.ErrorCodeValidationFailed {
		t.Fatalf("expected validation error, got %+v", got)
	}

	c1.emit("dance", map[string]string{}, "")
	if got := decode[dto.ErrorPayload](t, c1.expect(dto.EventError)); got.Event != "dance" || got.Code != dto.ErrorCodeValidationFailed {
		t.Fatalf("expected unknown event error, got %+v", got)
	}

	c1.emit(dto.EventSendMessage, map[string]string{"chatId": "nope", "content": "x"}, "tmp-9")
	if got := decode[dto.ErrorPayload](t, c1.expect(dto.EventError)); got.ClientMessageID != "tmp-9" || got.Code != dto.ErrorCodeValidationFailed {
		t.Fatalf("expected correlated validation error, got %+v", got)
	}

	if !env.hub.IsConnected(u1) {
		t.Fatalf("connection must survive bad frames")
	}
}

func TestPresenceFollowsLastConnection(t *testing.T) {
	env := newTestEnv(t)
	u1, u2 := env.user(t, "u1"), env.user(t, "u2")
	c2 := env.dial(t, u2)
	first := env.dial(t, u1)

	first.emit(dto.EventSendChatRequest, map[string]string{"receiverId": u2.String()}, "")
	req := decode[dto.ChatRequestResponse](t, c2.expect(dto.EventChatRequestReceived))
	c2.emit(dto.EventRespondChatRequest, map[string]string{"requestId": req.ID.String(), "status": "accepted"}, "")
	c2.expect(dto.EventChatCreated)

	env.dial(t, u1)
	first.conn.Close()
	waitFor(t, "first tab gone", func() bool { return env.hub.ConnectionCount() == 2 })
	c2.expectNone(dto.EventUserStatusChanged, 200*time.Millisecond)

	status, err := env.store.GetOnlineStatus(context.Background(), u1)
	if err != nil || status == nil || status.Status != models.PresenceOnline {
		t.Fatalf("u1 should still be online, got %+v (%v)", status, err)
	}
}

func TestDisconnectMarksOffline(t *testing.T) {
	env := newTestEnv(t)
	u1, u2 := env.user(t, "u1"), env.user(t, "u2")
	c2 := env.dial(t, u2)
	c1 := env.dial(t, u1)

	c1.emit(dto.EventSendChatRequest, map[string]string{"receiverId": u2.String()}, "")
	req := decode[dto.ChatRequestResponse](t, c2.expect(dto.EventChatRequestReceived))
	c2.emit(dto.EventRespondChatRequest, map[string]string{"requestId": req.ID.String(), "status": "accepted"}, "")
	c2.expect(dto.EventChatCreated)

	c1.conn.Close()
	changed := decode[dto.StatusChangedPayload](t, c2.expect(dto.EventUserStatusChanged))
	if changed.UserID != u1 || changed.Status != models.PresenceOffline {
		t.Fatalf("expected u1 offline, got %+v", changed)
	}
	waitFor(t, "u1 gone", func() bool { return !env.hub.IsConnected(u1) })
}
