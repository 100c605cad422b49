package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrSessionClosed is returned by operations on a closed session
var ErrSessionClosed = errors.New("chat session closed")

// MessageFetcher loads the authoritative history of a chat
type MessageFetcher interface {
	FetchMessages(ctx context.Context, chatID uuid.UUID) ([]dto.MessageResponse, error)
}

// SessionConfig configures Connect
type SessionConfig struct {
	// URL is the websocket endpoint, e.g. ws://host/ws
	URL         string
	Token       string
	PrincipalID uuid.UUID
	Fetcher     MessageFetcher
	Logger      zerolog.Logger
	Dialer      *websocket.Dialer
}

// Event is a server event the session did not consume itself
type Event struct {
	Name string
	Data json.RawMessage
}

// SendError is a server error for a message this session sent
type SendError struct {
	Entry   Entry
	Payload dto.ErrorPayload
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed: %s (%s)", e.Payload.Message, e.Payload.Code)
}

type serverFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type clientFrame struct {
	Event           string      `json:"event"`
	Data            interface{} `json:"data"`
	ClientMessageID string      `json:"clientMessageId,omitempty"`
}

// Session is one authenticated realtime connection with its client state
type Session struct {
	Timeline *Timeline
	Chats    *ChatList

	principalID uuid.UUID
	conn        *websocket.Conn
	fetcher     MessageFetcher
	logger      zerolog.Logger

	writeMu sync.Mutex

	stateMu sync.RWMutex
	typing  map[string]bool
	online  map[uuid.UUID]models.PresenceStatus

	events chan Event
	errs   chan error

	closeOnce sync.Once
	done      chan struct{}
}

// Connect dials the realtime endpoint with the principal's token
func Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}
	q := endpoint.Query()
	q.Set("token", cfg.Token)
	endpoint.RawQuery = q.Encode()

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake rejected with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}

	s := &Session{
		Timeline:    NewTimeline(),
		Chats:       NewChatList(),
		principalID: cfg.PrincipalID,
		conn:        conn,
		fetcher:     cfg.Fetcher,
		logger:      cfg.Logger.With().Str("component", "chat_session").Logger(),
		typing:      make(map[string]bool),
		online:      make(map[uuid.UUID]models.PresenceStatus),
		events:      make(chan Event, 64),
		errs:        make(chan error, 16),
		done:        make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events delivers server events not handled by the session itself
func (s *Session) Events() <-chan Event { return s.events }

// Errors delivers server error events; send failures arrive as *SendError
func (s *Session) Errors() <-chan error { return s.errs }

// Done is closed once the connection has ended
func (s *Session) Done() <-chan struct{} { return s.done }

// OpenChat switches the timeline to chatID. Live messages that arrive while
// history is loading are kept and the history is merged in front of them.
func (s *Session) OpenChat(ctx context.Context, chatID uuid.UUID) error {
	if previous := s.Timeline.ChatID(); previous != uuid.Nil && previous != chatID {
		if err := s.write(clientFrame{Event: dto.EventLeaveChat, Data: map[string]string{"chatId": previous.String()}}); err != nil {
			return err
		}
	}
	s.Timeline.Open(chatID, nil)
	if err := s.write(clientFrame{Event: dto.EventJoinChat, Data: map[string]string{"chatId": chatID.String()}}); err != nil {
		return err
	}
	if s.fetcher == nil {
		return nil
	}
	page, err := s.fetcher.FetchMessages(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	if s.Timeline.ChatID() == chatID {
		s.Timeline.Merge(page)
	}
	return nil
}

// Send shows content immediately and emits send_message carrying the entry's
// correlation id. The entry is rolled back when the frame cannot be written.
func (s *Session) Send(content string, msgType models.MessageType, replyTo *uuid.UUID) (Entry, error) {
	entry, err := s.Timeline.AddOptimistic(s.principalID, content, msgType, replyTo)
	if err != nil {
		return Entry{}, err
	}
	data := map[string]interface{}{
		"chatId":  entry.ChatID.String(),
		"content": content,
		"type":    string(entry.Type),
	}
	if replyTo != nil {
		data["replyTo"] = replyTo.String()
	}
	if err := s.write(clientFrame{Event: dto.EventSendMessage, Data: data, ClientMessageID: entry.CorrelationID}); err != nil {
		s.Timeline.RollbackLast(entry.CorrelationID)
		return Entry{}, err
	}
	return entry, nil
}

// SetTyping emits a typing indicator for the open chat
func (s *Session) SetTyping(isTyping bool) error {
	chatID := s.Timeline.ChatID()
	if chatID == uuid.Nil {
		return ErrNoChatOpen
	}
	return s.write(clientFrame{Event: dto.EventTyping, Data: map[string]interface{}{
		"chatId":   chatID.String(),
		"isTyping": isTyping,
	}})
}

// MarkRead marks one message, or the whole open chat when messageID is nil
func (s *Session) MarkRead(messageID *uuid.UUID) error {
	chatID := s.Timeline.ChatID()
	if chatID == uuid.Nil {
		return ErrNoChatOpen
	}
	data := map[string]interface{}{"chatId": chatID.String()}
	if messageID != nil {
		data["messageId"] = messageID.String()
	}
	return s.write(clientFrame{Event: dto.EventMarkRead, Data: data})
}

// IsTyping reports the last typing state seen for a user in a chat
func (s *Session) IsTyping(userID, chatID uuid.UUID) bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.typing[typingKey(userID, chatID)]
}

// Status returns the last presence seen for a user
func (s *Session) Status(userID uuid.UUID) (models.PresenceStatus, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	status, ok := s.online[userID]
	return status, ok
}

// Close ends the connection
func (s *Session) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	err := s.conn.Close()
	<-s.done
	return err
}

func (s *Session) write(frame clientFrame) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to write %s: %w", frame.Event, err)
	}
	return nil
}

func typingKey(userID, chatID uuid.UUID) string {
	return userID.String() + "-" + chatID.String()
}

func (s *Session) readLoop() {
	defer func() {
		s.closeOnce.Do(func() { close(s.done) })
		close(s.events)
		close(s.errs)
	}()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("Chat connection closed unexpectedly")
			}
			return
		}
		var frame serverFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.logger.Warn().Err(err).Msg("Ignoring malformed server frame")
			continue
		}
		s.handle(frame)
	}
}

func (s *Session) handle(frame serverFrame) {
	switch frame.Event {
	case dto.EventNewMessage:
		var msg dto.MessageResponse
		if s.decode(frame, &msg) {
			s.Timeline.Confirm(msg)
			s.Chats.ApplyMessage(msg)
		}
	case dto.EventUserTyping:
		var p dto.TypingPayload
		if s.decode(frame, &p) {
			s.stateMu.Lock()
			s.typing[typingKey(p.UserID, p.ChatID)] = p.IsTyping
			s.stateMu.Unlock()
		}
	case dto.EventUserStatusChanged:
		var p dto.StatusChangedPayload
		if s.decode(frame, &p) {
			s.stateMu.Lock()
			s.online[p.UserID] = p.Status
			s.stateMu.Unlock()
		}
		s.forward(frame)
	case dto.EventChatCreated:
		var chat dto.ChatResponse
		if s.decode(frame, &chat) {
			s.Chats.Add(chat)
		}
		s.forward(frame)
	case dto.EventError:
		var p dto.ErrorPayload
		if !s.decode(frame, &p) {
			return
		}
		var err error = fmt.Errorf("%s: %s", p.Code, p.Message)
		if p.Event == dto.EventSendMessage {
			if entry, ok := s.Timeline.RollbackLast(p.ClientMessageID); ok {
				err = &SendError{Entry: entry, Payload: p}
			}
		}
		select {
		case s.errs <- err:
		default:
			s.logger.Warn().Str("code", string(p.Code)).Msg("Dropping server error, nobody is reading")
		}
	default:
		s.forward(frame)
	}
}

func (s *Session) decode(frame serverFrame, dst interface{}) bool {
	if err := json.Unmarshal(frame.Data, dst); err != nil {
		s.logger.Warn().Err(err).Str("event", frame.Event).Msg("Ignoring malformed event data")
		return false
	}
	return true
}

func (s *Session) forward(frame serverFrame) {
	select {
	case s.events <- Event{Name: frame.Event, Data: frame.Data}:
	default:
		s.logger.Debug().Str("event", frame.Event).Msg("Dropping event, nobody is reading")
	}
}
