package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Options tunes connection deadlines and buffers
type Options struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than PongWait
	PingPeriod time.Duration
	// Maximum message size allowed from peer
	MaxMessageSize int64
	// Outbound frames buffered per connection before it counts as slow
	SendBuffer int
	// Inbound frames buffered per connection; extra frames are rejected as busy
	InboundBuffer int
	// Origins allowed to open a socket. Empty allows any origin.
	AllowedOrigins []string
}

// DefaultOptions are used for zero fields
func DefaultOptions() Options {
	return Options{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		InboundBuffer:  64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.InboundBuffer <= 0 {
		o.InboundBuffer = d.InboundBuffer
	}
	return o
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Connection id, unique per socket
	id string

	principal models.Principal

	hub *Hub

	// The WebSocket connection
	conn *websocket.Conn

	// Buffered channel of outbound frames. Only the hub writes and closes it.
	send chan []byte

	// Frames waiting for the dispatcher, in arrival order
	inbound chan InboundFrame

	// Chat rooms joined; owned by the hub's Run loop
	rooms map[uuid.UUID]struct{}

	// Cancelled when the socket closes
	ctx    context.Context
	cancel context.CancelFunc

	opts   Options
	logger zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, id string, principal models.Principal, opts Options, logger zerolog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:        id,
		principal: principal,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, opts.SendBuffer),
		inbound:   make(chan InboundFrame, opts.InboundBuffer),
		rooms:     make(map[uuid.UUID]struct{}),
		ctx:       ctx,
		cancel:    cancel,
		opts:      opts,
		logger: logger.With().
			Str("connectionID", id).
			Str("principalID", principal.ID.String()).
			Logger(),
	}
}

// ID returns the connection id
func (c *Client) ID() string { return c.id }

// Principal returns the authenticated principal behind the connection
func (c *Client) Principal() models.Principal { return c.principal }

// readPump pumps frames from the websocket connection to the dispatcher queue.
// On close it leaves the hub at once; it never waits for the dispatcher.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.cancel()
		close(c.inbound)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			// Don't log normal close conditions as warnings
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Msg("WebSocket closed normally")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Event == "" {
			c.logger.Debug().Err(err).Msg("Rejected malformed frame")
			c.hub.SendTo(c, dto.EventError, dto.ErrorPayload{
				Message: "Malformed event frame",
				Code:    dto.ErrorCodeValidationFailed,
			})
			continue
		}

		c.enqueue(frame)
	}
}

// enqueue hands a frame to the dispatcher without blocking the read loop.
// A full queue rejects the frame with a scoped error so the socket keeps
// being read and a close is still noticed while a handler is stalled.
func (c *Client) enqueue(frame InboundFrame) bool {
	select {
	case c.inbound <- frame:
		return true
	default:
	}
	c.logger.Warn().Str("event", frame.Event).Msg("Inbound queue full, rejecting frame")
	c.hub.SendTo(c, dto.EventError, dto.ErrorPayload{
		Message:         "Too many pending events, try again",
		Code:            dto.ErrorCodeBusy,
		Event:           frame.Event,
		ClientMessageID: frame.ClientMessageID,
	})
	return false
}

// writePump pumps frames from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatchPump handles queued frames one at a time, in arrival order
func (c *Client) dispatchPump(d *Dispatcher) {
	for frame := range c.inbound {
		if c.ctx.Err() != nil {
			// Socket is gone; drop what is still queued
			continue
		}
		d.Dispatch(c.ctx, c, frame)
	}
}
