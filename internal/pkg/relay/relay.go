// Package relay mirrors realtime envelopes between nodes so a chat room can
// span several server processes.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/websocket"
	"github.com/rs/zerolog"
)

// Broker is a fan-out pub/sub transport
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns the stream of payloads and a function ending the subscription
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error)
}

// Hub is the part of the websocket hub the relay plugs into
type Hub interface {
	AddListener(listener chan websocket.Envelope)
	RemoveListener(listener chan websocket.Envelope)
	DeliverRemote(env websocket.Envelope)
}

const listenerBuffer = 1024

// Relay publishes local envelopes and delivers remote ones
type Relay struct {
	broker  Broker
	channel string
	hub     Hub
	logger  zerolog.Logger
}

// New creates a new Relay
func New(broker Broker, channel string, hub Hub, logger zerolog.Logger) *Relay {
	return &Relay{
		broker:  broker,
		channel: channel,
		hub:     hub,
		logger:  logger,
	}
}

// Run relays in both directions until ctx is cancelled
func (r *Relay) Run(ctx context.Context) error {
	incoming, unsubscribe, err := r.broker.Subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	defer func() {
		if err := unsubscribe(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to unsubscribe relay")
		}
	}()

	outgoing := make(chan websocket.Envelope, listenerBuffer)
	r.hub.AddListener(outgoing)
	defer r.hub.RemoveListener(outgoing)

	r.logger.Info().Str("channel", r.channel).Msg("Relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Relay stopped")
			return nil

		case env := <-outgoing:
			payload, err := json.Marshal(env)
			if err != nil {
				r.logger.Error().Err(err).Msg("Failed to encode envelope")
				continue
			}
			if err := r.broker.Publish(ctx, r.channel, payload); err != nil {
				r.logger.Warn().Err(err).Str("audience", string(env.Audience)).Msg("Failed to relay envelope")
			}

		case payload, ok := <-incoming:
			if !ok {
				return fmt.Errorf("relay subscription on %s closed", r.channel)
			}
			var env websocket.Envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				r.logger.Warn().Err(err).Msg("Dropping malformed relayed envelope")
				continue
			}
			r.hub.DeliverRemote(env)
		}
	}
}
