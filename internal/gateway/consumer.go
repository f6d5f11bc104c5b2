package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ConsumerConfig holds configuration for the JetStream event consumer.
type ConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConsumerConfig returns default consumer configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "SHOT_EVENTS",
		ConsumerName:  "session-gateway",
		SubjectFilter: "hotstreak.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// EventConsumer consumes scoring events from JetStream and feeds the
// spectator broadcaster.
type EventConsumer struct {
	broadcaster *Broadcaster
	nc          *nats.Conn
	js          jetstream.JetStream
	consumer    jetstream.Consumer
	config      ConsumerConfig
}

// envelope matches the shape the event publisher emits.
type envelope struct {
	SessionID string          `json:"sessionId"`
	GameID    string          `json:"gameId"`
	Event     json.RawMessage `json:"event"`
}

// NewEventConsumer connects to NATS and binds a durable consumer.
func NewEventConsumer(broadcaster *Broadcaster, config ConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		broadcaster: broadcaster,
		nc:          nc,
		js:          js,
		config:      config,
	}

	if err := ec.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Spectator gateway WebSocket consumer",
		FilterSubject: ec.config.SubjectFilter,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
	}

	consumer, err := stream.Consumer(ctx, ec.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
	}
	ec.consumer = consumer
	return nil
}

// Start begins consuming events until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	cc, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		ec.handleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log.Info().
		Str("stream", ec.config.StreamName).
		Str("consumer", ec.config.ConsumerName).
		Msg("event consumer started")

	<-ctx.Done()
	cc.Stop()
	return nil
}

func (ec *EventConsumer) handleMessage(msg jetstream.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		log.Warn().Err(err).Msg("dropping malformed event envelope")
		msg.Ack()
		return
	}

	sessionID, err := uuid.Parse(env.SessionID)
	if err != nil {
		log.Warn().Str("session_id", env.SessionID).Msg("dropping envelope with bad session id")
		msg.Ack()
		return
	}

	ec.broadcaster.Broadcast(sessionID, msg.Data())
	if err := msg.Ack(); err != nil {
		log.Warn().Err(err).Msg("failed to ack event message")
	}
}

// Close shuts the NATS connection down.
func (ec *EventConsumer) Close() error {
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
