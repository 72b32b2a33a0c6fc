package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 10 * time.Second

// Publisher announces finished calculation runs to downstream consumers.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

type noopPublisher struct{}

// NewPublisher returns a Kafka publisher, or a no-op one when events are disabled.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return &noopPublisher{}, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("events enabled but no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("events enabled but no topic configured")
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			BatchTimeout: 10 * time.Millisecond,
		},
	}, nil
}

func NewNoopPublisher() Publisher {
	return &noopPublisher{}
}

// PublishRunCompleted writes event keyed by calculation date, so every run of
// one day lands on the same partition.
func (p *KafkaPublisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode run completed event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CalculationDate),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish run completed event: %w", err)
	}

	log.Info().
		Str("event_id", event.EventID).
		Int64("run_id", event.RunID).
		Str("status", string(event.Status)).
		Msg("run completed event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func (n *noopPublisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	return nil
}

func (n *noopPublisher) Close() error {
	return nil
}
