package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"retail-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "events").Logger()

const (
	SaleCreated   = "created"
	SalesImported = "imported"
	SalesDeleted  = "deleted"
	StatusUpdated = "status-updated"
)

// Event describes a change to the sales collection.
type Event struct {
	Type           string       `json:"type"`
	ID             string       `json:"id"`
	SaleIDs        []string     `json:"saleIds,omitempty"`
	Count          int          `json:"count,omitempty"`
	Sale           *entity.Sale `json:"sale,omitempty"`
	Status         string       `json:"status,omitempty"`
	PreviousStatus string       `json:"previousStatus,omitempty"`
	At             time.Time    `json:"at"`
}

// Key is the message key, e.g. sale-created-ORD-1.
func (e Event) Key() string {
	return fmt.Sprintf("sale-%s-%s", e.Type, e.ID)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: eventJSON,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Key(), err)
	}
	logger.Debug().Msgf("Published %s", event.Key())
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LocalPublisher hands events straight to a handler when no broker is configured.
type LocalPublisher struct {
	handler Handler
}

func NewLocalPublisher(handler Handler) *LocalPublisher {
	return &LocalPublisher{handler: handler}
}

func (p *LocalPublisher) Publish(ctx context.Context, event Event) error {
	if p.handler == nil {
		return nil
	}
	return p.handler.Handle(ctx, event)
}

// Decode parses a message produced by KafkaPublisher.
func Decode(msg kafka.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", string(msg.Key), err)
	}
	return event, nil
}
