package consumer

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"retail-service/internal/entity"
	"retail-service/internal/events"
)

// StockReleaser puts sold units back into inventory.
type StockReleaser interface {
	ReleaseStock(ctx context.Context, name string, quantity int) (*entity.Product, error)
}

// MessageReader is the part of *kafka.Reader the consumer loop needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Consumer struct {
	products StockReleaser
}

func NewConsumer(products StockReleaser) *Consumer {
	return &Consumer{products: products}
}

// Start reads sale events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, reader MessageReader) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info().Msg("Sale event consumer stopped")
				return
			}
			log.Error().Msgf("Error reading message: %v", err)
			continue
		}

		c.processMessage(ctx, msg)
	}
}

// processMessage processes the message received from the Kafka topic
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	event, err := events.Decode(msg)
	if err != nil {
		log.Error().Msgf("Error unmarshalling message: %v", err)
		return
	}

	if err := c.Handle(ctx, event); err != nil {
		log.Error().Msgf("Error handling %s: %v", string(msg.Key), err)
	}
}

// Handle returns stock to inventory when an order moves into the cancelled state. Other events are ignored.
func (c *Consumer) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.StatusUpdated:
		if event.Status != entity.StatusCancelled || strings.EqualFold(event.PreviousStatus, entity.StatusCancelled) {
			return nil
		}
		if event.Sale == nil || event.Sale.Quantity <= 0 {
			return nil
		}

		_, err := c.products.ReleaseStock(ctx, event.Sale.ProductName, event.Sale.Quantity)
		if errors.Is(err, entity.ErrNotFound) {
			log.Warn().Msgf("Cancelled order %s refers to unknown product %s", event.ID, event.Sale.ProductName)
			return nil
		}
		return err
	case events.SaleCreated, events.SalesImported, events.SalesDeleted:
		log.Debug().Msgf("Ignoring %s", event.Key())
		return nil
	default:
		log.Error().Msgf("Unknown sale event: %s", event.Type)
		return nil
	}
}
