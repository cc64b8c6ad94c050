package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"qr-ticketing/internal/logger"
	"qr-ticketing/internal/models"
)

type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewConsumer follows topic. Without a group id it reads partition 0 from
// the newest offset.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	if groupID == "" {
		// StartOffset only applies to group readers
		reader.SetOffset(kafka.LastOffset)
	}
	return &Consumer{reader: reader, log: log}
}

// Start hands every ticket event to handler until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler func(models.TicketEvent)) error {
	c.log.LogKafka("consume", c.reader.Config().Topic, "consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		event, err := DecodeEventMessage(msg)
		if err != nil {
			c.log.LogKafka("decode_failed", msg.Topic, fmt.Sprintf("offset %d: %v", msg.Offset, err))
			continue
		}
		handler(event)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func DecodeEventMessage(msg kafka.Message) (models.TicketEvent, error) {
	var event models.TicketEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return models.TicketEvent{}, err
	}
	if event.Type == "" {
		for _, h := range msg.Headers {
			if h.Key == EventTypeHeader {
				event.Type = models.TicketEventType(h.Value)
			}
		}
	}
	return event, nil
}
