package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"qr-ticketing/internal/logger"
	"qr-ticketing/internal/models"
)

// EventTypeHeader carries the TicketEventType on every published message.
const EventTypeHeader = "event-type"

// Producer publishes ticket events. It implements tickets.Observer.
type Producer struct {
	Writer *kafka.Writer
	topic  string
	log    *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.LogKafka("publish_failed", topic, fmt.Sprintf("%d messages: %v", len(messages), err))
			}
		},
	}
	return &Producer{Writer: writer, topic: topic, log: log}
}

// Observe streams the event to Kafka without waiting for the broker.
func (p *Producer) Observe(ctx context.Context, event models.TicketEvent) {
	msg, err := NewEventMessage(event)
	if err != nil {
		p.log.LogKafka("encode_failed", p.topic, err.Error())
		return
	}

	// async writes outlive the request that triggered them
	if err := p.Writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.log.LogKafka("publish_failed", p.topic, err.Error())
		return
	}
	p.log.LogKafka(string(event.Type), p.topic, "key="+string(msg.Key))
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NewEventMessage keys the message by ticket id so every event of a ticket
// lands on the same partition. Rejected scans have no id and use the payload.
func NewEventMessage(event models.TicketEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	key := event.Ticket.ID
	if key == "" {
		key = event.Ticket.QRCode
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(event.Type)},
		},
	}, nil
}
