package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qr-ticketing/internal/logger"
	"qr-ticketing/internal/models"
)

var occurred = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNewEventMessageKeysByTicketID(t *testing.T) {
	event := models.TicketEvent{
		Type:       models.TicketValidated,
		Ticket:     models.Ticket{ID: "c0ffee", QRCode: "GATE-7", CreatedAt: occurred, Validated: true, ValidatedAt: &occurred},
		OccurredAt: occurred,
	}

	msg, err := NewEventMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "c0ffee", string(msg.Key))
	assert.Equal(t, occurred, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventTypeHeader, msg.Headers[0].Key)
	assert.Equal(t, "ticket.validated", string(msg.Headers[0].Value))
	assert.Contains(t, string(msg.Value), `"validatedAt":"2026-03-14T09:30:00Z"`)
}

func TestNewEventMessageRejectedScanUsesPayload(t *testing.T) {
	msg, err := NewEventMessage(models.TicketEvent{
		Type:       models.TicketRejected,
		Ticket:     models.Ticket{QRCode: "FORGED"},
		Reason:     models.ReasonUnknownTicket,
		OccurredAt: occurred,
	})
	require.NoError(t, err)
	assert.Equal(t, "FORGED", string(msg.Key))
}

func TestDecodeEventMessage(t *testing.T) {
	msg, err := NewEventMessage(models.TicketEvent{
		Type:       models.TicketRejected,
		Ticket:     models.Ticket{QRCode: "USED"},
		Reason:     models.ReasonAlreadyValidated,
		OccurredAt: occurred,
	})
	require.NoError(t, err)

	event, err := DecodeEventMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, models.TicketRejected, event.Type)
	assert.Equal(t, models.ReasonAlreadyValidated, event.Reason)
	assert.Equal(t, "USED", event.Ticket.QRCode)

	// older producers only set the header
	event, err = DecodeEventMessage(kafka.Message{
		Value:   []byte(`{"ticket":{"id":"1","qrCode":"X"}}`),
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte("ticket.issued")}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TicketIssued, event.Type)

	_, err = DecodeEventMessage(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestConsumerWithoutGroupStartsAtNewest(t *testing.T) {
	c := NewConsumer([]string{"localhost:9092"}, "ticketing.tickets", "", logger.Discard())
	defer c.Close()

	assert.Equal(t, kafka.LastOffset, c.reader.Offset())
}
