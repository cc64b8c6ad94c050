package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qr-ticketing/internal/models"
)

func receive(t *testing.T, ch <-chan models.TicketEvent) models.TicketEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return models.TicketEvent{}
}

func assertEmpty(t *testing.T, ch <-chan models.TicketEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func TestEmitterFiltersByType(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewTicketEventEmitter()
	all := e.Subscribe(ctx, AllEvents)
	validated := e.Subscribe(ctx, models.TicketValidated)

	e.Observe(ctx, models.TicketEvent{Type: models.TicketIssued, Ticket: models.Ticket{ID: "1"}})
	e.Observe(ctx, models.TicketEvent{Type: models.TicketValidated, Ticket: models.Ticket{ID: "1"}})

	assert.Equal(t, models.TicketIssued, receive(t, all).Type)
	assert.Equal(t, models.TicketValidated, receive(t, all).Type)
	assert.Equal(t, models.TicketValidated, receive(t, validated).Type)
	assertEmpty(t, validated)
}

func TestEmitterDropsForSlowClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewTicketEventEmitter()
	ch := e.Subscribe(ctx, AllEvents)

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*3; i++ {
			e.Emit(models.TicketEvent{Type: models.TicketIssued})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full client")
	}
	assert.Len(t, ch, clientBuffer)
}

func TestEmitterUnsubscribesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewTicketEventEmitter()

	ch := e.Subscribe(ctx, models.TicketDeleted)
	assert.Equal(t, 1, e.ClientCount(models.TicketDeleted))

	cancel()
	assert.Eventually(t, func() bool { return e.ClientCount(models.TicketDeleted) == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	assert.False(t, ok)

	// emitting after the client left must not panic
	e.Emit(models.TicketEvent{Type: models.TicketDeleted})
}
