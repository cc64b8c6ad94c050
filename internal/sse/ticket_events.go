package sse

import (
	"context"
	"sync"

	"qr-ticketing/internal/models"
)

// AllEvents subscribes to every event type.
const AllEvents models.TicketEventType = ""

const clientBuffer = 10

// TicketEventEmitter manages SSE connections and event broadcasting for
// ticket events. It implements tickets.Observer.
type TicketEventEmitter struct {
	// key: event type (AllEvents for the unfiltered feed), value: client channels
	clients map[models.TicketEventType][]chan models.TicketEvent
	mu      sync.RWMutex
}

func NewTicketEventEmitter() *TicketEventEmitter {
	return &TicketEventEmitter{
		clients: make(map[models.TicketEventType][]chan models.TicketEvent),
	}
}

// Subscribe registers a client for one event type, or all of them with
// AllEvents. The channel is closed once ctx is done.
func (e *TicketEventEmitter) Subscribe(ctx context.Context, eventType models.TicketEventType) <-chan models.TicketEvent {
	clientChan := make(chan models.TicketEvent, clientBuffer)

	e.mu.Lock()
	e.clients[eventType] = append(e.clients[eventType], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(eventType, clientChan)
	}()

	return clientChan
}

// Emit broadcasts to the unfiltered feed and to subscribers of the event's
// type. Slow clients miss events instead of stalling the caller.
func (e *TicketEventEmitter) Emit(event models.TicketEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, key := range []models.TicketEventType{AllEvents, event.Type} {
		for _, clientChan := range e.clients[key] {
			select {
			case clientChan <- event:
			default:
				// buffer full, skip this client
			}
		}
		if event.Type == AllEvents {
			break
		}
	}
}

func (e *TicketEventEmitter) Observe(_ context.Context, event models.TicketEvent) {
	e.Emit(event)
}

func (e *TicketEventEmitter) removeClient(eventType models.TicketEventType, clientChan chan models.TicketEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventType]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[eventType] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[eventType]) == 0 {
		delete(e.clients, eventType)
	}
}

// ClientCount returns the number of clients subscribed under eventType.
func (e *TicketEventEmitter) ClientCount(eventType models.TicketEventType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventType])
}
