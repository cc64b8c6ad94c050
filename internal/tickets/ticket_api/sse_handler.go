package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const heartbeatInterval = 15 * time.Second

// StreamEvents pushes ticket events to the client as Server-Sent Events until
// it disconnects. ?type= restricts the feed to one event type.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	eventType, err := eventTypeFilter(r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid event type", err)
		return
	}

	rc := http.NewResponseController(w)
	// streams outlive the server write timeout
	rc.SetWriteDeadline(time.Time{})
	ctx := r.Context()
	events := h.Events.Subscribe(ctx, eventType)

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Streaming unsupported: %v", err))
		return
	}
	h.Logger.Debug("SSE", "Client subscribed to ticket events")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize ticket event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			rc.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			rc.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", "Client disconnected from ticket events")
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
