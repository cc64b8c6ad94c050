package ticket_api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires every ticket route behind the request logging middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", h.Scan)

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", h.IssueTicket)
			r.Get("/valid", h.ListValid)
			r.Get("/validated", h.ListValidated)
			r.Get("/stats", h.Stats)
			r.Get("/events", h.StreamEvents)
			r.Get("/{ticketID}", h.GetTicket)
			r.Get("/{ticketID}/qr", h.TicketQR)
			r.Delete("/{ticketID}", h.DeleteTicket)
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		h.Monitor.TrackRequest(r.Method, route, status, duration)
		h.Logger.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), fmt.Sprintf("%.2fms", float64(duration.Microseconds())/1000))
	})
}
