package ticket_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"qr-ticketing/internal/logger"
	"qr-ticketing/internal/models"
	"qr-ticketing/internal/monitoring"
	"qr-ticketing/internal/sse"
	"qr-ticketing/internal/tickets"
	qr "qr-ticketing/internal/tickets/qr_generator"
	"qr-ticketing/internal/utils"
)

type Handler struct {
	Store       *tickets.Store
	QRGenerator *qr.QRGenerator
	Events      *sse.TicketEventEmitter
	Monitor     *monitoring.Monitor
	Logger      *logger.Logger
}

func NewHandler(store *tickets.Store, generator *qr.QRGenerator, events *sse.TicketEventEmitter, monitor *monitoring.Monitor, log *logger.Logger) *Handler {
	return &Handler{
		Store:       store,
		QRGenerator: generator,
		Events:      events,
		Monitor:     monitor,
		Logger:      log,
	}
}

// payloadRequest is the body of issue and scan requests.
type payloadRequest struct {
	QRCode string `json:"qr_code"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "Storage unavailable", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}

func (h *Handler) ListValid(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Valid tickets", h.Store.ListValid(r.Context())))
}

func (h *Handler) ListValidated(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Validated tickets", h.Store.ListValidated(r.Context())))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket counts", h.Store.Stats(r.Context())))
}

// IssueTicket creates a ticket for the payload in the request body.
// Expected POST request body: {"qr_code": "..."}
func (h *Handler) IssueTicket(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	// typed payloads lose stray whitespace; scans are matched verbatim
	ticket, err := h.Store.Issue(r.Context(), strings.TrimSpace(payload))
	if err != nil {
		h.writeStoreError(w, "Failed to issue ticket", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket issued", ticket))
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Store.FindByID(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeStoreError(w, "Ticket not found", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket", ticket))
}

// TicketQR renders the ticket payload as a PNG. ?size= picks the edge length.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid size", fmt.Errorf("size must be a positive integer, got %q", raw))
			return
		}
		size = parsed
	}

	ticket, err := h.Store.FindByID(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeStoreError(w, "Ticket not found", err)
		return
	}

	var png []byte
	if size == 0 {
		png, err = h.QRGenerator.GenerateTicketQR(ticket)
	} else {
		png, err = h.QRGenerator.Generate(ticket.QRCode, size)
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to render QR code", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// DeleteTicket removes a ticket that has not been validated yet.
func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	removed, err := h.Store.DeleteValid(r.Context(), ticketID)
	if err != nil {
		h.writeStoreError(w, "Failed to delete ticket", err)
		return
	}
	if !removed {
		h.writeError(w, http.StatusNotFound, "Ticket not found", fmt.Errorf("%w: no valid ticket %s", tickets.ErrTicketNotFound, ticketID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Scan checks in a payload read by a remote scanner.
// Expected POST request body: {"qr_code": "..."}
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	result := h.Store.Checkin(r.Context(), payload)
	outcome := monitoring.ScanOutcome(result)
	h.Monitor.TrackScan(result)
	h.Logger.LogScan(outcome, payload)

	status := http.StatusOK
	switch outcome {
	case monitoring.OutcomeRejected:
		status = http.StatusUnprocessableEntity
	case monitoring.OutcomeError:
		status = http.StatusServiceUnavailable
	}

	utils.WriteJSON(w, status, utils.APIResponse{
		Success:   result.Success,
		Message:   result.Message,
		Data:      result,
		Timestamp: result.Timestamp,
	})
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req payloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return "", false
	}
	if strings.TrimSpace(req.QRCode) == "" {
		h.writeError(w, http.StatusBadRequest, "qr_code is required", errors.New("empty qr_code"))
		return "", false
	}
	return req.QRCode, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tickets.ErrTicketNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tickets.ErrNotEligible):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, tickets.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	h.writeError(w, status, message, err)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.Logger.Error("HTTP", fmt.Sprintf("%s: %v", message, err))
	}
	utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
}

// eventTypeFilter maps ?type= to an event type; empty means every type.
func eventTypeFilter(raw string) (models.TicketEventType, error) {
	switch t := models.TicketEventType(raw); t {
	case sse.AllEvents, models.TicketIssued, models.TicketValidated, models.TicketRejected, models.TicketDeleted:
		return t, nil
	}
	return "", fmt.Errorf("unknown event type %q", raw)
}
