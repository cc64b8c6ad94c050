package models

import "time"

type TicketEventType string

const (
	TicketIssued    TicketEventType = "ticket.issued"
	TicketValidated TicketEventType = "ticket.validated"
	TicketRejected  TicketEventType = "ticket.rejected"
	TicketDeleted   TicketEventType = "ticket.deleted"
)

// Rejection reasons carried by ticket.rejected events.
const (
	ReasonAlreadyValidated = "already_validated"
	ReasonUnknownTicket    = "unknown_ticket"
)

// TicketEvent describes a change (or refused change) to the ticket collections.
// Rejected events only carry the scanned payload in Ticket.QRCode.
type TicketEvent struct {
	Type       TicketEventType `json:"type"`
	Ticket     Ticket          `json:"ticket"`
	Reason     string          `json:"reason,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}
