package models

import "time"

// Ticket is one issued admission. It lives in the valid collection until it
// is redeemed, then in the validated collection.
type Ticket struct {
	ID          string     `json:"id"`
	QRCode      string     `json:"qrCode"`
	CreatedAt   time.Time  `json:"createdAt"`
	Validated   bool       `json:"validated"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
}

// MarkValidated returns a copy of t redeemed at the given instant.
func (t Ticket) MarkValidated(at time.Time) Ticket {
	t.Validated = true
	t.ValidatedAt = &at
	return t
}

// TicketStats holds the sizes of both collections.
type TicketStats struct {
	Valid     int `json:"valid"`
	Validated int `json:"validated"`
}
