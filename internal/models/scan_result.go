package models

import "time"

const (
	ScanMessageValidated = "Ticket validated successfully!"
	ScanMessageRejected  = "Invalid ticket or already validated"
	ScanMessageError     = "Error validating ticket"
)

// ScanResult is what a gate operator sees after a payload was processed.
type ScanResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Ticket    *Ticket   `json:"ticket,omitempty"`
}
