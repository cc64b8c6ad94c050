package tickets

import (
	"context"
	"errors"

	"qr-ticketing/internal/models"
)

// Checkin validates one scanned payload and turns the outcome into the message
// shown at the gate.
func (s *Store) Checkin(ctx context.Context, payload string) models.ScanResult {
	ticket, err := s.Validate(ctx, payload)
	result := models.ScanResult{Timestamp: s.now()}

	switch {
	case err == nil:
		result.Success = true
		result.Message = models.ScanMessageValidated
		result.Ticket = &ticket
	case errors.Is(err, ErrNotEligible):
		result.Message = models.ScanMessageRejected
	default:
		result.Message = models.ScanMessageError
	}
	return result
}

// Pump checks in every payload received until the channel closes or ctx is
// done. report, when set, sees each payload with its result.
func (s *Store) Pump(ctx context.Context, payloads <-chan string, report func(payload string, result models.ScanResult)) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-payloads:
			if !ok {
				return
			}
			result := s.Checkin(ctx, payload)
			if report != nil {
				report(payload, result)
			}
		}
	}
}
