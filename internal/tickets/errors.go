package tickets

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means the KV backend could not be reached.
	ErrStorageUnavailable = errors.New("ticket storage unavailable")
	// ErrCorruptCollection means a stored collection is not a JSON ticket array.
	ErrCorruptCollection = errors.New("ticket collection is corrupt")
	// ErrNotEligible is the single outcome callers see for a refused validation.
	ErrNotEligible = errors.New("ticket not eligible for validation")
	// ErrTicketNotFound is returned by lookups and deletions of unknown ids.
	ErrTicketNotFound = errors.New("ticket not found")

	ErrAlreadyValidated = fmt.Errorf("%w: already validated", ErrNotEligible)
	ErrUnknownTicket    = fmt.Errorf("%w: unknown payload", ErrNotEligible)
)
