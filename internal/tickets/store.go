package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"qr-ticketing/internal/clock"
	"qr-ticketing/internal/logger"
	"qr-ticketing/internal/models"
	"qr-ticketing/internal/storage"
)

// Persisted collection keys.
const (
	ValidTicketsKey     = "validTickets"
	ValidatedTicketsKey = "validatedTickets"
)

// Observer receives ticket events after they happened. Implementations must
// not block for long; they run on the caller's goroutine.
type Observer interface {
	Observe(ctx context.Context, event models.TicketEvent)
}

type Option func(*Store)

func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithObservers(observers ...Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, observers...) }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// Store owns the valid and validated collections. Every operation holds the
// store mutex from its first read to its last write.
type Store struct {
	mu        sync.Mutex
	kv        storage.KV
	clock     clock.Clock
	log       *logger.Logger
	newID     func() string
	observers []Observer
}

// NewStore checks once that kv answers and fails with ErrStorageUnavailable
// otherwise.
func NewStore(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, ErrStorageUnavailable
	}
	if err := kv.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s := &Store{
		kv:    kv,
		clock: clock.NewSystem(),
		log:   logger.Discard(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListValid returns the redeemable tickets in storage order. Read failures are
// logged and reported as an empty list.
func (s *Store) ListValid(ctx context.Context) []models.Ticket {
	return s.list(ctx, ValidTicketsKey)
}

// ListValidated returns the redeemed tickets in storage order.
func (s *Store) ListValidated(ctx context.Context) []models.Ticket {
	return s.list(ctx, ValidatedTicketsKey)
}

func (s *Store) Stats(ctx context.Context) models.TicketStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.TicketStats{
		Valid:     len(s.readOrEmpty(ctx, ValidTicketsKey)),
		Validated: len(s.readOrEmpty(ctx, ValidatedTicketsKey)),
	}
}

// Issue appends a new unvalidated ticket for qrCode. Payloads are not checked
// for duplicates.
func (s *Store) Issue(ctx context.Context, qrCode string) (models.Ticket, error) {
	ticket, err := s.issue(ctx, qrCode)
	if err != nil {
		s.log.Error("TICKET", fmt.Sprintf("Failed to issue ticket: %v", err))
		return models.Ticket{}, err
	}

	s.log.LogTicket("ISSUE", ticket.ID, fmt.Sprintf("issued for payload %q", ticket.QRCode))
	s.notify(ctx, models.TicketEvent{Type: models.TicketIssued, Ticket: ticket, OccurredAt: ticket.CreatedAt})
	return ticket, nil
}

func (s *Store) issue(ctx context.Context, qrCode string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid, err := s.read(ctx, ValidTicketsKey)
	if err != nil {
		return models.Ticket{}, err
	}

	ticket := models.Ticket{
		ID:        s.newID(),
		QRCode:    qrCode,
		CreatedAt: s.now(),
	}

	if err := s.write(ctx, map[string][]models.Ticket{
		ValidTicketsKey: append(valid, ticket),
	}); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// Validate redeems the first valid ticket carrying qrCode and moves it to the
// validated collection. A payload that was redeemed before, or was never
// issued, yields an error wrapping ErrNotEligible and changes nothing.
func (s *Store) Validate(ctx context.Context, qrCode string) (models.Ticket, error) {
	ticket, err := s.validate(ctx, qrCode)
	switch {
	case err == nil:
		s.log.LogTicket("VALIDATE", ticket.ID, fmt.Sprintf("validated payload %q", qrCode))
		s.notify(ctx, models.TicketEvent{Type: models.TicketValidated, Ticket: ticket, OccurredAt: *ticket.ValidatedAt})
	case errors.Is(err, ErrNotEligible):
		reason := rejectionReason(err)
		s.log.LogTicket("REJECT", "-", fmt.Sprintf("payload %q refused: %s", qrCode, reason))
		s.notify(ctx, models.TicketEvent{
			Type:       models.TicketRejected,
			Ticket:     models.Ticket{QRCode: qrCode},
			Reason:     reason,
			OccurredAt: s.now(),
		})
	default:
		s.log.Error("TICKET", fmt.Sprintf("Failed to validate payload %q: %v", qrCode, err))
	}
	return ticket, err
}

func (s *Store) validate(ctx context.Context, qrCode string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	validated, err := s.read(ctx, ValidatedTicketsKey)
	if err != nil {
		return models.Ticket{}, err
	}
	if slices.ContainsFunc(validated, func(t models.Ticket) bool { return t.QRCode == qrCode }) {
		return models.Ticket{}, ErrAlreadyValidated
	}

	valid, err := s.read(ctx, ValidTicketsKey)
	if err != nil {
		return models.Ticket{}, err
	}
	idx := slices.IndexFunc(valid, func(t models.Ticket) bool { return t.QRCode == qrCode })
	if idx == -1 {
		return models.Ticket{}, ErrUnknownTicket
	}

	ticket := valid[idx].MarkValidated(s.now())
	remaining := slices.Delete(slices.Clone(valid), idx, idx+1)

	if err := s.write(ctx, map[string][]models.Ticket{
		ValidTicketsKey:     remaining,
		ValidatedTicketsKey: append(validated, ticket),
	}); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// DeleteValid removes the valid ticket with the given id and reports whether
// one was removed. Validated tickets are never deleted.
func (s *Store) DeleteValid(ctx context.Context, id string) (bool, error) {
	ticket, removed, err := s.deleteValid(ctx, id)
	if err != nil {
		s.log.Error("TICKET", fmt.Sprintf("Failed to delete ticket %s: %v", id, err))
		return false, err
	}
	if !removed {
		s.log.Debug("TICKET", fmt.Sprintf("Delete of unknown valid ticket %s ignored", id))
		return false, nil
	}

	s.log.LogTicket("DELETE", id, "removed from valid tickets")
	s.notify(ctx, models.TicketEvent{Type: models.TicketDeleted, Ticket: ticket, OccurredAt: s.now()})
	return true, nil
}

func (s *Store) deleteValid(ctx context.Context, id string) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid, err := s.read(ctx, ValidTicketsKey)
	if err != nil {
		return models.Ticket{}, false, err
	}
	idx := slices.IndexFunc(valid, func(t models.Ticket) bool { return t.ID == id })
	if idx == -1 {
		return models.Ticket{}, false, nil
	}

	ticket := valid[idx]
	remaining := slices.Delete(slices.Clone(valid), idx, idx+1)
	if err := s.write(ctx, map[string][]models.Ticket{ValidTicketsKey: remaining}); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

// FindByID looks a ticket up in the valid collection first, then in the
// validated one.
func (s *Store) FindByID(ctx context.Context, id string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{ValidTicketsKey, ValidatedTicketsKey} {
		list, err := s.read(ctx, key)
		if err != nil {
			return models.Ticket{}, err
		}
		if idx := slices.IndexFunc(list, func(t models.Ticket) bool { return t.ID == id }); idx != -1 {
			return list[idx], nil
		}
	}
	return models.Ticket{}, ErrTicketNotFound
}

// Ping reports whether the backend still answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) list(ctx context.Context, key string) []models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOrEmpty(ctx, key)
}

func (s *Store) readOrEmpty(ctx context.Context, key string) []models.Ticket {
	tickets, err := s.read(ctx, key)
	if err != nil {
		s.log.Warn("TICKET", fmt.Sprintf("Reading %s failed, returning no tickets: %v", key, err))
		return []models.Ticket{}
	}
	return tickets
}

func (s *Store) read(ctx context.Context, key string) ([]models.Ticket, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	tickets := []models.Ticket{}
	if len(raw) == 0 {
		return tickets, nil
	}
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCollection, key, err)
	}
	if tickets == nil {
		// a stored "null"
		tickets = []models.Ticket{}
	}
	return tickets, nil
}

func (s *Store) write(ctx context.Context, collections map[string][]models.Ticket) error {
	entries := make(map[string][]byte, len(collections))
	for key, list := range collections {
		if list == nil {
			list = []models.Ticket{}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = raw
	}
	if err := s.kv.SetMany(ctx, entries); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

func (s *Store) notify(ctx context.Context, event models.TicketEvent) {
	for _, o := range s.observers {
		o.Observe(ctx, event)
	}
}

func rejectionReason(err error) string {
	if errors.Is(err, ErrAlreadyValidated) {
		return models.ReasonAlreadyValidated
	}
	return models.ReasonUnknownTicket
}
