package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrCaptureStart wraps every failure to open a capture source.
	ErrCaptureStart   = errors.New("capture start failure")
	ErrAlreadyRunning = errors.New("scanner already running")
	// ErrNoCode is returned by readers for frames or lines without a payload.
	// The scanner drops these silently.
	ErrNoCode = errors.New("no code found")
)

// stopTimeout bounds how long Stop waits for a pending read.
var stopTimeout = 2 * time.Second

type Config struct {
	FPS   int // frames per second for frame sources
	QRBox int // side of the centred decode region in pixels, 0 for the whole frame
	// RepeatWindow suppresses a payload decoded again within this duration.
	RepeatWindow time.Duration
}

// Source opens a capture device.
type Source interface {
	Open(ctx context.Context, cfg Config) (Reader, error)
}

// Reader yields decoded payloads one at a time. Read returns ErrNoCode when
// nothing was decoded and io.EOF once the device is exhausted. Close must be
// safe to call more than once and should unblock a pending Read.
type Reader interface {
	Read(ctx context.Context) (string, error)
	Close() error
}

// Scanner turns a Source into a stream of decoded strings. It knows nothing
// about tickets.
type Scanner struct {
	source Source
	cfg    Config
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	reader  Reader
	done    chan struct{}
	lastErr error
}

func New(source Source, cfg Config) *Scanner {
	return &Scanner{source: source, cfg: cfg, now: time.Now}
}

// Start opens the source and returns the payload stream. The channel is
// closed when the scanner stops, ctx ends or the source runs dry; a stopped
// stream cannot be resumed, a new Start returns a new channel.
func (s *Scanner) Start(ctx context.Context) (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, ErrAlreadyRunning
	}

	reader, err := s.source.Open(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureStart, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	out := make(chan string)
	done := make(chan struct{})

	s.cancel = cancel
	s.reader = reader
	s.done = done
	s.lastErr = nil

	go s.run(runCtx, reader, out, done)
	return out, nil
}

// Stop cancels future deliveries. Stopping an idle scanner is a no-op. The
// scanner can be started again as soon as Stop returns.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	cancel, reader, done := s.cancel, s.reader, s.done
	s.cancel, s.reader, s.done = nil, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	reader.Close()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		// the reader is stuck in a read that Close could not interrupt; the
		// goroutine exits on its own once that read returns
	}
	return nil
}

// Running reports whether a stream is active.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Err returns the error that ended the last stream, if any. Cancellation and
// end of input are not errors.
func (s *Scanner) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Scanner) run(ctx context.Context, reader Reader, out chan<- string, done chan struct{}) {
	var endErr error
	defer func() {
		reader.Close()

		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.cancel, s.reader, s.done = nil, nil, nil
			s.lastErr = endErr
		}
		s.mu.Unlock()

		close(out)
		close(done)
	}()

	var last string
	var lastAt time.Time

	for {
		payload, err := reader.Read(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrNoCode) {
			continue
		}
		if err != nil {
			if !isEndOfInput(err) {
				endErr = err
			}
			return
		}

		now := s.now()
		if s.cfg.RepeatWindow > 0 && payload == last && now.Sub(lastAt) < s.cfg.RepeatWindow {
			continue
		}
		last, lastAt = payload, now

		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}
