package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"qr-ticketing/internal/models"
)

type fixedStats models.TicketStats

func (f fixedStats) Stats(context.Context) models.TicketStats { return models.TicketStats(f) }

func TestCollectSetsGauges(t *testing.T) {
	NewMonitor().Collect(context.Background(), fixedStats{Valid: 4, Validated: 9})

	assert.Equal(t, 4.0, testutil.ToFloat64(ticketCollection.WithLabelValues("valid")))
	assert.Equal(t, 9.0, testutil.ToFloat64(ticketCollection.WithLabelValues("validated")))
}

func TestObserveCountsEvents(t *testing.T) {
	m := NewMonitor()
	counter := ticketEvents.WithLabelValues(string(models.TicketRejected), models.ReasonAlreadyValidated)
	before := testutil.ToFloat64(counter)

	m.Observe(context.Background(), models.TicketEvent{Type: models.TicketRejected, Reason: models.ReasonAlreadyValidated})
	m.Observe(context.Background(), models.TicketEvent{Type: models.TicketRejected, Reason: models.ReasonAlreadyValidated})

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestScanOutcome(t *testing.T) {
	assert.Equal(t, OutcomeValidated, ScanOutcome(models.ScanResult{Success: true, Message: models.ScanMessageValidated}))
	assert.Equal(t, OutcomeRejected, ScanOutcome(models.ScanResult{Message: models.ScanMessageRejected}))
	assert.Equal(t, OutcomeError, ScanOutcome(models.ScanResult{Message: models.ScanMessageError}))

	m := NewMonitor()
	counter := scanOutcomes.WithLabelValues(OutcomeError)
	before := testutil.ToFloat64(counter)
	m.TrackScan(models.ScanResult{Message: models.ScanMessageError})
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewMonitor().Run(ctx, fixedStats{Valid: 1}, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
