package monitoring

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qr-ticketing/internal/models"
)

var (
	ticketCollection = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_in_collection",
			Help: "Current number of tickets per collection",
		},
		[]string{"collection"},
	)

	ticketEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_events_total",
			Help: "Total ticket events by type and rejection reason",
		},
		[]string{"type", "reason"},
	)

	scanOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_scans_total",
			Help: "Total check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Scan outcomes.
const (
	OutcomeValidated = "validated"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// StatsSource reports collection sizes.
type StatsSource interface {
	Stats(ctx context.Context) models.TicketStats
}

// Monitor records ticket metrics. It implements tickets.Observer.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Run refreshes the collection gauges from stats every interval until ctx is
// done.
func (m *Monitor) Run(ctx context.Context, stats StatsSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Collect(ctx, stats)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Collect(ctx, stats)
		}
	}
}

func (m *Monitor) Collect(ctx context.Context, stats StatsSource) {
	current := stats.Stats(ctx)
	ticketCollection.WithLabelValues("valid").Set(float64(current.Valid))
	ticketCollection.WithLabelValues("validated").Set(float64(current.Validated))
}

func (m *Monitor) Observe(_ context.Context, event models.TicketEvent) {
	ticketEvents.WithLabelValues(string(event.Type), event.Reason).Inc()
}

// TrackScan counts a check-in result.
func (m *Monitor) TrackScan(result models.ScanResult) {
	scanOutcomes.WithLabelValues(ScanOutcome(result)).Inc()
}

func (m *Monitor) TrackRequest(method, route string, status int, duration time.Duration) {
	requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func ScanOutcome(result models.ScanResult) string {
	switch {
	case result.Success:
		return OutcomeValidated
	case result.Message == models.ScanMessageError:
		return OutcomeError
	default:
		return OutcomeRejected
	}
}
