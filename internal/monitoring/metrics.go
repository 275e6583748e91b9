package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_allocation_operations_total",
			Help: "Total allocator operations by outcome",
		},
		[]string{"operation", "event_id", "status"},
	)

	allocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_allocation_duration_seconds",
			Help:    "Duration of allocator operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	soldOutBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_sold_out_broadcasts_total",
			Help: "Total sold-out notifications published",
		},
	)
)

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// TrackAllocation counts one allocator operation with its outcome.
func (m *Monitor) TrackAllocation(operation, eventID, status string) {
	allocationOps.WithLabelValues(operation, eventID, status).Inc()
}

// TrackDuration records how long an allocator operation took.
func (m *Monitor) TrackDuration(operation string, d time.Duration) {
	allocationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// TrackSoldOut counts one published sold-out broadcast.
func (m *Monitor) TrackSoldOut() {
	soldOutBroadcasts.Inc()
}
