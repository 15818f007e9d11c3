package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartSyncMetrics records the behavior of the debounced cart reconciler.
type CartSyncMetrics struct {
	duration    *prometheus.HistogramVec
	syncs       *prometheus.CounterVec
	corrections prometheus.Counter
	unsyncable  prometheus.Counter
	orders      *prometheus.CounterVec
}

// NewCartSyncMetrics registers the reconciler metrics on the provided registerer.
func NewCartSyncMetrics(reg prometheus.Registerer) *CartSyncMetrics {
	if reg == nil {
		return &CartSyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_sync_duration_seconds",
		Help:    "Duration of bulk cart sync calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_total",
		Help: "Bulk cart sync attempts by result.",
	}, []string{"result"})
	corrections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_corrections_total",
		Help: "Syncs where the server corrected at least one quantity.",
	})
	unsyncable := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_unsyncable_lines_total",
		Help: "Cart lines excluded from sync payloads for missing variant ids.",
	})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_placements_total",
		Help: "Order placements by path and result.",
	}, []string{"path", "result"})
	reg.MustRegister(duration, syncs, corrections, unsyncable, orders)
	return &CartSyncMetrics{
		duration:    duration,
		syncs:       syncs,
		corrections: corrections,
		unsyncable:  unsyncable,
		orders:      orders,
	}
}

// ObserveSyncDuration records how long a bulk sync took for the given trigger
// ("debounce" or "flush").
func (c *CartSyncMetrics) ObserveSyncDuration(trigger string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncSync counts one sync attempt with the given result ("ok", "corrected", "error").
func (c *CartSyncMetrics) IncSync(result string) {
	if c == nil || c.syncs == nil {
		return
	}
	c.syncs.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncCorrection counts a server-side stock correction.
func (c *CartSyncMetrics) IncCorrection() {
	if c == nil || c.corrections == nil {
		return
	}
	c.corrections.Inc()
}

// IncUnsyncableLine counts a line skipped from a sync payload.
func (c *CartSyncMetrics) IncUnsyncableLine() {
	if c == nil || c.unsyncable == nil {
		return
	}
	c.unsyncable.Inc()
}

// IncOrderPlacement counts one order placement by path ("direct" or "cart").
func (c *CartSyncMetrics) IncOrderPlacement(path, result string) {
	if c == nil || c.orders == nil {
		return
	}
	c.orders.WithLabelValues(normalizeLabel(path), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
