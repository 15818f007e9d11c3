package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCartSyncMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartSyncMetrics(reg)

	m.IncSync("ok")
	m.IncSync("ok")
	m.IncSync("corrected")
	m.IncCorrection()
	m.IncUnsyncableLine()
	m.IncOrderPlacement("direct", "ok")
	m.ObserveSyncDuration("debounce", 42*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.syncs.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.syncs.WithLabelValues("corrected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.corrections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.unsyncable))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.orders.WithLabelValues("direct", "ok")))
}

func TestCartSyncMetricsNilSafe(t *testing.T) {
	var m *CartSyncMetrics
	assert.NotPanics(t, func() {
		m.IncSync("ok")
		m.IncCorrection()
		m.IncUnsyncableLine()
		m.IncOrderPlacement("cart", "error")
		m.ObserveSyncDuration("flush", time.Second)
	})

	empty := NewCartSyncMetrics(nil)
	assert.NotPanics(t, func() { empty.IncSync("ok") })
}
