package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers operational metrics for the synchronization loop and
// the transport. All methods are safe on a nil receiver so callers can run
// without metrics wired.
type Collector struct {
	registry       *prometheus.Registry
	polls          *prometheus.CounterVec
	pollDuration   prometheus.Histogram
	coalescedTicks prometheus.Counter
	mutations      *prometheus.CounterVec
	snapshotOrders prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expeditor_polls_total",
				Help: "Order board polls by result",
			},
			[]string{"result"},
		),
		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "expeditor_poll_duration_seconds",
				Help:    "Time taken to fetch the order board",
				Buckets: prometheus.DefBuckets,
			},
		),
		coalescedTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expeditor_coalesced_ticks_total",
				Help: "Timer ticks skipped because a poll was already in flight",
			},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expeditor_mutations_total",
				Help: "Status mutation requests by kind and result",
			},
			[]string{"kind", "result"},
		),
		snapshotOrders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "expeditor_snapshot_orders",
				Help: "Orders held in the current snapshot",
			},
		),
	}

	c.registry.MustRegister(
		c.polls,
		c.pollDuration,
		c.coalescedTicks,
		c.mutations,
		c.snapshotOrders,
	)
	return c
}

// Handler exposes the collector's registry for a /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordPoll records one completed poll attempt.
func (c *Collector) RecordPoll(duration time.Duration, ok bool) {
	if c == nil {
		return
	}
	c.polls.WithLabelValues(resultLabel(ok)).Inc()
	c.pollDuration.Observe(duration.Seconds())
}

// RecordCoalescedTick records a timer tick that was skipped.
func (c *Collector) RecordCoalescedTick() {
	if c == nil {
		return
	}
	c.coalescedTicks.Inc()
}

// RecordMutation records one status mutation request. Kind is "order" or
// "item".
func (c *Collector) RecordMutation(kind string, ok bool) {
	if c == nil {
		return
	}
	c.mutations.WithLabelValues(kind, resultLabel(ok)).Inc()
}

// SetSnapshotSize records the order count after a snapshot replacement.
func (c *Collector) SetSnapshotSize(n int) {
	if c == nil {
		return
	}
	c.snapshotOrders.Set(float64(n))
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
