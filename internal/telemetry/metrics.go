// Package telemetry exposes the daemon's Prometheus metrics and host
// health alongside them, so an operator scraping /metrics can tell a
// wedged bus apart from a wedged host.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every protocol-level counter and gauge the daemon
// reports: frames sent/retried/failed by the transport, events observed
// by the pools (by kind), payout plan replans, and per-pool occupancy.
type Metrics struct {
	FramesSent    prometheus.Counter
	FramesRetried prometheus.Counter
	FramesFailed  prometheus.Counter

	EventsByKind *prometheus.CounterVec

	PayoutPlanReplans prometheus.Counter

	PoolOccupancy *prometheus.GaugeVec
}

// NewMetrics registers every metric against reg and returns the handle
// callers use to record observations. reg is typically a fresh
// prometheus.NewRegistry() rather than the global default registry, so
// a test can construct its own Metrics without colliding with another
// test's collector registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cctalkd",
			Subsystem: "transport",
			Name:      "frames_sent_total",
			Help:      "Total request frames written to the bus.",
		}),
		FramesRetried: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cctalkd",
			Subsystem: "transport",
			Name:      "frames_retried_total",
			Help:      "Total request frames that were retried after a timeout, checksum mismatch, NACK or socket error.",
		}),
		FramesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cctalkd",
			Subsystem: "transport",
			Name:      "frames_failed_total",
			Help:      "Total requests that exhausted their retry budget without a valid reply.",
		}),
		EventsByKind: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cctalkd",
			Subsystem: "pool",
			Name:      "events_total",
			Help:      "Coin, bill, payout and sensor pool events observed, labeled by kind.",
		}, []string{"kind"}),
		PayoutPlanReplans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cctalkd",
			Subsystem: "payout",
			Name:      "plan_replans_total",
			Help:      "Total times a payout plan was regenerated mid-dispense after a hopper ran out.",
		}),
		PoolOccupancy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cctalkd",
			Subsystem: "pool",
			Name:      "device_count",
			Help:      "Number of devices currently registered in a pool, labeled by pool name.",
		}, []string{"pool"}),
	}
}
