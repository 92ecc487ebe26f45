// Package metrics declares the Prometheus collectors for the signaling
// core and its ambient HTTP surface.
//
// Naming convention: namespace_subsystem_name
//   - namespace: signalcore (application-level grouping)
//   - subsystem: client, room, signaling, dispatcher, rate_limit
//   - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
//   - Gauge: Current state (connections, rooms, queue depth)
//   - Counter: Cumulative events (messages processed, errors)
//   - Histogram: Latency distributions (processing time, reap duration)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveClients tracks the current number of live client sessions.
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcore",
		Subsystem: "client",
		Name:      "connections_active",
		Help:      "Current number of live client sessions",
	})

	// ActiveRooms tracks the current number of ACTIVE rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcore",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of ACTIVE rooms",
	})

	// IngressQueueDepth tracks the number of entries currently queued
	// between the WebSocket I/O layer and the dispatcher.
	IngressQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcore",
		Subsystem: "dispatcher",
		Name:      "ingress_queue_depth",
		Help:      "Current number of entries queued for the dispatcher",
	})

	// SignalingEvents tracks every protocol event the dispatcher routes,
	// by event name and outcome.
	SignalingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcore",
		Subsystem: "signaling",
		Name:      "events_total",
		Help:      "Total signaling events processed",
	}, []string{"event", "status"})

	// MessageProcessingDuration tracks time spent routing a single dispatched
	// entry to its handler.
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signalcore",
		Subsystem: "signaling",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing a dispatched signaling event",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
	}, []string{"event"})

	// ReapDuration tracks how long a single reaper pass over the client and
	// room registries takes.
	ReapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "signalcore",
		Subsystem: "dispatcher",
		Name:      "reap_duration_seconds",
		Help:      "Duration of a single reaper pass",
		Buckets:   prometheus.DefBuckets,
	})

	// IngressDropped tracks frames dropped because the ingress queue was
	// full, or because they failed to parse.
	IngressDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcore",
		Subsystem: "dispatcher",
		Name:      "ingress_dropped_total",
		Help:      "Total ingress frames dropped before reaching a handler",
	}, []string{"reason"})

	// RateLimitExceeded tracks connection attempts rejected by the per-IP
	// WebSocket upgrade limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcore",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	// RateLimitRequests tracks every request checked against the limiter.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcore",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})
)

// IncConnection increments the active client gauge.
func IncConnection() {
	ActiveClients.Inc()
}

// DecConnection decrements the active client gauge.
func DecConnection() {
	ActiveClients.Dec()
}
