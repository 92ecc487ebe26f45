package signaling

import (
	"time"

	"github.com/fathomrtc/signalcore/internal/metrics"
)

// Thin wrappers around internal/metrics, kept here so the dispatcher and
// handlers never import the metric names directly — only the event
// outcomes that are meaningful to the signaling protocol itself.

func recordEventOutcome(event string, status string) {
	metrics.SignalingEvents.WithLabelValues(event, status).Inc()
}

func recordEventDuration(event string, start time.Time) {
	metrics.MessageProcessingDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
}

func recordIngressDrop(reason string) {
	metrics.IngressDropped.WithLabelValues(reason).Inc()
}

func recordReapDuration(start time.Time) {
	metrics.ReapDuration.Observe(time.Since(start).Seconds())
}

func publishRegistryGauges(activeClients, activeRooms, queueDepth int) {
	metrics.ActiveClients.Set(float64(activeClients))
	metrics.ActiveRooms.Set(float64(activeRooms))
	metrics.IngressQueueDepth.Set(float64(queueDepth))
}
