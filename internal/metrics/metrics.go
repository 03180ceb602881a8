// Package metrics exposes chat counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "studyhall",
		Name:      "sessions_active",
		Help:      "Open realtime chat connections.",
	})
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studyhall",
		Name:      "rooms_created_total",
		Help:      "Rooms created through the directory.",
	})
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studyhall",
		Name:      "messages_appended_total",
		Help:      "Messages durably appended to a room history.",
	})
	AppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studyhall",
		Name:      "append_failures_total",
		Help:      "Sends rejected because the append did not commit.",
	})
	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studyhall",
		Name:      "broadcast_dropped_total",
		Help:      "Deliveries skipped because a session queue was full or closed.",
	})
)
