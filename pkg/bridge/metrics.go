package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricGestureEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "gesture_events_total",
		Help:      "Gesture events handled by the bridge, by kind.",
	}, []string{"kind"})
	metricSummariesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "summaries_received_total",
		Help:      "SUMMARIZE_TEXT runtime messages accepted.",
	})
)
