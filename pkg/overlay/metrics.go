package overlay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTransitionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "modifier_transitions_total",
		Help:      "Modifier lifecycle transitions applied, by modifier and kind.",
	}, []string{"modifier", "transition"})
	metricAdapterFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "adapter_failures_total",
		Help:      "Adapter calls that returned an error or panicked.",
	}, []string{"modifier"})
	metricCyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "cycles_skipped_total",
		Help:      "Orchestrator cycles suppressed because settings were still loading.",
	})
)

func recordTransition(id string, t Transition) {
	metricTransitionsApplied.WithLabelValues(id, t.String()).Inc()
}

func recordAdapterFailure(id string) {
	metricAdapterFailures.WithLabelValues(id).Inc()
}

func recordSkippedCycle() {
	metricCyclesSkipped.Inc()
}
