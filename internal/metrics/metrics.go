package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Autosave flush outcomes by trigger source, and persistence failures by
// operation. Registered on the default registry and served at /metrics.
var (
	AutosaveFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "benefitnav",
		Subsystem: "autosave",
		Name:      "flushes_total",
		Help:      "Draft save attempts by trigger source and outcome.",
	}, []string{"trigger", "outcome"})

	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "benefitnav",
		Subsystem: "persistence",
		Name:      "failures_total",
		Help:      "Storage operation failures by operation.",
	}, []string{"operation"})

	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "benefitnav",
		Subsystem: "applications",
		Name:      "submissions_total",
		Help:      "Application submissions by benefit type and outcome.",
	}, []string{"benefit_type", "outcome"})
)
