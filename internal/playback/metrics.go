package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iptvdeck",
		Subsystem: "playback",
		Name:      "transitions_total",
		Help:      "Playback state transitions.",
	}, []string{"from", "to"})

	metricFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iptvdeck",
		Subsystem: "playback",
		Name:      "failures_total",
		Help:      "Playback failures by reaction class.",
	}, []string{"class"})

	metricRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iptvdeck",
		Subsystem: "playback",
		Name:      "recoveries_total",
		Help:      "Backend-internal media recovery attempts by result.",
	}, []string{"result"})
)
