package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeFresh  = "fresh"
	outcomeStale  = "stale"
	outcomeMiss   = "miss"
	outcomeForced = "forced"

	resultOK    = "ok"
	resultError = "error"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iptvdeck",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by outcome tier.",
	}, []string{"outcome"})

	backgroundRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iptvdeck",
		Subsystem: "cache",
		Name:      "background_refreshes_total",
		Help:      "Background refreshes by result.",
	}, []string{"result"})

	flightsShared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "iptvdeck",
		Subsystem: "cache",
		Name:      "flights_shared_total",
		Help:      "Lookups that piggybacked on an in-flight fetch for the same key.",
	})
)
