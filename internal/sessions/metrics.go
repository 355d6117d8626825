package sessions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Total number of sessions created",
	})

	sessionJoinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_joins_total",
		Help: "Total number of join attempts by outcome",
	}, []string{"outcome"})

	codeCollisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_code_collisions_total",
		Help: "Total number of join-code collisions hit during creation",
	})
)

func recordJoin(outcome string) {
	sessionJoinsTotal.WithLabelValues(outcome).Inc()
}
