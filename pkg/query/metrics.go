package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var planClauseCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "geoquery",
	Subsystem: "plan",
	Name:      "clauses_total",
	Help:      "query clauses by whether the backend or the client handled them",
}, []string{"clause", "handled"})

func observeClause(clause string, native bool) {
	handled := "client"
	if native {
		handled = "native"
	}
	planClauseCount.WithLabelValues(clause, handled).Inc()
}
