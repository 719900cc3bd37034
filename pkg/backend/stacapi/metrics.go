package stacapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "geoquery",
	Subsystem: "stacapi",
	Name:      "requests_total",
	Help:      "requests sent to STAC APIs by response status",
}, []string{"status"})

func observeRequest(resp *http.Response, err error) {
	requestCount.WithLabelValues(statusLabel(resp, err)).Inc()
}
