package clients

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coachdesk_api_requests_total",
		Help: "Backend requests by method, resource and status",
	}, []string{"method", "resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coachdesk_api_request_duration_seconds",
		Help:    "Backend request latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "resource"})
)
