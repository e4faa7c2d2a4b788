package cms

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imageboard_cms_requests_total",
		Help: "CMS REST calls by method and upstream status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "imageboard_cms_request_duration_seconds",
		Help:    "Latency of CMS REST calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

func observe(method, status string, start time.Time) {
	requestsTotal.WithLabelValues(method, status).Inc()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
