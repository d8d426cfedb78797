package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meta_api_requests_total",
			Help: "Total number of requests sent to the Meta Graph API",
		},
		[]string{"endpoint", "status"},
	)

	ExternalRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meta_api_request_duration_seconds",
			Help:    "Meta Graph API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total number of jobs processed by outcome",
		},
		[]string{"task_type", "outcome"},
	)

	JobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_running",
			Help: "Number of jobs currently running in this process",
		},
	)

	FactsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_facts_appended_total",
			Help: "Total number of facts appended to the ledger",
		},
	)

	ResponseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)
)

func init() {
	prometheus.MustRegister(ExternalRequests)
	prometheus.MustRegister(ExternalRequestDuration)
	prometheus.MustRegister(JobsProcessed)
	prometheus.MustRegister(JobsRunning)
	prometheus.MustRegister(FactsAppended)
	prometheus.MustRegister(ResponseTime)
}
