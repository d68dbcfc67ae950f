package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sns_notify_publish_total",
			Help: "Number of pipeline executions by outcome.",
		},
		[]string{"outcome"},
	)

	publishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sns_notify_publish_duration_seconds",
			Help:    "Time spent in the remote publish call.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		publishTotal,
		publishDuration,
	)
}

const outcomeSuccess = "success"
