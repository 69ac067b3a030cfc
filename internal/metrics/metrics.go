package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "padchat",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "padchat",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "padchat",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Completed sendMessage turns",
		},
		[]string{"mode", "outcome"},
	)

	GenerationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "padchat",
			Subsystem: "chat",
			Name:      "generation_failures_total",
			Help:      "Response generator failures stored as assistant messages",
		},
		[]string{"kind"},
	)

	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "padchat",
			Subsystem: "chat",
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)
)
