package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridepool"

var (
	RidesMaterialized = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_materialized_total", Help: "Rides generated from contracts"})
	DaysSkipped       = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "materialize_days_skipped_total", Help: "Scheduled days that already had a ride"})
	DayFailures       = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "materialize_day_failures_total", Help: "Scheduled days that failed to materialize"})
	TickDuration      = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "daily_tick_duration_seconds", Help: "Duration of the rolling materialization run"})

	RequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_request_transitions_total", Help: "Ride request status changes"},
		[]string{"status"},
	)
	CapacityRejections = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "capacity_rejections_total", Help: "Confirmations refused for lack of seats"})

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total", Help: "Domain events handed to sinks"},
		[]string{"sink", "result"},
	)
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ws_clients", Help: "Connected event stream clients"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
