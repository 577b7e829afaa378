package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pool", Name: "rides_created_total", Help: "Total rides created"})

	SeatRequests = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pool", Name: "seat_requests_total", Help: "Total seat requests submitted"})
	Decisions    = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_pool", Name: "decisions_total", Help: "Creator decisions by outcome"},
		[]string{"decision"},
	)
	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pool", Name: "seat_conflicts_total", Help: "Accept attempts that lost the race for the last seat"})

	StaleRidesClosed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pool", Name: "stale_rides_closed_total", Help: "Rides closed by the read-path reaper"})

	ChatMessages  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pool", Name: "chat_messages_total", Help: "Chat messages appended to the log"})
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_pool", Name: "ws_connections", Help: "Currently connected realtime clients"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_pool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_pool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
