package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	FanoutPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_publish_failures_total",
			Help: "Realtime publish failures by sink (session, redis)",
		},
		[]string{"sink"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notification sink publishes by result",
		},
		[]string{"result"},
	)

	MessagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total messages durably stored",
		},
	)
)
