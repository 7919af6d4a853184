// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uboard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "uboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostEventsTotal counts post domain events by type.
	PostEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uboard_post_events_total",
		Help: "Total post domain events by type",
	}, []string{"event"})

	// CheckinRejections counts checkins refused because the event was full.
	CheckinRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uboard_checkin_rejections_total",
		Help: "Total checkins refused for capacity",
	})

	// ReportDeletions counts posts removed by the report threshold.
	ReportDeletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uboard_report_deletions_total",
		Help: "Total posts deleted after reaching the report threshold",
	})

	// MailFailures counts notification emails the mailer could not send.
	MailFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uboard_mail_failures_total",
		Help: "Total emails that failed to send by kind",
	}, []string{"kind"})

	// WebSocketConnectionsTotal is the gauge of active feed connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uboard_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uboard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
