package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	InboundMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_inbound_messages_total",
			Help: "Total number of inbound social events handled, by dispatch path and outcome (count)",
		},
		[]string{"path", "status"},
	)

	OutboundPostsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_outbound_posts_total",
			Help: "Total number of outbound messages handled, by delivery report outcome (count)",
		},
		[]string{"status"},
	)

	SessionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_session_events_total",
			Help: "Total number of raw events delivered by stream sessions (count)",
		},
		[]string{"kind"},
	)

	SessionRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_session_restarts_total",
			Help: "Total number of session restarts after a transport fault (count)",
		},
		[]string{"kind"},
	)

	ReplyPollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridge_reply_poll_duration_ms",
			Help:    "Duration of one reply poll fetch in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	WatermarkStoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_watermark_store_duration_ms",
			Help:    "Duration of watermark store operations in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"operation"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterBridgeMetrics() {
	prometheus.MustRegister(InboundMessagesTotal)
	prometheus.MustRegister(OutboundPostsTotal)
	prometheus.MustRegister(SessionEventsTotal)
	prometheus.MustRegister(SessionRestartsTotal)
	prometheus.MustRegister(ReplyPollDuration)
	prometheus.MustRegister(WatermarkStoreDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObserveReplyPollDuration(duration time.Duration) {
	ReplyPollDuration.Observe(float64(duration.Milliseconds()))
}

func ObserveWatermarkStoreDuration(duration time.Duration, operation string) {
	WatermarkStoreDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}
