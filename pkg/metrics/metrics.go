package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeanchor_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// OTPIssued counts verification codes generated, by trigger (register|resend).
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeanchor_otp_issued_total",
			Help: "Total number of verification codes issued",
		},
		[]string{"trigger"},
	)

	// OTPConsumed counts verification attempts by outcome
	// (success|expired|not_found|malformed).
	OTPConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeanchor_otp_consumed_total",
			Help: "Total number of verification code submissions",
		},
		[]string{"outcome"},
	)

	// ActiveRefreshTokens tracks persisted refresh credentials not yet
	// revoked or rotated away.
	ActiveRefreshTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safeanchor_active_refresh_tokens",
			Help: "Number of live refresh credentials",
		},
	)

	// MailDispatches counts outbound notification attempts by result.
	MailDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeanchor_mail_dispatches_total",
			Help: "Total number of outbound email dispatch attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safeanchor_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
