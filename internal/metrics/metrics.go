package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwitchesTotal counts switch attempts by outcome (ok, limit_exceeded, cookie_apply_failed, in_progress, error).
	SwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookie_accounts_switches_total",
			Help: "Account switch attempts by outcome",
		},
		[]string{"outcome"},
	)

	TeardownsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookie_accounts_teardowns_total",
			Help: "Session teardowns by reason",
		},
		[]string{"reason"},
	)

	CookieWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookie_accounts_cookie_writes_total",
			Help: "Cookie jar writes by mode (strict, relaxed) and status",
		},
		[]string{"mode", "status"},
	)

	CookieRemovalErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cookie_accounts_cookie_removal_errors_total",
			Help: "Individual cookie removals that failed during a revoke batch",
		},
	)

	SecretFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookie_accounts_secret_fallbacks_total",
			Help: "Secret store operations served by the fallback backend, by op",
		},
		[]string{"op"},
	)

	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookie_accounts_session_polls_total",
			Help: "Session liveness polls by status (ok, exceeded, error)",
		},
		[]string{"status"},
	)

	RegistryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cookie_accounts_registry_request_duration_seconds",
			Help:    "Registry HTTP request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	// CircuitBreakerState tracks the registry breaker (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookie_accounts_registry_breaker_state",
			Help: "Registry circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	ActiveSession = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookie_accounts_active_session",
			Help: "1 while a current account is set",
		},
	)

	ManagedDomainsCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookie_accounts_managed_domains",
			Help: "Number of managed domains of the current account",
		},
	)

	ReconcilerTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookie_accounts_reconciler_triggers_total",
			Help: "Reconciler triggers by kind and resulting action",
		},
		[]string{"trigger", "action"},
	)
)
