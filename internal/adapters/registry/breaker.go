package registry

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/metrics"
	"github.com/sony/gobreaker"
)

const (
	defaultBreakerMaxFailures = 5
	defaultBreakerOpenTimeout = 30 * time.Second
)

// newBreaker opens after maxFailures consecutive transport or 5xx failures.
// Client errors such as 401 or a reached limit do not count.
func newBreaker(maxFailures uint32, openTimeout time.Duration, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	if openTimeout <= 0 {
		openTimeout = defaultBreakerOpenTimeout
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "registry",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.Set(stateToFloat(to))
		},
	})
}

func countsAsFailure(err error) bool {
	var registryErr *domain.RegistryError
	if errors.As(err, &registryErr) {
		return registryErr.StatusCode >= http.StatusInternalServerError
	}

	return errors.Is(err, domain.ErrNetwork)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
