package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readinessTimeout  = 2 * time.Second
	maxGoroutines     = 500
	opsReadTimeout    = 5 * time.Second
	opsShutdownPeriod = 5 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

// newOpsHandler serves /metrics, /live and /ready. Ready means the browser
// answers a tab query.
func newOpsHandler(browser pinger) http.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(maxGoroutines))
	health.AddReadinessCheck("browser", healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		return browser.Ping(ctx)
	}, readinessTimeout))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)

	return mux
}

func newOpsServer(addr string, browser pinger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           newOpsHandler(browser),
		ReadHeaderTimeout: opsReadTimeout,
	}
}
