package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/cookie-accounts-cli/internal/adapters/browser/cdp"
	"github.com/bnema/cookie-accounts-cli/internal/adapters/browser/memory"
	"github.com/bnema/cookie-accounts-cli/internal/config"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
)

type browserBackend interface {
	ports.CookieStore
	ports.TabSource
}

// browserConn attaches to the configured browser on first use, so commands
// that only talk to the registry run without a browser.
type browserConn struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	mu      sync.Mutex
	backend browserBackend
	close   func()
}

var _ browserBackend = (*browserConn)(nil)

func newBrowserConn(cfg config.BrowserConfig, logger *slog.Logger) *browserConn {
	return &browserConn{cfg: cfg, logger: logger}
}

func (c *browserConn) get(ctx context.Context) (browserBackend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return c.backend, nil
	}

	switch c.cfg.Backend {
	case "memory":
		c.backend = memory.New()
	default:
		b, err := cdp.Connect(ctx, c.cfg.DebuggerURL, c.logger)
		if err != nil {
			return nil, fmt.Errorf("attach browser: %w", err)
		}
		c.backend = b
		c.close = b.Close
	}

	return c.backend, nil
}

func (c *browserConn) GetAll(ctx context.Context, filter domain.CookieFilter) ([]domain.Cookie, error) {
	b, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.GetAll(ctx, filter)
}

func (c *browserConn) Set(ctx context.Context, write domain.CookieWrite) error {
	b, err := c.get(ctx)
	if err != nil {
		return err
	}
	return b.Set(ctx, write)
}

func (c *browserConn) Remove(ctx context.Context, url, name string) error {
	b, err := c.get(ctx)
	if err != nil {
		return err
	}
	return b.Remove(ctx, url, name)
}

func (c *browserConn) QueryAllTabs(ctx context.Context) ([]domain.Tab, error) {
	b, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.QueryAllTabs(ctx)
}

func (c *browserConn) Subscribe(ctx context.Context) (<-chan domain.Trigger, error) {
	b, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.Subscribe(ctx)
}

// Ping reports whether the browser answers a tab query.
func (c *browserConn) Ping(ctx context.Context) error {
	_, err := c.QueryAllTabs(ctx)
	return err
}

func (c *browserConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.close != nil {
		c.close()
	}
	c.backend = nil
	c.close = nil
}
