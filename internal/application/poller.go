package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/metrics"
	"github.com/bnema/cookie-accounts-cli/internal/platform/retry"
)

// poller is the liveness timer of one session. It is bound to the session
// key it was started for and stored in that session's record.
type poller struct {
	key    domain.SessionKey
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *poller) stop() {
	if p == nil {
		return
	}
	p.cancel()
}

func (c *Coordinator) startPoller(key domain.SessionKey, accountID domain.AccountID) *poller {
	ctx, cancel := context.WithCancel(c.base)
	p := &poller{key: key, cancel: cancel, done: make(chan struct{})}

	ticker := c.opts.Clock.NewTicker(c.opts.PollInterval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
			}

			err := c.pollOnce(ctx, accountID)
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				continue
			}

			c.opts.Logger.Warn("session poll failed", "account_id", accountID, "session_key", key, "error", err)
			if handleErr := c.HandleTrigger(c.base, domain.Trigger{Kind: domain.TriggerPollFailed, SessionKey: key, Err: err}); handleErr != nil {
				c.opts.Logger.Error("tear down expired session", "session_key", key, "error", handleErr)
			}
			return
		}
	}()

	return p
}

func (c *Coordinator) pollOnce(ctx context.Context, accountID domain.AccountID) error {
	policy := c.opts.PollRetry
	info, err := retry.Do(ctx, policy, func(ctx context.Context) (domain.SessionInfo, error) {
		info, err := c.registry.PollSession(ctx, accountID)
		if errors.Is(err, domain.ErrUnauthorized) {
			return info, retry.Permanent(err)
		}
		return info, err
	})
	if err != nil {
		metrics.PollsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("poll session: %w", err)
	}
	if info.Exceeded() {
		metrics.PollsTotal.WithLabelValues("exceeded").Inc()
		return fmt.Errorf("%w: %d active sessions over a cap of %d", domain.ErrSessionExpired, info.ActiveSessions, info.MaxConcurrentUsers)
	}
	metrics.PollsTotal.WithLabelValues("ok").Inc()

	return nil
}
