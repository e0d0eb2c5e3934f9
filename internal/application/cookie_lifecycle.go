package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/metrics"
	"github.com/bnema/cookie-accounts-cli/internal/platform/retry"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
)

var errCookieNotVerified = errors.New("cookie not present after write")

// CookieLifecycle writes and purges the cookie set of one account. It never
// talks to the registry.
type CookieLifecycle struct {
	store  ports.CookieStore
	policy retry.Policy
	logger *slog.Logger
}

func NewCookieLifecycle(store ports.CookieStore, policy retry.Policy, logger *slog.Logger) *CookieLifecycle {
	if logger == nil {
		logger = slog.Default()
	}

	return &CookieLifecycle{store: store, policy: policy, logger: logger}
}

// ApplyAccountCookies writes every cookie of account and verifies each one.
// The first cookie that cannot be verified within the retry policy fails the
// whole apply with a *domain.CookieApplyError.
func (c *CookieLifecycle) ApplyAccountCookies(ctx context.Context, account domain.Account) error {
	for _, spec := range domain.ExpandCookies(account.Cookies) {
		if err := c.applyVerified(ctx, spec); err != nil {
			return err
		}
	}

	return nil
}

func (c *CookieLifecycle) applyVerified(ctx context.Context, spec domain.CookieSpec) error {
	policy := c.policy
	policy.OnRetry = func(attempt int, err error, _ time.Duration) {
		c.logger.Debug("retrying cookie write", "domain", spec.Domain, "cookie", spec.Name, "attempt", attempt, "error", err)
	}

	err := retry.DoVoid(ctx, policy, func(ctx context.Context) error {
		return c.writeAndVerify(ctx, spec)
	})
	if err != nil {
		return &domain.CookieApplyError{Domain: domain.CleanDomain(spec.Domain), Name: spec.Name, Err: err}
	}

	return nil
}

func (c *CookieLifecycle) writeAndVerify(ctx context.Context, spec domain.CookieSpec) error {
	strictErr := c.store.Set(ctx, domain.StrictWrite(spec))
	if strictErr == nil {
		metrics.CookieWritesTotal.WithLabelValues("strict", "ok").Inc()
		verifyErr := c.verify(ctx, spec)
		if verifyErr == nil {
			return nil
		}
		// A jar can accept the write and still drop the cookie.
		strictErr = verifyErr
	} else {
		metrics.CookieWritesTotal.WithLabelValues("strict", "error").Inc()
	}

	relaxed, ok := domain.RelaxedWrite(spec)
	if !ok {
		return fmt.Errorf("write host-locked cookie: %w", strictErr)
	}

	if err := c.store.Set(ctx, relaxed); err != nil {
		metrics.CookieWritesTotal.WithLabelValues("relaxed", "error").Inc()
		return fmt.Errorf("write cookie: %w", errors.Join(strictErr, err))
	}
	metrics.CookieWritesTotal.WithLabelValues("relaxed", "ok").Inc()

	return c.verify(ctx, spec)
}

func (c *CookieLifecycle) verify(ctx context.Context, spec domain.CookieSpec) error {
	cookies, err := c.store.GetAll(ctx, domain.CookieFilter{Domain: domain.CleanDomain(spec.Domain), Name: spec.Name})
	if err != nil {
		return fmt.Errorf("read back cookie: %w", err)
	}
	for _, cookie := range cookies {
		if cookie.Name == spec.Name && cookie.Value == spec.Value {
			return nil
		}
	}

	return errCookieNotVerified
}

// RevokeAccountCookies purges every cookie on the account's domains.
func (c *CookieLifecycle) RevokeAccountCookies(ctx context.Context, account domain.Account) {
	c.RevokeDomains(ctx, domain.DomainsOf(account))
}

func (c *CookieLifecycle) RevokeDomains(ctx context.Context, domains domain.ManagedDomains) {
	for _, d := range domains {
		c.RevokeDomain(ctx, d)
	}
}

// RevokeDomain removes all cookies the jar holds for d, including ones the
// current account never wrote. Individual failures are logged.
func (c *CookieLifecycle) RevokeDomain(ctx context.Context, d string) int {
	cookies, err := c.store.GetAll(ctx, domain.CookieFilter{Domain: domain.CleanDomain(d)})
	if err != nil {
		c.logger.Warn("list cookies for revoke", "domain", d, "error", err)
		return 0
	}

	removed := 0
	for _, cookie := range cookies {
		if err := c.store.Remove(ctx, cookie.URL(), cookie.Name); err != nil {
			metrics.CookieRemovalErrors.Inc()
			c.logger.Warn("remove cookie", "domain", d, "cookie", cookie.Name, "error", err)
			continue
		}
		removed++
	}
	c.logger.Debug("revoked domain cookies", "domain", d, "removed", removed, "found", len(cookies))

	return removed
}
