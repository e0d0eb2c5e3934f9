package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/metrics"
	"github.com/bnema/cookie-accounts-cli/internal/platform/retry"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

const (
	defaultPollInterval   = 30 * time.Second
	defaultReleaseTimeout = 10 * time.Second
	defaultLockTimeout    = 15 * time.Second
)

type CoordinatorOptions struct {
	PollInterval time.Duration
	// PollRetry bounds retries of a single liveness poll before it counts as failed.
	PollRetry retry.Policy
	// RevokeUnsharedOnly keeps the previous account's cookies on domains the
	// next account also manages; the apply step overwrites them.
	RevokeUnsharedOnly bool
	ReleaseTimeout     time.Duration
	// LockTimeout bounds the wait for the state lock before a teardown.
	LockTimeout        time.Duration
	Clock              clockwork.Clock
	Logger             *slog.Logger
	NewSessionKey      func() domain.SessionKey
}

// Coordinator owns the single CurrentAccount slot. Switches and teardowns
// are serialized within the process by opMu and across processes by the
// state lock; both re-read the persisted slot before acting on it. Reads go
// through Current and ManagedDomains.
type Coordinator struct {
	registry ports.SessionRegistry
	cookies  *CookieLifecycle
	state    ports.StateRepository
	notifier ports.Notifier
	opts     CoordinatorOptions

	// base outlives individual requests; pollers and teardown effects run on it.
	base      context.Context
	stopBase  context.CancelFunc
	switching atomic.Bool
	// following is set once Restore has made this process the slot's poller.
	following atomic.Bool
	opMu      sync.Mutex
	mu        sync.RWMutex
	active    *activeSession
	teardowns singleflight.Group
}

type activeSession struct {
	current domain.CurrentAccount
	managed domain.ManagedDomains
	poller  *poller
}

func NewCoordinator(registry ports.SessionRegistry, cookies *CookieLifecycle, state ports.StateRepository, notifier ports.Notifier, opts CoordinatorOptions) *Coordinator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = defaultReleaseTimeout
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewSessionKey == nil {
		opts.NewSessionKey = func() domain.SessionKey { return domain.SessionKey(uuid.NewString()) }
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	base, stop := context.WithCancel(context.Background())
	return &Coordinator{
		registry: registry,
		cookies:  cookies,
		state:    state,
		notifier: notifier,
		opts:     opts,
		base:     base,
		stopBase: stop,
	}
}

// Close stops the liveness poller without tearing the session down.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.active != nil {
		c.active.poller.stop()
	}
	c.mu.Unlock()
	c.stopBase()
}

func (c *Coordinator) Current() (domain.CurrentAccount, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.active == nil {
		return domain.CurrentAccount{}, false
	}

	return c.active.current, true
}

// ManagedDomains returns a copy of the managed set; empty without a session.
func (c *Coordinator) ManagedDomains() domain.ManagedDomains {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.active == nil {
		return domain.ManagedDomains{}
	}

	return append(domain.ManagedDomains{}, c.active.managed...)
}

func (c *Coordinator) snapshot() (domain.SessionKey, domain.ManagedDomains) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.active == nil {
		return "", domain.ManagedDomains{}
	}

	return c.active.current.SessionKey, append(domain.ManagedDomains{}, c.active.managed...)
}

// SwitchAccount ends the current session, acquires a registry slot for
// account, applies its cookies and persists it as the current account.
// A switch requested while another is running fails with
// domain.ErrSwitchInProgress.
func (c *Coordinator) SwitchAccount(ctx context.Context, account domain.Account) (domain.CurrentAccount, error) {
	if !c.switching.CompareAndSwap(false, true) {
		metrics.SwitchesTotal.WithLabelValues("in_progress").Inc()
		return domain.CurrentAccount{}, domain.ErrSwitchInProgress
	}
	defer c.switching.Store(false)

	current, err := c.switchAccount(ctx, account)
	metrics.SwitchesTotal.WithLabelValues(switchOutcome(err)).Inc()
	if err != nil {
		c.opts.Logger.Error("switch account", "account_id", account.ID, "error", err)
		return domain.CurrentAccount{}, err
	}

	c.opts.Logger.Info("switched account", "account_id", account.ID, "session_key", current.SessionKey, "domains", len(account.Cookies))
	return current, nil
}

func (c *Coordinator) switchAccount(ctx context.Context, account domain.Account) (domain.CurrentAccount, error) {
	if err := account.Validate(); err != nil {
		return domain.CurrentAccount{}, err
	}

	unlock, err := c.state.TryLock(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStateLocked) {
			return domain.CurrentAccount{}, fmt.Errorf("%w: %w", domain.ErrSwitchInProgress, err)
		}
		return domain.CurrentAccount{}, fmt.Errorf("lock state: %w", err)
	}
	defer unlock()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	profile, err := c.identity(ctx)
	if err != nil {
		return domain.CurrentAccount{}, err
	}

	next := domain.DomainsOf(account)
	var keep domain.ManagedDomains
	if c.opts.RevokeUnsharedOnly {
		keep = next
	}
	if _, err := c.teardownLocked(ctx, "", domain.ReasonSwitch, keep); err != nil {
		return domain.CurrentAccount{}, fmt.Errorf("tear down previous session: %w", err)
	}

	req := domain.AcquireRequest{
		AccountID: account.ID,
		UserID:    profile.User.ID,
		DeviceID:  profile.DeviceID,
		Domain:    account.PrimaryDomain(),
	}
	reportPhase(ctx, SwitchPhaseAcquiring)
	remote, err := c.registry.AcquireSession(ctx, req)
	if err != nil {
		return domain.CurrentAccount{}, fmt.Errorf("acquire session for account %s: %w", account.ID, err)
	}
	if remote.AccountID == "" {
		remote.AccountID = account.ID
	}
	if remote.DeviceID == "" {
		remote.DeviceID = profile.DeviceID
	}

	reportPhase(ctx, SwitchPhaseApplying)
	if err := c.cookies.ApplyAccountCookies(ctx, account); err != nil {
		c.rollback(ctx, next, remote)
		return domain.CurrentAccount{}, fmt.Errorf("apply cookies for account %s: %w", account.ID, err)
	}

	current := domain.CurrentAccount{
		Account:         account,
		SessionKey:      c.opts.NewSessionKey(),
		RemoteSessionID: remote.ID,
		DeviceID:        profile.DeviceID,
		Domain:          req.Domain,
		AppliedAt:       c.opts.Clock.Now().UTC(),
	}
	reportPhase(ctx, SwitchPhaseSaving)
	if err := c.state.SaveCurrent(ctx, current); err != nil {
		c.rollback(ctx, next, remote)
		return domain.CurrentAccount{}, fmt.Errorf("persist current account: %w", err)
	}

	c.mu.Lock()
	c.activateLocked(current, true)
	c.mu.Unlock()

	c.publish(ctx, domain.Event{Kind: domain.EventSwitched, AccountID: account.ID, Domains: next})
	c.publish(ctx, domain.Event{Kind: domain.EventManagedDomainsChanged, AccountID: account.ID, Domains: next})

	return current, nil
}

// rollback undoes a partially applied switch: no cookies and no held slot.
func (c *Coordinator) rollback(ctx context.Context, domains domain.ManagedDomains, remote domain.RemoteSession) {
	effects, cancel := c.detached(ctx)
	defer cancel()

	c.cookies.RevokeDomains(effects, domains)
	if err := c.registry.ReleaseSession(effects, remote); err != nil {
		c.opts.Logger.Warn("release session during rollback", "account_id", remote.AccountID, "error", err)
	}
	metrics.TeardownsTotal.WithLabelValues(string(domain.ReasonRollback)).Inc()
}

// activateLocked installs current as the active session, cancelling any
// previous poller first. c.mu must be held.
func (c *Coordinator) activateLocked(current domain.CurrentAccount, poll bool) {
	if c.active != nil {
		c.active.poller.stop()
	}

	session := &activeSession{current: current, managed: domain.DomainsOf(current.Account)}
	if poll {
		session.poller = c.startPoller(current.SessionKey, current.Account.ID)
	}
	c.active = session

	metrics.ActiveSession.Set(1)
	metrics.ManagedDomainsCount.Set(float64(len(session.managed)))
}

// TeardownCurrentSession ends whatever session is current. It is a no-op
// without a current account.
func (c *Coordinator) TeardownCurrentSession(ctx context.Context, reason domain.TeardownReason) error {
	unlock, err := c.lockState(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	_, err = c.teardownLocked(ctx, "", reason, nil)
	return err
}

// teardownSession tears down only if key still names the current session.
// Concurrent calls for the same key share one execution.
func (c *Coordinator) teardownSession(ctx context.Context, key domain.SessionKey, reason domain.TeardownReason) (bool, error) {
	done, err, _ := c.teardowns.Do(string(key), func() (any, error) {
		unlock, err := c.lockState(ctx)
		if err != nil {
			return false, err
		}
		defer unlock()

		c.opMu.Lock()
		defer c.opMu.Unlock()

		return c.teardownLocked(ctx, key, reason, nil)
	})
	if err != nil {
		return false, err
	}

	return done.(bool), nil
}

// lockState takes the cross-process state lock, waiting at most LockTimeout.
func (c *Coordinator) lockState(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, c.opts.LockTimeout)
	defer cancel()

	unlock, err := c.state.Lock(lockCtx)
	if err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}

	return unlock, nil
}

// teardownLocked first adopts whatever another process persisted, so a key
// naming a replaced session is a no-op. It then clears the slot and runs the
// fail-open effects. Only a failure to read or clear persisted state is
// returned. The state lock and c.opMu must be held.
func (c *Coordinator) teardownLocked(ctx context.Context, key domain.SessionKey, reason domain.TeardownReason, keep domain.ManagedDomains) (bool, error) {
	if err := c.syncLocked(ctx, c.following.Load()); err != nil {
		return false, err
	}

	c.mu.Lock()
	active := c.active
	if active == nil || (key != "" && active.current.SessionKey != key) {
		c.mu.Unlock()
		return false, nil
	}
	c.active = nil
	active.poller.stop()
	c.mu.Unlock()

	reportPhase(ctx, SwitchPhaseTearingDown)
	metrics.ActiveSession.Set(0)
	metrics.ManagedDomainsCount.Set(0)

	current := active.current
	effects, cancel := c.detached(ctx)
	defer cancel()

	if err := c.registry.ReleaseSession(effects, current.RemoteSession("")); err != nil {
		c.opts.Logger.Warn("release session", "account_id", current.Account.ID, "session_key", current.SessionKey, "error", err)
	}
	c.cookies.RevokeDomains(effects, active.managed.Without(keep))

	cleared, clearErr := c.state.ClearCurrent(effects, current.SessionKey)
	if clearErr == nil && !cleared {
		c.opts.Logger.Warn("persisted slot changed during teardown", "session_key", current.SessionKey)
	}
	metrics.TeardownsTotal.WithLabelValues(string(reason)).Inc()
	c.opts.Logger.Info("session torn down", "account_id", current.Account.ID, "session_key", current.SessionKey, "reason", reason)

	c.publish(effects, domain.Event{Kind: domain.EventTornDown, AccountID: current.Account.ID, Reason: reason})
	c.publish(effects, domain.Event{Kind: domain.EventManagedDomainsChanged, AccountID: current.Account.ID, Domains: []string{}})

	if clearErr != nil {
		return true, fmt.Errorf("clear current account: %w", clearErr)
	}

	return true, nil
}

// Apply executes a reconciler decision.
func (c *Coordinator) Apply(ctx context.Context, decision domain.Decision) error {
	switch decision.Action {
	case domain.ActionTeardown:
		done, err := c.teardownSession(ctx, decision.SessionKey, decision.Reason)
		if done && decision.NotifyExpired {
			c.opts.Logger.Warn("session expired", "session_key", decision.SessionKey)
			c.publish(ctx, domain.Event{Kind: domain.EventSessionExpired, Reason: decision.Reason})
		}
		return err
	case domain.ActionReload:
		return c.Reload(ctx)
	default:
		return nil
	}
}

// HandleTrigger decides and applies a trigger that does not depend on tabs.
func (c *Coordinator) HandleTrigger(ctx context.Context, trigger domain.Trigger) error {
	key, managed := c.snapshot()
	decision := domain.Decide(trigger, domain.ReconcileInput{SessionKey: key, Managed: managed})
	return c.Apply(ctx, decision)
}

// Load reads the persisted slot into memory without polling. CLI commands
// use it to act on a session another process created.
func (c *Coordinator) Load(ctx context.Context) error {
	current, ok, err := c.state.LoadCurrent(ctx)
	if err != nil {
		return fmt.Errorf("load current account: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		if c.active != nil {
			c.active.poller.stop()
			c.active = nil
		}
		return nil
	}
	c.activateLocked(current, false)

	return nil
}

// Restore resumes a persisted session after a restart. The session is
// validated with one poll; a session the registry no longer backs is torn
// down and reported as expired.
func (c *Coordinator) Restore(ctx context.Context) error {
	current, ok, err := c.state.LoadCurrent(ctx)
	if err != nil {
		return fmt.Errorf("load current account: %w", err)
	}
	c.following.Store(true)
	if !ok {
		return nil
	}

	c.mu.Lock()
	c.activateLocked(current, false)
	c.mu.Unlock()

	if err := c.pollOnce(ctx, current.Account.ID); err != nil {
		c.opts.Logger.Warn("restored session is no longer valid", "account_id", current.Account.ID, "error", err)
		return c.HandleTrigger(ctx, domain.Trigger{Kind: domain.TriggerPollFailed, SessionKey: current.SessionKey, Err: err})
	}

	c.mu.Lock()
	if c.active != nil && c.active.current.SessionKey == current.SessionKey && c.active.poller == nil {
		c.active.poller = c.startPoller(current.SessionKey, current.Account.ID)
	}
	c.mu.Unlock()

	return nil
}

// Reload syncs memory with a slot changed by another process. It never runs
// teardown effects: the writer already did.
func (c *Coordinator) Reload(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.syncLocked(ctx, true)
}

// syncLocked adopts the persisted slot when it names a different session
// than memory holds. poll starts a liveness poller for an adopted session.
// c.opMu must be held.
func (c *Coordinator) syncLocked(ctx context.Context, poll bool) error {
	current, ok, err := c.state.LoadCurrent(ctx)
	if err != nil {
		return fmt.Errorf("load current account: %w", err)
	}

	c.mu.Lock()
	var event *domain.Event
	switch {
	case !ok && c.active != nil:
		accountID := c.active.current.Account.ID
		c.active.poller.stop()
		c.active = nil
		metrics.ActiveSession.Set(0)
		metrics.ManagedDomainsCount.Set(0)
		event = &domain.Event{Kind: domain.EventManagedDomainsChanged, AccountID: accountID, Domains: []string{}}
	case ok && (c.active == nil || c.active.current.SessionKey != current.SessionKey):
		c.activateLocked(current, poll)
		event = &domain.Event{Kind: domain.EventManagedDomainsChanged, AccountID: current.Account.ID, Domains: c.active.managed}
	}
	c.mu.Unlock()

	if event != nil {
		c.opts.Logger.Info("reloaded current account", "account_id", event.AccountID, "domains", event.Domains)
		c.publish(ctx, *event)
	}

	return nil
}

// identity returns the logged-in user and this machine's device id,
// generating and persisting the device id on first use.
func (c *Coordinator) identity(ctx context.Context) (domain.Profile, error) {
	profile, err := c.state.LoadProfile(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if profile.User.ID == "" {
		return domain.Profile{}, domain.ErrNotLoggedIn
	}
	if profile.DeviceID == "" {
		profile.DeviceID = uuid.NewString()
		if err := c.state.SaveProfile(ctx, profile); err != nil {
			return domain.Profile{}, fmt.Errorf("save device id: %w", err)
		}
	}

	return profile, nil
}

func (c *Coordinator) publish(ctx context.Context, event domain.Event) {
	if event.At.IsZero() {
		event.At = c.opts.Clock.Now().UTC()
	}
	c.notifier.Notify(ctx, event)
}

// detached keeps cleanup calls alive when the caller's context is already done.
func (c *Coordinator) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.opts.ReleaseTimeout)
}

func switchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSwitchInProgress):
		return "in_progress"
	case errors.Is(err, domain.ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, domain.ErrCookieApplyFailed):
		return "cookie_apply_failed"
	case errors.Is(err, domain.ErrNotLoggedIn), errors.Is(err, domain.ErrUnauthorized):
		return "unauthenticated"
	default:
		return "error"
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Event) {}
