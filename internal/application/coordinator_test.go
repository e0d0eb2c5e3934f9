package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorSwitchAccountAppliesCookiesAndPersists(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	account := mediaAccount()

	current, err := fx.coordinator.SwitchAccount(context.Background(), account)
	require.NoError(t, err)

	assert.Equal(t, account.ID, current.Account.ID)
	assert.Equal(t, domain.SessionKey("key-1"), current.SessionKey)
	assert.Equal(t, "session-1", current.RemoteSessionID)
	assert.Equal(t, "device-1", current.DeviceID)
	assert.Equal(t, "example.com", current.Domain)
	assert.Equal(t, fx.clock.Now().UTC(), current.AppliedAt)

	assert.Equal(t, map[string]string{"sid": "media-sid"}, fx.cookieValues(t, "example.com"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, fx.cookieValues(t, "media.example.org"))

	stored, _ := fx.state.stored()
	require.NotNil(t, stored)
	assert.Equal(t, current.SessionKey, stored.SessionKey)

	got, ok := fx.coordinator.Current()
	require.True(t, ok)
	assert.Equal(t, current, got)
	assert.Equal(t, domain.ManagedDomains{"example.com", "media.example.org"}, fx.coordinator.ManagedDomains())

	require.Len(t, fx.registry.acquired, 1)
	assert.Equal(t, domain.AcquireRequest{
		AccountID: "acc-media",
		UserID:    "ana@example.com",
		DeviceID:  "device-1",
		Domain:    "example.com",
	}, fx.registry.acquired[0])

	assert.Equal(t, []domain.EventKind{domain.EventSwitched, domain.EventManagedDomainsChanged}, fx.events.kinds())
}

func TestCoordinatorSwitchAccountRequiresLogin(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.state.profile = domain.Profile{}

	_, err := fx.coordinator.SwitchAccount(context.Background(), mediaAccount())
	require.ErrorIs(t, err, domain.ErrNotLoggedIn)
	assert.Zero(t, fx.registry.acquireCount())
	assert.Zero(t, fx.browser.SetCalls())
}

func TestCoordinatorSwitchAccountGeneratesDeviceID(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.state.profile.DeviceID = ""

	current, err := fx.coordinator.SwitchAccount(context.Background(), newsAccount())
	require.NoError(t, err)

	assert.NotEmpty(t, current.DeviceID)
	assert.Equal(t, current.DeviceID, fx.state.profile.DeviceID)
	assert.Equal(t, current.DeviceID, fx.registry.acquired[0].DeviceID)
}

func TestCoordinatorSwitchAccountRejectsInvalidAccount(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)

	_, err := fx.coordinator.SwitchAccount(context.Background(), domain.Account{ID: "empty"})
	require.ErrorIs(t, err, domain.ErrInvalidAccount)
	assert.Zero(t, fx.registry.acquireCount())
}

func TestCoordinatorSwitchAccountLimitExceededWritesNoCookies(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.registry.acquireErr = &domain.LimitError{Resource: domain.LimitSessions, Active: 1, Max: 1}

	_, err := fx.coordinator.SwitchAccount(context.Background(), newsAccount())
	require.ErrorIs(t, err, domain.ErrLimitExceeded)

	var limitErr *domain.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, domain.LimitSessions, limitErr.Resource)

	assert.Zero(t, fx.browser.SetCalls())
	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
	assert.Empty(t, fx.coordinator.ManagedDomains())
	stored, _ := fx.state.stored()
	assert.Nil(t, stored)
	assert.Empty(t, fx.events.all())
}

func TestCoordinatorSwitchAccountRollsBackWhenCookieCannotBeVerified(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.browser.SetHook(func(write domain.CookieWrite) (bool, error) {
		return write.Name == "b", nil
	})

	_, err := fx.coordinator.SwitchAccount(context.Background(), mediaAccount())
	require.ErrorIs(t, err, domain.ErrCookieApplyFailed)

	var applyErr *domain.CookieApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "b", applyErr.Name)
	assert.Equal(t, "media.example.org", applyErr.Domain)

	// Cookies written before the failing one are purged again.
	assert.Empty(t, fx.cookieValues(t, "example.com"))
	assert.Empty(t, fx.cookieValues(t, "media.example.org"))

	released := fx.registry.releasedSessions()
	require.Len(t, released, 1)
	assert.Equal(t, "session-1", released[0].ID)
	assert.Equal(t, domain.AccountID("acc-media"), released[0].AccountID)

	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
	stored, _ := fx.state.stored()
	assert.Nil(t, stored)
}

func TestCoordinatorSwitchAccountRollsBackWhenStateCannotBeSaved(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.state.saveErr = errors.New("disk full")

	_, err := fx.coordinator.SwitchAccount(context.Background(), newsAccount())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist current account")

	assert.Len(t, fx.registry.releasedSessions(), 1)
	assert.Empty(t, fx.cookieValues(t, "news.example.net"))
	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
}

func TestCoordinatorSwitchAccountTearsDownPreviousSession(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx := context.Background()

	first, err := fx.coordinator.SwitchAccount(ctx, mediaAccount())
	require.NoError(t, err)

	second, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionKey, second.SessionKey)

	released := fx.registry.releasedSessions()
	require.Len(t, released, 1)
	assert.Equal(t, first.RemoteSessionID, released[0].ID)

	assert.Empty(t, fx.cookieValues(t, "example.com"))
	assert.Empty(t, fx.cookieValues(t, "media.example.org"))
	assert.Equal(t, map[string]string{"token": "news-token"}, fx.cookieValues(t, "news.example.net"))
	assert.Equal(t, domain.ManagedDomains{"news.example.net"}, fx.coordinator.ManagedDomains())

	var reasons []domain.TeardownReason
	for _, event := range fx.events.all() {
		if event.Kind == domain.EventTornDown {
			reasons = append(reasons, event.Reason)
		}
	}
	assert.Equal(t, []domain.TeardownReason{domain.ReasonSwitch}, reasons)
}

func TestCoordinatorSwitchAccountReportsPhases(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)

	var phases []SwitchPhase
	ctx := WithSwitchTrace(context.Background(), &SwitchTrace{
		Phase: func(phase SwitchPhase) { phases = append(phases, phase) },
	})

	_, err := fx.coordinator.SwitchAccount(ctx, mediaAccount())
	require.NoError(t, err)
	assert.Equal(t, []SwitchPhase{SwitchPhaseAcquiring, SwitchPhaseApplying, SwitchPhaseSaving}, phases)

	phases = nil
	_, err = fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)
	assert.Equal(t, []SwitchPhase{SwitchPhaseTearingDown, SwitchPhaseAcquiring, SwitchPhaseApplying, SwitchPhaseSaving}, phases)

	// Teardowns outside a traced switch report nothing.
	phases = nil
	require.NoError(t, fx.coordinator.TeardownCurrentSession(context.Background(), domain.ReasonLogout))
	assert.Empty(t, phases)
}

func TestCoordinatorSwitchAccountStopsReportingAtFailedPhase(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.registry.acquireErr = &domain.LimitError{Resource: domain.LimitSessions, Active: 1, Max: 1}

	var phases []SwitchPhase
	ctx := WithSwitchTrace(context.Background(), &SwitchTrace{
		Phase: func(phase SwitchPhase) { phases = append(phases, phase) },
	})

	_, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.ErrorIs(t, err, domain.ErrLimitExceeded)
	assert.Equal(t, []SwitchPhase{SwitchPhaseAcquiring}, phases)
}

func TestCoordinatorRevokeUnsharedOnlyKeepsSharedDomains(t *testing.T) {
	shared := domain.Account{
		ID: "acc-shared",
		Cookies: []domain.CookieSpec{
			{Domain: "shared.example", Name: "sid", Value: "first"},
			{Domain: "only-first.example", Name: "x", Value: "1"},
		},
	}
	next := domain.Account{
		ID:      "acc-next",
		Cookies: []domain.CookieSpec{{Domain: "shared.example", Name: "sid", Value: "second"}},
	}

	tests := []struct {
		name          string
		unsharedOnly  bool
		revokesShared bool
	}{
		{name: "revoke all", unsharedOnly: false, revokesShared: true},
		{name: "revoke unshared", unsharedOnly: true, revokesShared: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newCoordinatorFixture(t, func(opts *CoordinatorOptions) {
				opts.RevokeUnsharedOnly = tt.unsharedOnly
			})
			ctx := context.Background()

			_, err := fx.coordinator.SwitchAccount(ctx, shared)
			require.NoError(t, err)

			var mu sync.Mutex
			var removed []string
			fx.browser.SetRemoveHook(func(url, _ string) error {
				mu.Lock()
				defer mu.Unlock()
				removed = append(removed, domain.HostOf(url))
				return nil
			})

			_, err = fx.coordinator.SwitchAccount(ctx, next)
			require.NoError(t, err)

			assert.Contains(t, removed, "only-first.example")
			if tt.revokesShared {
				assert.Contains(t, removed, "shared.example")
			} else {
				assert.NotContains(t, removed, "shared.example")
			}
			assert.Empty(t, fx.cookieValues(t, "only-first.example"))
			assert.Equal(t, map[string]string{"sid": "second"}, fx.cookieValues(t, "shared.example"))
		})
	}
}

func TestCoordinatorRejectsConcurrentSwitch(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.registry.acquireEntered = make(chan struct{})
	fx.registry.acquireGate = make(chan struct{})

	type result struct {
		current domain.CurrentAccount
		err     error
	}
	done := make(chan result, 1)
	go func() {
		current, err := fx.coordinator.SwitchAccount(context.Background(), mediaAccount())
		done <- result{current: current, err: err}
	}()

	select {
	case <-fx.registry.acquireEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("first switch never reached the registry")
	}

	_, err := fx.coordinator.SwitchAccount(context.Background(), newsAccount())
	require.ErrorIs(t, err, domain.ErrSwitchInProgress)

	close(fx.registry.acquireGate)
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, domain.AccountID("acc-media"), res.current.Account.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("first switch did not finish")
	}

	assert.Equal(t, 1, fx.registry.acquireCount())
}

func TestCoordinatorTeardownIsIdempotent(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, fx.coordinator.TeardownCurrentSession(ctx, domain.ReasonLogout))
	assert.Empty(t, fx.registry.releasedSessions())

	_, err := fx.coordinator.SwitchAccount(ctx, mediaAccount())
	require.NoError(t, err)

	require.NoError(t, fx.coordinator.TeardownCurrentSession(ctx, domain.ReasonLogout))
	require.NoError(t, fx.coordinator.TeardownCurrentSession(ctx, domain.ReasonLogout))

	assert.Len(t, fx.registry.releasedSessions(), 1)
	assert.Equal(t, 1, fx.events.count(domain.EventTornDown))
	assert.Empty(t, fx.coordinator.ManagedDomains())
	assert.NotNil(t, fx.coordinator.ManagedDomains())
	assert.Empty(t, fx.cookieValues(t, "example.com"))

	stored, _ := fx.state.stored()
	assert.Nil(t, stored)
}

func TestCoordinatorTeardownIsFailOpen(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx := context.Background()

	_, err := fx.coordinator.SwitchAccount(ctx, mediaAccount())
	require.NoError(t, err)

	fx.registry.releaseErr = domain.ErrNetwork
	fx.browser.SetRemoveHook(func(_, name string) error {
		if name == "a" {
			return errors.New("jar locked")
		}
		return nil
	})

	require.NoError(t, fx.coordinator.TeardownCurrentSession(ctx, domain.ReasonLogout))

	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
	assert.Empty(t, fx.cookieValues(t, "example.com"))
	assert.Equal(t, map[string]string{"a": "1"}, fx.cookieValues(t, "media.example.org"))

	stored, _ := fx.state.stored()
	assert.Nil(t, stored)
}

func TestCoordinatorTeardownReportsStateClearFailure(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx := context.Background()

	_, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)
	fx.state.clearErr = errors.New("read-only file system")

	err = fx.coordinator.TeardownCurrentSession(ctx, domain.ReasonLogout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear current account")

	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
	assert.Len(t, fx.registry.releasedSessions(), 1)
}

func TestCoordinatorConcurrentTeardownsForOneKeyRunOnce(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx := context.Background()

	current, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = fx.coordinator.teardownSession(ctx, current.SessionKey, domain.ReasonNoOpenTabs)
		}()
	}
	wg.Wait()

	assert.Len(t, fx.registry.releasedSessions(), 1)
	assert.Equal(t, 1, fx.events.count(domain.EventTornDown))
}

func TestCoordinatorIgnoresDecisionsForReplacedSession(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx := context.Background()

	_, err := fx.coordinator.SwitchAccount(ctx, mediaAccount())
	require.NoError(t, err)
	current, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)

	err = fx.coordinator.Apply(ctx, domain.Decision{
		Action:        domain.ActionTeardown,
		Reason:        domain.ReasonExpired,
		SessionKey:    "key-1",
		NotifyExpired: true,
	})
	require.NoError(t, err)

	err = fx.coordinator.HandleTrigger(ctx, domain.Trigger{Kind: domain.TriggerPollFailed, SessionKey: "key-1"})
	require.NoError(t, err)

	got, ok := fx.coordinator.Current()
	require.True(t, ok)
	assert.Equal(t, current.SessionKey, got.SessionKey)
	assert.Zero(t, fx.events.count(domain.EventSessionExpired))
}

func TestCoordinatorPollerTearsDownExceededSession(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)
	fx.registry.setPollInfo(domain.SessionInfo{ActiveSessions: 2, MaxConcurrentUsers: 1})

	require.NoError(t, fx.clock.BlockUntilContext(ctx, 1))
	fx.clock.Advance(30 * time.Second)

	assert.Eventually(t, func() bool {
		_, ok := fx.coordinator.Current()
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return fx.events.count(domain.EventSessionExpired) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, fx.registry.releasedSessions(), 1)
	assert.Empty(t, fx.cookieValues(t, "news.example.net"))
}

func TestCoordinatorPollerRetriesTransientFailures(t *testing.T) {
	fx := newCoordinatorFixture(t, func(opts *CoordinatorOptions) {
		opts.PollRetry = retry.Policy{MaxAttempts: 3}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)
	fx.registry.mu.Lock()
	fx.registry.pollErrs = []error{domain.ErrNetwork, domain.ErrNetwork}
	fx.registry.mu.Unlock()

	require.NoError(t, fx.clock.BlockUntilContext(ctx, 1))
	fx.clock.Advance(30 * time.Second)

	assert.Eventually(t, func() bool {
		return fx.registry.pollCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := fx.coordinator.Current()
	assert.True(t, ok)
	assert.Empty(t, fx.registry.releasedSessions())
}

func persistedSession() *domain.CurrentAccount {
	return &domain.CurrentAccount{
		Account:         mediaAccount(),
		SessionKey:      "persisted",
		RemoteSessionID: "session-9",
		DeviceID:        "device-1",
		Domain:          "example.com",
		AppliedAt:       time.Date(2026, 2, 28, 18, 0, 0, 0, time.UTC),
	}
}

func TestCoordinatorRestoreKeepsValidSession(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.state.setCurrent(persistedSession())

	require.NoError(t, fx.coordinator.Restore(context.Background()))

	current, ok := fx.coordinator.Current()
	require.True(t, ok)
	assert.Equal(t, domain.SessionKey("persisted"), current.SessionKey)
	assert.Equal(t, domain.ManagedDomains{"example.com", "media.example.org"}, fx.coordinator.ManagedDomains())
	assert.Equal(t, 1, fx.registry.pollCount())
	assert.Empty(t, fx.registry.releasedSessions())
}

func TestCoordinatorRestoreTearsDownSessionTheRegistryDropped(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.state.setCurrent(persistedSession())
	fx.registry.setPollInfo(domain.SessionInfo{ActiveSessions: 3, MaxConcurrentUsers: 2})

	require.NoError(t, fx.coordinator.Restore(context.Background()))

	_, ok := fx.coordinator.Current()
	assert.False(t, ok)

	released := fx.registry.releasedSessions()
	require.Len(t, released, 1)
	assert.Equal(t, "session-9", released[0].ID)
	assert.Equal(t, 1, fx.events.count(domain.EventSessionExpired))

	stored, _ := fx.state.stored()
	assert.Nil(t, stored)
}

func TestCoordinatorRestoreDoesNotRetryRejectedCredentials(t *testing.T) {
	fx := newCoordinatorFixture(t, func(opts *CoordinatorOptions) {
		opts.PollRetry = retry.Policy{MaxAttempts: 3}
	})
	fx.state.setCurrent(persistedSession())
	fx.registry.pollErrs = []error{&domain.RegistryError{Op: "poll session", StatusCode: 401}}

	require.NoError(t, fx.coordinator.Restore(context.Background()))

	assert.Equal(t, 1, fx.registry.pollCount())
	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
}

func TestCoordinatorRestoreWithoutPersistedSession(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)

	require.NoError(t, fx.coordinator.Restore(context.Background()))

	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
	assert.Zero(t, fx.registry.pollCount())
}

func TestCoordinatorLoadThenTeardownReleasesPersistedSession(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	fx.state.setCurrent(persistedSession())
	ctx := context.Background()

	require.NoError(t, fx.coordinator.Load(ctx))
	_, ok := fx.coordinator.Current()
	require.True(t, ok)
	assert.Zero(t, fx.registry.pollCount())

	require.NoError(t, fx.coordinator.TeardownCurrentSession(ctx, domain.ReasonLogout))

	released := fx.registry.releasedSessions()
	require.Len(t, released, 1)
	assert.Equal(t, "session-9", released[0].ID)
	assert.Equal(t, "device-1", released[0].DeviceID)
}

func TestCoordinatorReloadFollowsExternalChanges(t *testing.T) {
	fx := newCoordinatorFixture(t, nil)
	ctx := context.Background()

	_, err := fx.coordinator.SwitchAccount(ctx, newsAccount())
	require.NoError(t, err)

	// Another process logged out.
	fx.state.setCurrent(nil)
	require.NoError(t, fx.coordinator.Reload(ctx))

	_, ok := fx.coordinator.Current()
	assert.False(t, ok)
	assert.Empty(t, fx.registry.releasedSessions())
	assert.Equal(t, map[string]string{"token": "news-token"}, fx.cookieValues(t, "news.example.net"))

	events := fx.events.all()
	last := events[len(events)-1]
	assert.Equal(t, domain.EventManagedDomainsChanged, last.Kind)
	assert.Empty(t, last.Domains)

	// Another process switched.
	fx.state.setCurrent(persistedSession())
	require.NoError(t, fx.coordinator.Reload(ctx))

	current, ok := fx.coordinator.Current()
	require.True(t, ok)
	assert.Equal(t, domain.SessionKey("persisted"), current.SessionKey)
	assert.Equal(t, domain.ManagedDomains{"example.com", "media.example.org"}, fx.coordinator.ManagedDomains())

	eventsBefore := len(fx.events.all())
	require.NoError(t, fx.coordinator.Reload(ctx))
	assert.Len(t, fx.events.all(), eventsBefore)
}
