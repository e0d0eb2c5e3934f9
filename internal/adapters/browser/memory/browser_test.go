package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserSetGetAllMatchesSubdomains(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New()
	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: ".x.test", Name: "sid", Value: "v1"})))
	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: "app.x.test", Name: "pref", Value: "dark"})))
	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: "notx.test", Name: "sid", Value: "other"})))

	all, err := b.GetAll(ctx, domain.CookieFilter{Domain: "x.test"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	named, err := b.GetAll(ctx, domain.CookieFilter{Domain: "x.test", Name: "sid"})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "v1", named[0].Value)
	assert.Equal(t, ".x.test", named[0].Domain)
}

func TestBrowserSetOverwritesSameCookie(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New()
	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: "x.test", Name: "sid", Value: "v1"})))
	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: ".x.test", Name: "sid", Value: "v2"})))

	all, err := b.GetAll(ctx, domain.CookieFilter{Domain: "x.test"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Value)
}

func TestBrowserRejectsInvalidHostLockedCookie(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New()

	err := b.Set(ctx, domain.CookieWrite{URL: "https://x.test/", Name: "__Host-sid", Value: "v", Domain: "x.test", Path: "/", Secure: true})
	require.ErrorIs(t, err, ErrHostLockedAttributes)

	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: "x.test", Name: "__Host-sid", Value: "v"})))
	all, err := b.GetAll(ctx, domain.CookieFilter{Domain: "x.test"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "x.test", all[0].Domain)
}

func TestBrowserRemoveUsesCookieURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New()
	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: ".x.test", Name: "sid", Value: "v1"})))

	require.NoError(t, b.Remove(ctx, "http://x.test/", "sid"))
	all, _ := b.GetAll(ctx, domain.CookieFilter{Domain: "x.test"})
	assert.Len(t, all, 1, "secure cookie needs an https url")

	require.NoError(t, b.Remove(ctx, all[0].URL(), "sid"))
	all, _ = b.GetAll(ctx, domain.CookieFilter{Domain: "x.test"})
	assert.Empty(t, all)
}

func TestBrowserHooks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New()
	b.SetHook(func(domain.CookieWrite) (bool, error) { return true, nil })
	require.NoError(t, b.Set(ctx, domain.StrictWrite(domain.CookieSpec{Domain: "x.test", Name: "sid", Value: "v1"})))
	all, _ := b.GetAll(ctx, domain.CookieFilter{})
	assert.Empty(t, all)
	assert.Equal(t, 1, b.SetCalls())

	b.SetRemoveHook(func(string, string) error { return errors.New("locked") })
	assert.Error(t, b.Remove(ctx, "https://x.test/", "sid"))
}

func TestBrowserSubscribeDeliversTabEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := New()
	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	b.OpenTab("1", "https://x.test/")
	b.CloseTab("1")
	b.Suspend()

	want := []domain.TriggerKind{domain.TriggerTabUpdated, domain.TriggerTabClosed, domain.TriggerBrowserSuspend}
	for _, kind := range want {
		select {
		case got := <-events:
			assert.Equal(t, kind, got.Kind)
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", kind)
		}
	}

	tabs, err := b.QueryAllTabs(ctx)
	require.NoError(t, err)
	assert.Empty(t, tabs)

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, time.Second, 10*time.Millisecond)
}
