package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/adapters/browser/memory"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/platform/logging"
	"github.com/bnema/cookie-accounts-cli/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

// memoryStateRepository stands in for the state file shared by several
// processes; coordinators built on one instance contend for its lock.
type memoryStateRepository struct {
	lock     chan struct{}
	mu       sync.Mutex
	current  *domain.CurrentAccount
	profile  domain.Profile
	saveErr  error
	clearErr error
	saves    int
	clears   int
}

func newLoggedInState() *memoryStateRepository {
	return &memoryStateRepository{
		lock: make(chan struct{}, 1),
		profile: domain.Profile{
			User:     domain.User{ID: "ana@example.com", Email: "ana@example.com"},
			DeviceID: "device-1",
		},
	}
}

func (r *memoryStateRepository) Lock(ctx context.Context) (func(), error) {
	select {
	case r.lock <- struct{}{}:
		return r.unlocker(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *memoryStateRepository) TryLock(context.Context) (func(), error) {
	select {
	case r.lock <- struct{}{}:
		return r.unlocker(), nil
	default:
		return nil, domain.ErrStateLocked
	}
}

func (r *memoryStateRepository) unlocker() func() {
	var once sync.Once
	return func() { once.Do(func() { <-r.lock }) }
}

func (r *memoryStateRepository) LoadCurrent(ctx context.Context) (domain.CurrentAccount, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CurrentAccount{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return domain.CurrentAccount{}, false, nil
	}
	return *r.current, true, nil
}

func (r *memoryStateRepository) SaveCurrent(_ context.Context, current domain.CurrentAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.current = &current
	return nil
}

func (r *memoryStateRepository) ClearCurrent(_ context.Context, key domain.SessionKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clears++
	if r.clearErr != nil {
		return false, r.clearErr
	}
	if r.current == nil || r.current.SessionKey != key {
		return false, nil
	}
	r.current = nil
	return true, nil
}

func (r *memoryStateRepository) LoadProfile(_ context.Context) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile, nil
}

func (r *memoryStateRepository) SaveProfile(_ context.Context, profile domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = profile
	return nil
}

func (r *memoryStateRepository) setCurrent(current *domain.CurrentAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = current
}

func (r *memoryStateRepository) stored() (*domain.CurrentAccount, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.clears
}

type fakeRegistry struct {
	mu         sync.Mutex
	acquireErr error
	releaseErr error
	pollInfo   domain.SessionInfo
	pollErrs   []error
	acquired   []domain.AcquireRequest
	released   []domain.RemoteSession
	polls      int

	// acquireEntered and acquireGate let a test hold AcquireSession open.
	acquireEntered chan struct{}
	acquireGate    chan struct{}
}

func (r *fakeRegistry) AcquireSession(ctx context.Context, req domain.AcquireRequest) (domain.RemoteSession, error) {
	if r.acquireEntered != nil {
		r.acquireEntered <- struct{}{}
	}
	if r.acquireGate != nil {
		select {
		case <-r.acquireGate:
		case <-ctx.Done():
			return domain.RemoteSession{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.acquireErr != nil {
		return domain.RemoteSession{}, r.acquireErr
	}
	r.acquired = append(r.acquired, req)
	return domain.RemoteSession{
		ID:        fmt.Sprintf("session-%d", len(r.acquired)),
		AccountID: req.AccountID,
		UserID:    req.UserID,
		DeviceID:  req.DeviceID,
		Domain:    req.Domain,
	}, nil
}

func (r *fakeRegistry) ReleaseSession(_ context.Context, session domain.RemoteSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.released = append(r.released, session)
	return r.releaseErr
}

func (r *fakeRegistry) PollSession(_ context.Context, accountID domain.AccountID) (domain.SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.polls++
	if len(r.pollErrs) > 0 {
		err := r.pollErrs[0]
		r.pollErrs = r.pollErrs[1:]
		if err != nil {
			return domain.SessionInfo{}, err
		}
	}
	info := r.pollInfo
	info.AccountID = accountID
	return info, nil
}

func (r *fakeRegistry) setPollInfo(info domain.SessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pollInfo = info
}

func (r *fakeRegistry) releasedSessions() []domain.RemoteSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RemoteSession{}, r.released...)
}

func (r *fakeRegistry) acquireCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.acquired)
}

func (r *fakeRegistry) pollCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Notify(_ context.Context, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event{}, r.events...)
}

func (r *eventRecorder) kinds() []domain.EventKind {
	events := r.all()
	kinds := make([]domain.EventKind, 0, len(events))
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func (r *eventRecorder) count(kind domain.EventKind) int {
	n := 0
	for _, event := range r.all() {
		if event.Kind == kind {
			n++
		}
	}
	return n
}

type coordinatorFixture struct {
	coordinator *Coordinator
	registry    *fakeRegistry
	state       *memoryStateRepository
	browser     *memory.Browser
	events      *eventRecorder
	clock       *clockwork.FakeClock
}

func newCoordinatorFixture(t *testing.T, configure func(*CoordinatorOptions)) *coordinatorFixture {
	t.Helper()

	fx := &coordinatorFixture{
		registry: &fakeRegistry{pollInfo: domain.SessionInfo{ActiveSessions: 1, MaxConcurrentUsers: 2}},
		state:    newLoggedInState(),
		browser:  memory.New(),
		events:   &eventRecorder{},
		clock:    clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}

	keys := 0
	opts := CoordinatorOptions{
		PollInterval: 30 * time.Second,
		Clock:        fx.clock,
		Logger:       logging.Discard(),
		NewSessionKey: func() domain.SessionKey {
			keys++
			return domain.SessionKey(fmt.Sprintf("key-%d", keys))
		},
	}
	if configure != nil {
		configure(&opts)
	}

	cookies := NewCookieLifecycle(fx.browser, retry.Policy{MaxAttempts: 2}, logging.Discard())
	fx.coordinator = NewCoordinator(fx.registry, cookies, fx.state, fx.events, opts)
	t.Cleanup(fx.coordinator.Close)

	return fx
}

// newPeer builds a second coordinator over fx's registry, state and browser,
// the way another ca process shares them.
func (fx *coordinatorFixture) newPeer(t *testing.T, prefix string, configure func(*CoordinatorOptions)) *Coordinator {
	t.Helper()

	keys := 0
	opts := CoordinatorOptions{
		PollInterval: 30 * time.Second,
		Clock:        fx.clock,
		Logger:       logging.Discard(),
		NewSessionKey: func() domain.SessionKey {
			keys++
			return domain.SessionKey(fmt.Sprintf("%s-key-%d", prefix, keys))
		},
	}
	if configure != nil {
		configure(&opts)
	}

	cookies := NewCookieLifecycle(fx.browser, retry.Policy{MaxAttempts: 2}, logging.Discard())
	peer := NewCoordinator(fx.registry, cookies, fx.state, fx.events, opts)
	t.Cleanup(peer.Close)

	return peer
}

func (fx *coordinatorFixture) cookieValues(t *testing.T, d string) map[string]string {
	t.Helper()

	cookies, err := fx.browser.GetAll(context.Background(), domain.CookieFilter{Domain: d})
	if err != nil {
		t.Fatalf("read cookies: %v", err)
	}
	values := map[string]string{}
	for _, cookie := range cookies {
		values[cookie.Name] = cookie.Value
	}
	return values
}

func mediaAccount() domain.Account {
	return domain.Account{
		ID:                 "acc-media",
		Name:               "Media",
		MaxConcurrentUsers: 2,
		Cookies: []domain.CookieSpec{
			{Domain: ".example.com", Name: "sid", Value: "media-sid"},
			{Domain: "media.example.org", Name: domain.HeaderCookieName, Value: "a=1; b=2"},
		},
	}
}

func newsAccount() domain.Account {
	return domain.Account{
		ID:                 "acc-news",
		Name:               "News",
		MaxConcurrentUsers: 1,
		Cookies: []domain.CookieSpec{
			{Domain: "news.example.net", Name: "token", Value: "news-token"},
		},
	}
}
