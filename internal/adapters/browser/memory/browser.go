package memory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
)

const subscriberBuffer = 64

var (
	ErrHostLockedAttributes = errors.New("host-locked cookie must be secure, host-only and on path /")
	ErrInsecureURL          = errors.New("secure cookie requires an https url")
)

// SetHook can reject a write (non-nil error) or accept it without storing
// (drop true), the way a real jar silently discards some cookies.
type SetHook func(write domain.CookieWrite) (drop bool, err error)

type RemoveHook func(url, name string) error

// Browser is an in-process cookie jar and tab list.
type Browser struct {
	mu         sync.RWMutex
	cookies    []domain.Cookie
	tabs       []domain.Tab
	setHook    SetHook
	removeHook RemoveHook
	sets       int

	// subsMu is held while delivering so a subscriber is never closed mid-send.
	subsMu sync.Mutex
	subs   []subscriber
}

type subscriber struct {
	ctx context.Context
	ch  chan domain.Trigger
}

var (
	_ ports.CookieStore = (*Browser)(nil)
	_ ports.TabSource   = (*Browser)(nil)
)

func New() *Browser {
	return &Browser{}
}

func (b *Browser) SetHook(hook SetHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setHook = hook
}

func (b *Browser) SetRemoveHook(hook RemoveHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeHook = hook
}

// SetCalls counts accepted and rejected writes.
func (b *Browser) SetCalls() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sets
}

func (b *Browser) Set(ctx context.Context, write domain.CookieWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed, err := url.Parse(write.URL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("invalid cookie url %q", write.URL)
	}
	if write.Secure && parsed.Scheme != "https" {
		return ErrInsecureURL
	}
	if domain.IsHostLocked(write.Name) && (!write.Secure || write.Domain != "" || (write.Path != "" && write.Path != "/")) {
		return ErrHostLockedAttributes
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sets++
	if b.setHook != nil {
		drop, err := b.setHook(write)
		if err != nil {
			return err
		}
		if drop {
			return nil
		}
	}

	cookie := domain.Cookie{
		Name:     write.Name,
		Value:    write.Value,
		Domain:   write.Domain,
		Path:     write.Path,
		Secure:   write.Secure,
		SameSite: write.SameSite,
	}
	if cookie.Domain == "" {
		cookie.Domain = strings.ToLower(parsed.Hostname())
	} else if !strings.HasPrefix(cookie.Domain, ".") {
		cookie.Domain = "." + domain.CleanDomain(cookie.Domain)
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}

	b.cookies = slices.DeleteFunc(b.cookies, func(existing domain.Cookie) bool {
		return existing.Name == cookie.Name && existing.Path == cookie.Path &&
			domain.CleanDomain(existing.Domain) == domain.CleanDomain(cookie.Domain)
	})
	b.cookies = append(b.cookies, cookie)

	return nil
}

// GetAll returns cookies whose domain is filter.Domain or one of its subdomains.
func (b *Browser) GetAll(ctx context.Context, filter domain.CookieFilter) ([]domain.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Cookie, 0, len(b.cookies))
	for _, cookie := range b.cookies {
		if filter.Domain != "" && !domain.HostMatchesDomain(domain.CleanDomain(cookie.Domain), filter.Domain) {
			continue
		}
		if filter.Name != "" && cookie.Name != filter.Name {
			continue
		}
		out = append(out, cookie)
	}

	return out, nil
}

func (b *Browser) Remove(ctx context.Context, rawURL, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("invalid cookie url %q", rawURL)
	}
	host := strings.ToLower(parsed.Hostname())
	path := parsed.Path
	if path == "" {
		path = "/"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.removeHook != nil {
		if err := b.removeHook(rawURL, name); err != nil {
			return err
		}
	}

	b.cookies = slices.DeleteFunc(b.cookies, func(cookie domain.Cookie) bool {
		if cookie.Name != name || cookie.Path != path || domain.CleanDomain(cookie.Domain) != host {
			return false
		}
		return !cookie.Secure || parsed.Scheme == "https"
	})

	return nil
}

func (b *Browser) QueryAllTabs(ctx context.Context) ([]domain.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]domain.Tab{}, b.tabs...), nil
}

func (b *Browser) Subscribe(ctx context.Context) (<-chan domain.Trigger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan domain.Trigger, subscriberBuffer)

	b.subsMu.Lock()
	b.subs = append(b.subs, subscriber{ctx: ctx, ch: ch})
	b.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		b.subsMu.Lock()
		defer b.subsMu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscriber) bool { return s.ch == ch })
		close(ch)
	}()

	return ch, nil
}

// OpenTab adds or navigates a tab and emits TriggerTabUpdated.
func (b *Browser) OpenTab(id, rawURL string) {
	b.mu.Lock()
	idx := slices.IndexFunc(b.tabs, func(t domain.Tab) bool { return t.ID == id })
	if idx >= 0 {
		b.tabs[idx].URL = rawURL
	} else {
		b.tabs = append(b.tabs, domain.Tab{ID: id, URL: rawURL})
	}
	b.mu.Unlock()

	b.emit(domain.Trigger{Kind: domain.TriggerTabUpdated, TabID: id, URL: rawURL})
}

func (b *Browser) ActivateTab(id string) {
	b.emit(domain.Trigger{Kind: domain.TriggerTabActivated, TabID: id})
}

func (b *Browser) CloseTab(id string) {
	b.mu.Lock()
	b.tabs = slices.DeleteFunc(b.tabs, func(t domain.Tab) bool { return t.ID == id })
	b.mu.Unlock()

	b.emit(domain.Trigger{Kind: domain.TriggerTabClosed, TabID: id})
}

func (b *Browser) Suspend() {
	b.emit(domain.Trigger{Kind: domain.TriggerBrowserSuspend})
}

func (b *Browser) emit(trigger domain.Trigger) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- trigger:
		case <-sub.ctx.Done():
		}
	}
}
