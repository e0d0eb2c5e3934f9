// Package cdp drives a running Chrome over the DevTools protocol: the
// shared cookie jar through the Storage and Network domains and tab
// lifecycle through target discovery.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const pageTargetType = "page"

var ErrDisconnected = errors.New("browser disconnected")

// Browser is attached through one helper tab that it owns; that tab is
// never reported as a user tab.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	helperID    target.ID
	logger      *slog.Logger
}

var (
	_ ports.CookieStore = (*Browser)(nil)
	_ ports.TabSource   = (*Browser)(nil)
)

// Connect attaches to the browser listening at debuggerURL, either the
// http://host:port endpoint or the browser websocket URL.
func Connect(ctx context.Context, debuggerURL string, logger *slog.Logger) (*Browser, error) {
	if strings.TrimSpace(debuggerURL) == "" {
		return nil, errors.New("browser debugger url is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), debuggerURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("connect to browser at %s: %w", debuggerURL, err)
	}

	b := &Browser{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		helperID:    chromedp.FromContext(tabCtx).Target.TargetID,
		logger:      logger,
	}
	if err := b.browserDo(ctx, target.SetDiscoverTargets(true)); err != nil {
		b.Close()
		return nil, fmt.Errorf("enable target discovery: %w", err)
	}

	return b, nil
}

// Close detaches and closes the helper tab. The browser keeps running.
func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
}

func (b *Browser) GetAll(ctx context.Context, filter domain.CookieFilter) ([]domain.Cookie, error) {
	var raw []*network.Cookie
	err := b.browserRun(ctx, func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	want := domain.CleanDomain(filter.Domain)
	cookies := make([]domain.Cookie, 0, len(raw))
	for _, entry := range raw {
		if entry == nil {
			continue
		}
		if want != "" && !domain.HostMatchesDomain(domain.CleanDomain(entry.Domain), want) {
			continue
		}
		if filter.Name != "" && entry.Name != filter.Name {
			continue
		}
		cookies = append(cookies, fromNetworkCookie(entry))
	}

	return cookies, nil
}

// Set writes one cookie. The browser rejects writes whose attributes do
// not fit the URL; that rejection is returned as the error.
func (b *Browser) Set(ctx context.Context, write domain.CookieWrite) error {
	param := toCookieParam(write)
	err := b.browserRun(ctx, func(ctx context.Context) error {
		return storage.SetCookies([]*network.CookieParam{param}).Do(ctx)
	})
	if err != nil {
		return fmt.Errorf("set cookie %s for %s: %w", write.Name, write.URL, err)
	}

	return nil
}

func (b *Browser) Remove(ctx context.Context, url, name string) error {
	err := b.tabRun(ctx, func(ctx context.Context) error {
		return network.DeleteCookies(name).WithURL(url).Do(ctx)
	})
	if err != nil {
		return fmt.Errorf("remove cookie %s for %s: %w", name, url, err)
	}

	return nil
}

func (b *Browser) QueryAllTabs(ctx context.Context) ([]domain.Tab, error) {
	if err := b.alive(ctx); err != nil {
		return nil, err
	}

	infos, err := chromedp.Targets(b.ctx)
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}

	tabs := make([]domain.Tab, 0, len(infos))
	for _, info := range infos {
		if info == nil || info.Type != pageTargetType || info.TargetID == b.helperID {
			continue
		}
		tabs = append(tabs, domain.Tab{ID: string(info.TargetID), URL: info.URL})
	}

	return tabs, nil
}

// Subscribe forwards target events as triggers. Events are never dropped
// while the subscriber lags. If the browser goes away before ctx ends, a
// suspend trigger is sent before the channel closes.
func (b *Browser) Subscribe(ctx context.Context) (<-chan domain.Trigger, error) {
	if err := b.alive(ctx); err != nil {
		return nil, err
	}

	queue := newTabQueue()
	listenCtx, stop := context.WithCancel(b.ctx)
	chromedp.ListenBrowser(listenCtx, func(ev any) {
		if trigger, ok := b.translate(ev); ok {
			queue.push(trigger)
		}
	})

	out := make(chan domain.Trigger, 64)
	go func() {
		defer close(out)
		defer stop()
		b.forward(ctx, queue, out)
	}()

	return out, nil
}

func (b *Browser) forward(ctx context.Context, queue *tabQueue, out chan<- domain.Trigger) {
	for {
		for {
			trigger, ok := queue.pop()
			if !ok {
				break
			}
			select {
			case out <- trigger:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-b.ctx.Done():
			b.logger.Info("browser disconnected", "undelivered", queue.size())
			select {
			case out <- domain.Trigger{Kind: domain.TriggerBrowserSuspend, Err: ErrDisconnected}:
			case <-ctx.Done():
			}
			return
		case <-queue.ready:
		}
	}
}

func (b *Browser) translate(ev any) (domain.Trigger, bool) {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		return b.pageTrigger(e.TargetInfo)
	case *target.EventTargetInfoChanged:
		return b.pageTrigger(e.TargetInfo)
	case *target.EventTargetDestroyed:
		if e.TargetID == b.helperID {
			return domain.Trigger{}, false
		}
		return domain.Trigger{Kind: domain.TriggerTabClosed, TabID: string(e.TargetID)}, true
	default:
		return domain.Trigger{}, false
	}
}

func (b *Browser) pageTrigger(info *target.Info) (domain.Trigger, bool) {
	if info == nil || info.Type != pageTargetType || info.TargetID == b.helperID {
		return domain.Trigger{}, false
	}
	return domain.Trigger{Kind: domain.TriggerTabUpdated, TabID: string(info.TargetID), URL: info.URL}, true
}

func (b *Browser) alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.ctx.Err() != nil {
		return ErrDisconnected
	}
	return nil
}

// browserRun executes fn against the browser target, which owns the
// cookie jar of the default browser context.
func (b *Browser) browserRun(ctx context.Context, fn func(context.Context) error) error {
	if err := b.alive(ctx); err != nil {
		return err
	}
	c := chromedp.FromContext(b.ctx)
	if c == nil || c.Browser == nil {
		return ErrDisconnected
	}

	runCtx, cancel := mergeCancel(b.ctx, ctx)
	defer cancel()
	return fn(cdp.WithExecutor(runCtx, c.Browser))
}

func (b *Browser) browserDo(ctx context.Context, action chromedp.Action) error {
	return b.browserRun(ctx, action.Do)
}

// tabRun executes fn in the helper tab session.
func (b *Browser) tabRun(ctx context.Context, fn func(context.Context) error) error {
	if err := b.alive(ctx); err != nil {
		return err
	}

	runCtx, cancel := mergeCancel(b.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.ActionFunc(fn))
}

// mergeCancel derives from base, which carries the chromedp executor, and
// also ends when ctx ends.
func mergeCancel(base, ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(base)
	stop := context.AfterFunc(ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func toCookieParam(write domain.CookieWrite) *network.CookieParam {
	param := &network.CookieParam{
		Name:   write.Name,
		Value:  write.Value,
		URL:    write.URL,
		Domain: write.Domain,
		Path:   write.Path,
		Secure: write.Secure,
	}
	switch write.SameSite {
	case domain.SameSiteLax:
		param.SameSite = network.CookieSameSiteLax
	case domain.SameSiteStrict:
		param.SameSite = network.CookieSameSiteStrict
	case domain.SameSiteNoRestriction:
		param.SameSite = network.CookieSameSiteNone
	}

	return param
}

func fromNetworkCookie(cookie *network.Cookie) domain.Cookie {
	out := domain.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   cookie.Domain,
		Path:     cookie.Path,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HTTPOnly,
	}
	switch cookie.SameSite {
	case network.CookieSameSiteLax:
		out.SameSite = domain.SameSiteLax
	case network.CookieSameSiteStrict:
		out.SameSite = domain.SameSiteStrict
	case network.CookieSameSiteNone:
		out.SameSite = domain.SameSiteNoRestriction
	}

	return out
}
