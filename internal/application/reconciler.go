package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/metrics"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	"github.com/jonboulle/clockwork"
)

const triggerBuffer = 16

type ReconcilerOptions struct {
	Policy domain.ReconcilePolicy
	// InactivityTimeout arms a teardown timer whenever the session shows no
	// activity on a managed domain. Zero disables it.
	InactivityTimeout time.Duration
	Clock             clockwork.Clock
	Logger            *slog.Logger
}

// Reconciler turns browser signals into teardown decisions. Decisions come
// from domain.Decide; effects go through the Coordinator.
type Reconciler struct {
	coordinator *Coordinator
	tabs        ports.TabSource
	opts        ReconcilerOptions
	internal    chan domain.Trigger

	mu         sync.Mutex
	tabURLs    map[string]string
	inactivity clockwork.Timer
}

func NewReconciler(coordinator *Coordinator, tabs ports.TabSource, opts ReconcilerOptions) *Reconciler {
	if opts.Policy == "" {
		opts.Policy = domain.PolicyNoOpenTab
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Reconciler{
		coordinator: coordinator,
		tabs:        tabs,
		opts:        opts,
		internal:    make(chan domain.Trigger, triggerBuffer),
		tabURLs:     map[string]string{},
	}
}

// Enqueue hands a trigger to the Run loop. It never blocks; a full queue
// drops the trigger.
func (r *Reconciler) Enqueue(trigger domain.Trigger) bool {
	select {
	case r.internal <- trigger:
		return true
	default:
		r.opts.Logger.Warn("reconciler queue full, dropping trigger", "trigger", trigger.Kind)
		return false
	}
}

// Run processes triggers one at a time until ctx is done or the tab source
// closes its stream.
func (r *Reconciler) Run(ctx context.Context) error {
	events, err := r.tabs.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to tab events: %w", err)
	}

	tabs, err := r.tabs.QueryAllTabs(ctx)
	if err != nil {
		return fmt.Errorf("query tabs: %w", err)
	}
	r.mu.Lock()
	for _, tab := range tabs {
		r.tabURLs[tab.ID] = tab.URL
	}
	r.mu.Unlock()
	r.arm()
	defer r.disarm()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case trigger, ok := <-events:
			if !ok {
				return nil
			}
			r.handleLogged(ctx, trigger)
		case trigger := <-r.internal:
			r.handleLogged(ctx, trigger)
		}
	}
}

func (r *Reconciler) handleLogged(ctx context.Context, trigger domain.Trigger) {
	if _, err := r.Handle(ctx, trigger); err != nil {
		r.opts.Logger.Error("reconcile trigger", "trigger", trigger.Kind, "error", err)
	}
}

// Handle decides and applies one trigger and returns the decision taken.
func (r *Reconciler) Handle(ctx context.Context, trigger domain.Trigger) (domain.Decision, error) {
	trigger = r.track(trigger)

	key, managed := r.coordinator.snapshot()
	input := domain.ReconcileInput{SessionKey: key, Managed: managed, Policy: r.opts.Policy}
	if key != "" && needsTabs(trigger.Kind) {
		tabs, err := r.tabs.QueryAllTabs(ctx)
		if err != nil {
			return domain.Decision{Action: domain.ActionNone}, fmt.Errorf("query tabs: %w", err)
		}
		input.OpenTabs = tabs
	}

	decision := domain.Decide(trigger, input)
	metrics.ReconcilerTriggersTotal.WithLabelValues(string(trigger.Kind), string(decision.Action)).Inc()
	r.opts.Logger.Debug("reconcile decision", "trigger", trigger.Kind, "action", decision.Action, "reason", decision.Reason, "session_key", decision.SessionKey)

	switch decision.Action {
	case domain.ActionTouch:
		r.arm()
	case domain.ActionTeardown:
		r.disarm()
		if err := r.coordinator.Apply(ctx, decision); err != nil {
			return decision, err
		}
	case domain.ActionReload:
		if err := r.coordinator.Apply(ctx, decision); err != nil {
			return decision, err
		}
		r.arm()
	}

	return decision, nil
}

// track keeps the last known URL per tab so closes and navigations can be
// attributed to the domain the tab was on.
func (r *Reconciler) track(trigger domain.Trigger) domain.Trigger {
	if trigger.TabID == "" {
		return trigger
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.tabURLs[trigger.TabID]
	switch trigger.Kind {
	case domain.TriggerTabClosed:
		if trigger.URL == "" {
			trigger.URL = previous
		}
		delete(r.tabURLs, trigger.TabID)
	case domain.TriggerTabActivated, domain.TriggerTabUpdated:
		if trigger.URL == "" {
			trigger.URL = previous
			break
		}
		if trigger.PrevURL == "" && previous != trigger.URL {
			trigger.PrevURL = previous
		}
		r.tabURLs[trigger.TabID] = trigger.URL
	}

	return trigger
}

func needsTabs(kind domain.TriggerKind) bool {
	switch kind {
	case domain.TriggerTabClosed, domain.TriggerTabUpdated, domain.TriggerTabActivated, domain.TriggerInactivityTimeout:
		return true
	default:
		return false
	}
}

// arm restarts the inactivity timer for the current session, replacing any
// timer bound to an earlier one.
func (r *Reconciler) arm() {
	if r.opts.InactivityTimeout <= 0 {
		return
	}

	key, _ := r.coordinator.snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inactivity != nil {
		r.inactivity.Stop()
		r.inactivity = nil
	}
	if key == "" {
		return
	}
	r.inactivity = r.opts.Clock.AfterFunc(r.opts.InactivityTimeout, func() {
		r.Enqueue(domain.Trigger{Kind: domain.TriggerInactivityTimeout, SessionKey: key})
	})
}

func (r *Reconciler) disarm() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inactivity != nil {
		r.inactivity.Stop()
		r.inactivity = nil
	}
}
