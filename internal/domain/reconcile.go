package domain

type TriggerKind string

const (
	TriggerTabClosed         TriggerKind = "tab_closed"
	TriggerTabActivated      TriggerKind = "tab_activated"
	TriggerTabUpdated        TriggerKind = "tab_updated"
	TriggerBrowserSuspend    TriggerKind = "browser_suspend"
	TriggerPollFailed        TriggerKind = "poll_failed"
	TriggerInactivityTimeout TriggerKind = "inactivity_timeout"
	TriggerStorageChanged    TriggerKind = "storage_changed"
)

// Trigger is a named browser, timer or storage signal. SessionKey is set by
// timers so that a signal created for a replaced session is ignored.
type Trigger struct {
	Kind       TriggerKind
	TabID      string
	URL        string
	PrevURL    string
	SessionKey SessionKey
	Err        error
}

type Tab struct {
	ID  string
	URL string
}

type ReconcilePolicy string

const (
	// PolicyNoOpenTab tears down once no managed domain has an open tab.
	PolicyNoOpenTab ReconcilePolicy = "no_open_tab"
	// PolicyAnyDomainClosed tears down when any managed domain loses its last tab.
	PolicyAnyDomainClosed ReconcilePolicy = "any_domain_closed"
)

func ParseReconcilePolicy(raw string) (ReconcilePolicy, bool) {
	switch ReconcilePolicy(raw) {
	case PolicyNoOpenTab, "":
		return PolicyNoOpenTab, true
	case PolicyAnyDomainClosed:
		return PolicyAnyDomainClosed, true
	default:
		return "", false
	}
}

type TeardownReason string

const (
	ReasonLogout     TeardownReason = "logout"
	ReasonSwitch     TeardownReason = "switch"
	ReasonRollback   TeardownReason = "rollback"
	ReasonNoOpenTabs TeardownReason = "no_open_tabs"
	ReasonSuspend    TeardownReason = "browser_suspend"
	ReasonExpired    TeardownReason = "session_expired"
	ReasonInactive   TeardownReason = "inactivity"
)

type Action string

const (
	ActionNone     Action = "none"
	ActionTeardown Action = "teardown"
	ActionTouch    Action = "touch"
	ActionReload   Action = "reload"
)

type Decision struct {
	Action        Action
	Reason        TeardownReason
	SessionKey    SessionKey
	NotifyExpired bool
}

// ReconcileInput is everything Decide looks at; it is a snapshot taken by the
// caller so the decision has no side effects.
type ReconcileInput struct {
	SessionKey SessionKey
	Managed    ManagedDomains
	OpenTabs   []Tab
	Policy     ReconcilePolicy
}

func Decide(trigger Trigger, in ReconcileInput) Decision {
	if trigger.Kind == TriggerStorageChanged {
		return Decision{Action: ActionReload}
	}
	if in.SessionKey == "" {
		return Decision{Action: ActionNone}
	}
	if trigger.SessionKey != "" && trigger.SessionKey != in.SessionKey {
		return Decision{Action: ActionNone}
	}

	teardown := func(reason TeardownReason) Decision {
		return Decision{Action: ActionTeardown, Reason: reason, SessionKey: in.SessionKey}
	}

	switch trigger.Kind {
	case TriggerBrowserSuspend:
		return teardown(ReasonSuspend)
	case TriggerPollFailed:
		decision := teardown(ReasonExpired)
		decision.NotifyExpired = true
		return decision
	case TriggerInactivityTimeout:
		if len(OpenManagedDomains(in.Managed, in.OpenTabs)) == 0 {
			return teardown(ReasonInactive)
		}
		return Decision{Action: ActionTouch, SessionKey: in.SessionKey}
	case TriggerTabClosed:
		if leftManagedDomain(in, HostOf(trigger.URL)) {
			return teardown(ReasonNoOpenTabs)
		}
		return Decision{Action: ActionNone}
	case TriggerTabActivated, TriggerTabUpdated:
		if _, ok := in.Managed.Match(HostOf(trigger.URL)); ok {
			return Decision{Action: ActionTouch, SessionKey: in.SessionKey}
		}
		// Navigating a tab away from a managed domain is a close for that domain.
		if trigger.PrevURL != "" && leftManagedDomain(in, HostOf(trigger.PrevURL)) {
			return teardown(ReasonNoOpenTabs)
		}
		return Decision{Action: ActionNone}
	default:
		return Decision{Action: ActionNone}
	}
}

func leftManagedDomain(in ReconcileInput, closedHost string) bool {
	open := OpenManagedDomains(in.Managed, in.OpenTabs)
	if in.Policy != PolicyAnyDomainClosed {
		return len(open) == 0
	}

	// An unknown host gives no domain to attribute the close to.
	if closedHost == "" {
		return len(open) == 0
	}
	domain, ok := in.Managed.Match(closedHost)
	if !ok {
		return false
	}

	return !open.Contains(domain)
}

// OpenManagedDomains lists the managed domains with at least one open tab.
func OpenManagedDomains(managed ManagedDomains, tabs []Tab) ManagedDomains {
	open := make([]string, 0, len(managed))
	for _, tab := range tabs {
		if domain, ok := managed.Match(HostOf(tab.URL)); ok {
			open = append(open, domain)
		}
	}

	return NewManagedDomains(open...)
}
