package domain

import "time"

type EventKind string

const (
	EventSwitched              EventKind = "switched"
	EventTornDown              EventKind = "torn_down"
	EventSessionExpired        EventKind = "session_expired"
	EventManagedDomainsChanged EventKind = "managed_domains_changed"
)

// Event is a fire-and-forget notification for the UI layer.
type Event struct {
	Kind      EventKind      `json:"kind"`
	AccountID AccountID      `json:"account_id,omitempty"`
	Domains   []string       `json:"domains,omitempty"`
	Reason    TeardownReason `json:"reason,omitempty"`
	At        time.Time      `json:"at"`
}
