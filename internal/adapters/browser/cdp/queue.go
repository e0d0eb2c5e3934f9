package cdp

import (
	"sync"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

// tabQueue sits between the chromedp listener, which must never block, and
// a subscriber that may lag. Nothing is dropped: closes stay queued in
// order, and a newer update for a tab replaces its pending one, so the
// queue grows with open tabs rather than with event rate.
type tabQueue struct {
	mu      sync.Mutex
	pending []domain.Trigger
	ready   chan struct{}
}

func newTabQueue() *tabQueue {
	return &tabQueue{ready: make(chan struct{}, 1)}
}

func (q *tabQueue) push(trigger domain.Trigger) {
	q.mu.Lock()
	if !q.coalesce(trigger) {
		q.pending = append(q.pending, trigger)
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// coalesce replaces a pending update for the same tab. A pending close for
// that tab ends the search so the update is queued after it.
// q.mu must be held.
func (q *tabQueue) coalesce(trigger domain.Trigger) bool {
	if trigger.Kind != domain.TriggerTabUpdated {
		return false
	}
	for i := len(q.pending) - 1; i >= 0; i-- {
		if q.pending[i].TabID != trigger.TabID {
			continue
		}
		if q.pending[i].Kind != domain.TriggerTabUpdated {
			return false
		}
		q.pending[i] = trigger
		return true
	}
	return false
}

func (q *tabQueue) pop() (domain.Trigger, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return domain.Trigger{}, false
	}
	trigger := q.pending[0]
	q.pending[0] = domain.Trigger{}
	q.pending = q.pending[1:]
	return trigger, true
}

func (q *tabQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
