package notify

import (
	"context"
	"sync"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
)

const defaultHubBuffer = 32

// Hub broadcasts events to in-process subscribers. A subscriber whose
// buffer is full misses the event; Notify never blocks the caller.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Event]struct{}
	bufferSize  int
	closed      bool
}

var _ ports.Notifier = (*Hub)(nil)

func NewHub(bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = defaultHubBuffer
	}
	return &Hub{subscribers: map[chan domain.Event]struct{}{}, bufferSize: bufferSize}
}

// Subscribe returns a channel that is closed when ctx ends or the hub closes.
func (h *Hub) Subscribe(ctx context.Context) <-chan domain.Event {
	ch := make(chan domain.Event, h.bufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(ch)
	}()

	return ch
}

func (h *Hub) Notify(_ context.Context, event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
	}
	clear(h.subscribers)
}

func (h *Hub) unsubscribe(ch chan domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)
}
