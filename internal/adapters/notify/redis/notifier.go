// Package redis publishes session events over Redis pub/sub so other
// processes of the same user can follow account switches.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	goredis "github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

type Notifier struct {
	rdb     *goredis.Client
	pub     publisher
	channel string
	logger  *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier connects to redisURL, e.g. "redis://localhost:6379/0".
func NewNotifier(ctx context.Context, redisURL, channel string, logger *slog.Logger) (*Notifier, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Notifier{rdb: rdb, pub: rdb, channel: channel, logger: logger}, nil
}

// Notify publishes the event as JSON. Failures are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("encode session event", "event", string(event.Kind), "error", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := n.pub.Publish(publishCtx, n.channel, data).Err(); err != nil {
		n.logger.Warn("publish session event", "event", string(event.Kind), "channel", n.channel, "error", err)
	}
}

// Subscribe streams events published on the channel until ctx ends.
// Undecodable messages are skipped.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	if n.rdb == nil {
		return nil, fmt.Errorf("subscribe %s: notifier has no redis client", n.channel)
	}

	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	events := make(chan domain.Event, 16)
	go func() {
		defer close(events)
		defer func() { _ = sub.Close() }()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					n.logger.Debug("skip undecodable session event", "error", err)
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (n *Notifier) Close() error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}
