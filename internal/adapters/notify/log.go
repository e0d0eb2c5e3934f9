// Package notify delivers session events to the user-facing layers.
package notify

import (
	"context"
	"log/slog"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
)

// LogNotifier writes events to the structured log. Expiry is a warning
// because the user lost access without asking for it.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event domain.Event) {
	level := slog.LevelInfo
	if event.Kind == domain.EventSessionExpired {
		level = slog.LevelWarn
	}

	attrs := []any{"event", string(event.Kind)}
	if event.AccountID != "" {
		attrs = append(attrs, "account_id", string(event.AccountID))
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", string(event.Reason))
	}
	if event.Kind == domain.EventManagedDomainsChanged {
		attrs = append(attrs, "domains", event.Domains)
	}

	n.logger.Log(ctx, level, "session event", attrs...)
}

// Multi fans one event out to several notifiers in order.
type Multi []ports.Notifier

var _ ports.Notifier = Multi(nil)

func (m Multi) Notify(ctx context.Context, event domain.Event) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, event)
		}
	}
}
