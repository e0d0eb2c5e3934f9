package ports

import (
	"context"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

type TabSource interface {
	QueryAllTabs(ctx context.Context) ([]domain.Tab, error)
	// Subscribe streams tab and suspend triggers until ctx is done. The
	// channel is closed when the source stops; a closed browser yields a
	// TriggerBrowserSuspend before the close.
	Subscribe(ctx context.Context) (<-chan domain.Trigger, error)
}
