package ports

import (
	"context"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

// Notifier is fire-and-forget; implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event)
}
