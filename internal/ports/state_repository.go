package ports

import (
	"context"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

// StateRepository holds the profile and the single current-account slot
// shared by every process of the user. Lock and TryLock guard the slot
// across processes; both return a func that releases the lock.
type StateRepository interface {
	Lock(ctx context.Context) (func(), error)
	// TryLock fails with domain.ErrStateLocked while another holder has the lock.
	TryLock(ctx context.Context) (func(), error)
	LoadCurrent(ctx context.Context) (domain.CurrentAccount, bool, error)
	SaveCurrent(ctx context.Context, current domain.CurrentAccount) error
	// ClearCurrent empties the slot only while it still holds key.
	ClearCurrent(ctx context.Context, key domain.SessionKey) (bool, error)
	LoadProfile(ctx context.Context) (domain.Profile, error)
	SaveProfile(ctx context.Context, profile domain.Profile) error
}
