package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

const (
	lockFileSuffix    = ".lock"
	lockRetryInterval = 25 * time.Millisecond
)

var errLockHeld = errors.New("lock held")

func (r *Repository) lockPath() string {
	return r.statePath + lockFileSuffix
}

// TryLock takes the exclusive lock on the current slot shared by every ca
// process of the user. It fails with domain.ErrStateLocked while another
// holder has it. The returned func releases the lock and is safe to call
// more than once.
func (r *Repository) TryLock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(r.statePath), stateDirMode); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	file, err := os.OpenFile(r.lockPath(), os.O_CREATE|os.O_RDWR, stateFileMode)
	if err != nil {
		return nil, fmt.Errorf("open state lock: %w", err)
	}
	if err := lockFile(file); err != nil {
		_ = file.Close()
		if errors.Is(err, errLockHeld) {
			return nil, domain.ErrStateLocked
		}
		return nil, fmt.Errorf("lock state file: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = unlockFile(file)
			_ = file.Close()
		})
	}, nil
}

// Lock waits for the slot lock until it is free or ctx ends.
func (r *Repository) Lock(ctx context.Context) (func(), error) {
	var unlock func()
	err := backoff.Retry(func() error {
		u, err := r.TryLock(ctx)
		switch {
		case errors.Is(err, domain.ErrStateLocked):
			return err
		case err != nil:
			return backoff.Permanent(err)
		}
		unlock = u
		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(lockRetryInterval), ctx))
	if err != nil {
		return nil, fmt.Errorf("wait for state lock: %w", err)
	}

	return unlock, nil
}
