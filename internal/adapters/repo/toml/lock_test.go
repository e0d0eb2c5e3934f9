package toml

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockExcludesOtherHolders(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	first := newTestRepository(t, statePath)
	second := newTestRepository(t, statePath)
	ctx := context.Background()

	unlock, err := first.TryLock(ctx)
	require.NoError(t, err)

	_, err = second.TryLock(ctx)
	require.ErrorIs(t, err, domain.ErrStateLocked)

	unlock()
	unlock()

	unlockSecond, err := second.TryLock(ctx)
	require.NoError(t, err)
	unlockSecond()
}

func TestLockWaitsForRelease(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	holder := newTestRepository(t, statePath)
	waiter := newTestRepository(t, statePath)

	unlock, err := holder.TryLock(context.Background())
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		release, err := waiter.Lock(ctx)
		if err == nil {
			release()
		}
		acquired <- err
	}()

	select {
	case err := <-acquired:
		t.Fatalf("lock acquired while held: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	unlock()
	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestLockGivesUpWhenContextEnds(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	holder := newTestRepository(t, statePath)
	waiter := newTestRepository(t, statePath)

	unlock, err := holder.TryLock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = waiter.Lock(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "wait for state lock")
}
