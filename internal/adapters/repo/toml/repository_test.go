package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/platform/logging"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, statePath string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("state.path", statePath)
	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func sampleCurrent() domain.CurrentAccount {
	return domain.CurrentAccount{
		Account: domain.Account{
			ID:   "7",
			Name: "Streaming",
			Cookies: []domain.CookieSpec{
				{Domain: ".example.com", Name: "sid", Value: "abc"},
				{Domain: "media.example.org", Name: "__Host-token", Value: "xyz"},
			},
			MaxConcurrentUsers: 2,
		},
		SessionKey:      "key-1",
		RemoteSessionID: "7",
		DeviceID:        "device-1",
		Domain:          "example.com",
		AppliedAt:       time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestRepositoryCurrentRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "state.toml"))
	ctx := context.Background()

	_, ok, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	current := sampleCurrent()
	require.NoError(t, repo.SaveCurrent(ctx, current))

	got, ok, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, current, got)

	cleared, err := repo.ClearCurrent(ctx, current.SessionKey)
	require.NoError(t, err)
	assert.True(t, cleared)
	_, ok, err = repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryClearCurrentKeepsReplacedSlot(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repo := newTestRepository(t, statePath)
	ctx := context.Background()

	replacement := sampleCurrent()
	replacement.SessionKey = "key-2"
	require.NoError(t, repo.SaveCurrent(ctx, replacement))
	before, err := os.Stat(statePath)
	require.NoError(t, err)

	cleared, err := repo.ClearCurrent(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, cleared)

	got, ok, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.SessionKey("key-2"), got.SessionKey)

	after, err := os.Stat(statePath)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "an unchanged slot is not rewritten")
}

func TestRepositoryProfileSurvivesCurrentChanges(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "state.toml"))
	ctx := context.Background()

	profile := domain.Profile{User: domain.User{ID: "alice@example.com", Email: "alice@example.com"}, DeviceID: "device-1"}
	require.NoError(t, repo.SaveProfile(ctx, profile))
	require.NoError(t, repo.SaveCurrent(ctx, sampleCurrent()))
	_, err := repo.ClearCurrent(ctx, sampleCurrent().SessionKey)
	require.NoError(t, err)

	got, err := repo.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, profile, got)
}

func TestRepositorySerializedTOMLIncludesVersionAndManagedDomains(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repo := newTestRepository(t, statePath)

	require.NoError(t, repo.SaveCurrent(context.Background(), sampleCurrent()))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "managed_domains")
	assert.Contains(t, string(data), "media.example.org")
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	require.NoError(t, repo.SaveProfile(context.Background(), domain.Profile{DeviceID: "device-1"}))

	statePath := filepath.Join(homeDir, ".cookie-accounts", "state.toml")
	assert.Equal(t, statePath, repo.Path())
	info, err := os.Stat(statePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "state.toml"))

	_, ok, err := repo.LoadCurrent(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	profile, err := repo.LoadProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Profile{}, profile)

	cleared, err := repo.ClearCurrent(context.Background(), "key-1")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestRepositoryMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("current = ["), 0o600))

	repo := newTestRepository(t, statePath)

	_, _, err := repo.LoadCurrent(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode state file")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "state.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.SaveCurrent(ctx, sampleCurrent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentWritesAcrossInstancesKeepFileValid(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repoA := newTestRepository(t, statePath)
	repoB := newTestRepository(t, statePath)

	const perRepoWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			current := sampleCurrent()
			current.SessionKey = domain.SessionKey("a-" + strconv.Itoa(i))
			errCh <- repoA.SaveCurrent(context.Background(), current)
		}
	}()

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repoB.SaveProfile(context.Background(), domain.Profile{DeviceID: "device-" + strconv.Itoa(i)})
		}
	}()

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	current, ok, err := repoA.LoadCurrent(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.SessionKey("a-49"), current.SessionKey)

	profile, err := repoB.LoadProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "device-49", profile.DeviceID)
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte(strings.Join([]string{
		"version = 999",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, statePath)

	_, err := repo.LoadProfile(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported state schema version")
}

func TestWatchReportsWritesFromOtherInstances(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	watching := newTestRepository(t, statePath)
	writer := newTestRepository(t, statePath)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	changes, err := watching.Watch(ctx, logging.Discard())
	require.NoError(t, err)

	require.NoError(t, writer.SaveCurrent(context.Background(), sampleCurrent()))

	select {
	case _, ok := <-changes:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("state change was not reported")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
