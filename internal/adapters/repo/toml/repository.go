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
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	statePathKey    = "state.path"
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateConfigDir  = ".cookie-accounts"
	stateConfigFile = "state.toml"
	tempFilePattern = ".state-*.toml.tmp"
)

// Repository persists the profile and the current account in one TOML file
// shared by every process of the same user.
type Repository struct {
	statePath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.StateRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(statePathKey, filepath.Join(homeDir, stateConfigDir, stateConfigFile))

	statePath := cfg.GetString(statePathKey)
	if statePath == "" {
		return nil, errors.New("state path is empty")
	}
	statePath, err = normalizeStatePath(statePath)
	if err != nil {
		return nil, err
	}

	return &Repository{statePath: statePath, mu: lockForPath(statePath)}, nil
}

func (r *Repository) Path() string {
	return r.statePath
}

func (r *Repository) LoadCurrent(ctx context.Context) (domain.CurrentAccount, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CurrentAccount{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.CurrentAccount{}, false, err
	}
	if file.Current == nil {
		return domain.CurrentAccount{}, false, nil
	}

	return fromCurrentSchema(*file.Current), true, nil
}

func (r *Repository) SaveCurrent(ctx context.Context, current domain.CurrentAccount) error {
	return r.update(ctx, func(file *fileSchema) bool {
		encoded := toCurrentSchema(current)
		file.Current = &encoded
		return true
	})
}

// ClearCurrent empties the slot only while it still holds key, and reports
// whether it did. A slot another process has since replaced is left alone.
func (r *Repository) ClearCurrent(ctx context.Context, key domain.SessionKey) (bool, error) {
	cleared := false
	err := r.update(ctx, func(file *fileSchema) bool {
		if file.Current == nil || domain.SessionKey(file.Current.SessionKey) != key {
			return false
		}
		file.Current = nil
		cleared = true
		return true
	})

	return cleared, err
}

func (r *Repository) LoadProfile(ctx context.Context) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Profile{}, err
	}

	return domain.Profile{
		User:     domain.User{ID: file.Profile.UserID, Email: file.Profile.Email},
		DeviceID: file.Profile.DeviceID,
	}, nil
}

func (r *Repository) SaveProfile(ctx context.Context, profile domain.Profile) error {
	return r.update(ctx, func(file *fileSchema) bool {
		file.Profile = profileSchema{
			UserID:   profile.User.ID,
			Email:    profile.User.Email,
			DeviceID: profile.DeviceID,
		}
		return true
	})
}

// update rewrites the file when mutate reports a change.
func (r *Repository) update(ctx context.Context, mutate func(*fileSchema) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	if !mutate(&file) {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read state file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode state file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeStatePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// writeSchema replaces the file atomically so watchers never observe a
// partial write.
func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.statePath), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.statePath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, r.statePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.statePath, stateFileMode); err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}

	return nil
}

func toCurrentSchema(current domain.CurrentAccount) currentSchema {
	cookies := make([]cookieSchema, 0, len(current.Account.Cookies))
	for _, cookie := range current.Account.Cookies {
		cookies = append(cookies, cookieSchema{Domain: cookie.Domain, Name: cookie.Name, Value: cookie.Value})
	}

	return currentSchema{
		SessionKey:      string(current.SessionKey),
		RemoteSessionID: current.RemoteSessionID,
		DeviceID:        current.DeviceID,
		Domain:          current.Domain,
		AppliedAt:       formatTime(current.AppliedAt),
		ManagedDomains:  []string(domain.DomainsOf(current.Account)),
		Account: accountSchema{
			ID:                 string(current.Account.ID),
			Name:               current.Account.Name,
			MaxConcurrentUsers: current.Account.MaxConcurrentUsers,
			Cookies:            cookies,
		},
	}
}

func fromCurrentSchema(current currentSchema) domain.CurrentAccount {
	var cookies []domain.CookieSpec
	for _, cookie := range current.Account.Cookies {
		cookies = append(cookies, domain.CookieSpec{Domain: cookie.Domain, Name: cookie.Name, Value: cookie.Value})
	}

	return domain.CurrentAccount{
		Account: domain.Account{
			ID:                 domain.AccountID(current.Account.ID),
			Name:               current.Account.Name,
			Cookies:            cookies,
			MaxConcurrentUsers: current.Account.MaxConcurrentUsers,
		},
		SessionKey:      domain.SessionKey(current.SessionKey),
		RemoteSessionID: current.RemoteSessionID,
		DeviceID:        current.DeviceID,
		Domain:          current.Domain,
		AppliedAt:       parseTime(current.AppliedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
