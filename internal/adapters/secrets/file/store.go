package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	storeDirMode       = 0o700
	secretFileMode     = 0o600
	credentialsVersion = 1
	credentialsFile    = "credentials.toml"
	tempFilePattern    = ".credentials-*.tmp"
)

// Store keeps every secret in one owner-only TOML file below root.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

var _ ports.SecretStore = (*Store)(nil)

type credentials struct {
	Version int                    `toml:"version"`
	Secrets map[string]secretEntry `toml:"secrets"`
}

type secretEntry struct {
	Value     string    `toml:"value"`
	UpdatedAt time.Time `toml:"updated_at"`
}

func NewStore(root string) *Store {
	return &Store{
		path: filepath.Join(filepath.Clean(root), credentialsFile),
		now:  time.Now,
	}
}

// Path is the credentials file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}
	creds.Secrets[key] = secretEntry{Value: value, UpdatedAt: s.now().UTC().Truncate(time.Second)}

	return s.save(creds)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return "", err
	}
	entry, ok := creds.Secrets[key]
	if !ok {
		return "", fmt.Errorf("file secret %q: %w", key, domain.ErrSecretNotFound)
	}

	return entry.Value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := creds.Secrets[key]; !ok {
		return nil
	}
	delete(creds.Secrets, key)

	if len(creds.Secrets) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete credentials file: %w", err)
		}
		return nil
	}

	return s.save(creds)
}

func (s *Store) load() (credentials, error) {
	creds := credentials{Version: credentialsVersion, Secrets: map[string]secretEntry{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return creds, nil
		}
		return credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	if err := toml.Unmarshal(data, &creds); err != nil {
		return credentials{}, fmt.Errorf("decode credentials file %s: %w", s.path, err)
	}
	if creds.Version > credentialsVersion {
		return credentials{}, fmt.Errorf("credentials file %s has unsupported version %d", s.path, creds.Version)
	}
	if creds.Secrets == nil {
		creds.Secrets = map[string]secretEntry{}
	}

	return creds, nil
}

func (s *Store) save(creds credentials) error {
	creds.Version = credentialsVersion
	data, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, storeDirMode); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()

	if err := tempFile.Chmod(secretFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp credentials file: %w", err)
	}
	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp credentials file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp credentials file: %w", err)
	}
	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}

	return nil
}

func normalizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("secret key is empty")
	}

	return trimmed, nil
}
