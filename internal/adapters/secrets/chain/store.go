package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	filestore "github.com/bnema/cookie-accounts-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/cookie-accounts-cli/internal/adapters/secrets/pass"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/metrics"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
)

// Store prefers primary and keeps fallback as a safety net. A token found
// only in fallback is copied into primary once primary is reachable again.
// Deletes go to both so a logout never leaves a token behind.
type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
	logger   *slog.Logger
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

func New(primary, fallback ports.SecretStore, logger *slog.Logger) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{primary: primary, fallback: fallback, logger: logger}, nil
}

// NewPassFirstWithFileFallback chains the pass store in front of the TOML
// credentials file under fileRoot.
func NewPassFirstWithFileFallback(pass passstore.Options, fileRoot string, logger *slog.Logger) (*Store, error) {
	return New(passstore.New(pass), filestore.NewStore(fileRoot), logger)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		return nil
	}
	if isContextError(err) {
		return err
	}

	s.logger.Warn("primary secret store rejected write, using fallback", "key", key, "error", err)
	metrics.SecretFallbacksTotal.WithLabelValues("put").Inc()
	if fallbackErr := s.fallback.Put(ctx, key, value); fallbackErr != nil {
		return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if isContextError(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr != nil {
		if errors.Is(err, domain.ErrSecretNotFound) && errors.Is(fallbackErr, domain.ErrSecretNotFound) {
			return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
		}
		return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
	}

	metrics.SecretFallbacksTotal.WithLabelValues("get").Inc()
	if errors.Is(err, domain.ErrSecretNotFound) {
		s.promote(ctx, key, fallbackValue)
	}

	return fallbackValue, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if isContextError(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	switch {
	case err == nil && fallbackErr == nil:
		return nil
	case err == nil:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	case fallbackErr == nil:
		return fmt.Errorf("primary backend delete failed: %w", err)
	default:
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
}

// promote moves a fallback-only secret into primary. Failures leave the
// fallback copy in place.
func (s *Store) promote(ctx context.Context, key, value string) {
	if err := s.primary.Put(ctx, key, value); err != nil {
		s.logger.Debug("secret promotion skipped", "key", key, "error", err)
		return
	}
	if err := s.fallback.Delete(ctx, key); err != nil {
		s.logger.Warn("promoted secret left in fallback store", "key", key, "error", err)
		return
	}
	s.logger.Info("secret moved to primary store", "key", key)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
