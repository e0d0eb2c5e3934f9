package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/adapters/notify"
	redisnotify "github.com/bnema/cookie-accounts-cli/internal/adapters/notify/redis"
	"github.com/bnema/cookie-accounts-cli/internal/adapters/registry"
	statusadapter "github.com/bnema/cookie-accounts-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/cookie-accounts-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/cookie-accounts-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/cookie-accounts-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/cookie-accounts-cli/internal/adapters/secrets/pass"
	"github.com/bnema/cookie-accounts-cli/internal/application"
	"github.com/bnema/cookie-accounts-cli/internal/config"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/platform/logging"
	"github.com/bnema/cookie-accounts-cli/internal/platform/retry"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	redisConnectTimeout = 3 * time.Second
	pollRetryAttempts   = 3
	pollRetryBackoff    = time.Second
)

type app struct {
	cfg              config.Config
	logger           *slog.Logger
	service          *application.Service
	coordinator      *application.Coordinator
	state            *tomlrepo.Repository
	browser          *browserConn
	hub              *notify.Hub
	events           *redisnotify.Notifier
	statusRenderer   func(application.Status, statusadapter.RenderOptions) string
	accountsRenderer func([]domain.Account, domain.AccountID) string
	now              func() time.Time
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.InitLogger(cfg.Log.Level, cfg.Log.Format)

	v.Set(config.KeyStatePath, cfg.StatePath)
	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire state repository: %w", err)
	}

	secretStore, err := newSecretStore(cfg.Secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	client := registry.NewClient(cfg.Registry.BaseURL, secretStore, registry.Options{
		RequestTimeout:     cfg.Registry.Timeout,
		BreakerMaxFailures: cfg.Registry.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.Registry.BreakerOpenTimeout,
		Logger:             logger,
	})

	hub := notify.NewHub(0)
	notifiers := notify.Multi{notify.NewLogNotifier(logger), hub}
	events := connectRedis(cfg.Notify, logger)
	if events != nil {
		notifiers = append(notifiers, events)
	}

	browser := newBrowserConn(cfg.Browser, logger)
	cookies := application.NewCookieLifecycle(browser, retry.Policy{
		MaxAttempts: cfg.Cookies.MaxAttempts,
		Backoff:     cfg.Cookies.Backoff,
	}, logger)
	coordinator := application.NewCoordinator(client, cookies, repo, notifiers, application.CoordinatorOptions{
		PollInterval:       cfg.Session.PollInterval,
		PollRetry:          retry.Policy{MaxAttempts: pollRetryAttempts, Backoff: pollRetryBackoff},
		RevokeUnsharedOnly: cfg.Revoke == config.RevokeUnshared,
		ReleaseTimeout:     cfg.Registry.Timeout,
		LockTimeout:        cfg.StateLockTimeout,
		Logger:             logger,
	})

	return &app{
		cfg:              cfg,
		logger:           logger,
		service:          application.NewService(client, client, client, repo, secretStore),
		coordinator:      coordinator,
		state:            repo,
		browser:          browser,
		hub:              hub,
		events:           events,
		statusRenderer:   statusadapter.Render,
		accountsRenderer: statusadapter.RenderAccounts,
		now:              time.Now,
	}, nil
}

func newSecretStore(cfg config.SecretsConfig, logger *slog.Logger) (ports.SecretStore, error) {
	passOpts := passstore.Options{Prefix: cfg.PassPrefix, Timeout: cfg.PassTimeout}
	switch cfg.Backend {
	case "pass":
		return passstore.New(passOpts), nil
	case "chain":
		return chainstore.NewPassFirstWithFileFallback(passOpts, cfg.Dir, logger)
	default:
		return filestore.NewStore(cfg.Dir), nil
	}
}

// connectRedis returns nil when notifications over redis are disabled or
// unreachable; the CLI keeps working without them.
func connectRedis(cfg config.NotifyConfig, logger *slog.Logger) *redisnotify.Notifier {
	if cfg.RedisURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	notifier, err := redisnotify.NewNotifier(ctx, cfg.RedisURL, cfg.Channel, logger)
	if err != nil {
		logger.Warn("redis notifications disabled", "error", err)
		return nil
	}

	return notifier
}

func (a *app) close() {
	a.coordinator.Close()
	a.browser.Close()
	a.hub.Close()
	if a.events != nil {
		_ = a.events.Close()
	}
}
