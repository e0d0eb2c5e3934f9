package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".cookie-accounts"
	envPrefix  = "CA"

	KeyRegistryBaseURL        = "registry.base_url"
	KeyRegistryTimeout        = "registry.timeout"
	KeyBreakerMaxFailures     = "registry.breaker.max_failures"
	KeyBreakerOpenTimeout     = "registry.breaker.open_timeout"
	KeyStatePath              = "state.path"
	KeyStateLockTimeout       = "state.lock_timeout"
	KeySecretsBackend         = "secrets.backend"
	KeySecretsDir             = "secrets.dir"
	KeySecretsPassPrefix      = "secrets.pass_prefix"
	KeySecretsPassTimeout     = "secrets.pass_timeout"
	KeyBrowserBackend         = "browser.backend"
	KeyBrowserDebuggerURL     = "browser.debugger_url"
	KeySessionPollInterval    = "session.poll_interval"
	KeySessionInactivity      = "session.inactivity_timeout"
	KeyCookiesMaxAttempts     = "cookies.max_attempts"
	KeyCookiesBackoff         = "cookies.backoff"
	KeyReconcilePolicy        = "reconcile.policy"
	KeySwitchRevokePolicy     = "switch.revoke_policy"
	KeyNotifyRedisURL         = "notify.redis_url"
	KeyNotifyChannel          = "notify.channel"
	KeyDaemonListen           = "daemon.listen"
	KeyLogLevel               = "log.level"
	KeyLogFormat              = "log.format"
	defaultNotifyChannel      = "cookie-accounts:events"
	defaultRegistryBaseURL    = "http://127.0.0.1:8000"
	defaultBrowserDebuggerURL = "http://127.0.0.1:9222"
)

type RevokePolicy string

const (
	RevokeAll      RevokePolicy = "all"
	RevokeUnshared RevokePolicy = "unshared"
)

type Config struct {
	Registry  RegistryConfig
	StatePath string
	// StateLockTimeout bounds how long a teardown waits for another
	// process holding the state file.
	StateLockTimeout time.Duration
	Secrets          SecretsConfig
	Browser          BrowserConfig
	Session          SessionConfig
	Cookies          CookiesConfig
	Reconcile        domain.ReconcilePolicy
	Revoke           RevokePolicy
	Notify           NotifyConfig
	Daemon           DaemonConfig
	Log              LogConfig
}

type RegistryConfig struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

type SecretsConfig struct {
	Backend     string
	Dir         string
	// PassPrefix is the password-store folder holding the registry token.
	PassPrefix  string
	PassTimeout time.Duration
}

type BrowserConfig struct {
	Backend     string
	DebuggerURL string
}

type SessionConfig struct {
	PollInterval      time.Duration
	InactivityTimeout time.Duration
}

type CookiesConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

type NotifyConfig struct {
	RedisURL string
	Channel  string
}

type DaemonConfig struct {
	Listen string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads ~/.cookie-accounts/config.toml (optional), a .env file in the
// working directory (optional) and CA_* environment variables, in that
// order of increasing precedence.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(baseDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, baseDir)

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Registry: RegistryConfig{
			BaseURL:            strings.TrimRight(v.GetString(KeyRegistryBaseURL), "/"),
			Timeout:            v.GetDuration(KeyRegistryTimeout),
			BreakerMaxFailures: v.GetUint32(KeyBreakerMaxFailures),
			BreakerOpenTimeout: v.GetDuration(KeyBreakerOpenTimeout),
		},
		StatePath:        expandHome(v.GetString(KeyStatePath), homeDir),
		StateLockTimeout: v.GetDuration(KeyStateLockTimeout),
		Secrets: SecretsConfig{
			Backend:     v.GetString(KeySecretsBackend),
			Dir:         expandHome(v.GetString(KeySecretsDir), homeDir),
			PassPrefix:  strings.Trim(v.GetString(KeySecretsPassPrefix), "/"),
			PassTimeout: v.GetDuration(KeySecretsPassTimeout),
		},
		Browser: BrowserConfig{
			Backend:     v.GetString(KeyBrowserBackend),
			DebuggerURL: v.GetString(KeyBrowserDebuggerURL),
		},
		Session: SessionConfig{
			PollInterval:      v.GetDuration(KeySessionPollInterval),
			InactivityTimeout: v.GetDuration(KeySessionInactivity),
		},
		Cookies: CookiesConfig{
			MaxAttempts: v.GetInt(KeyCookiesMaxAttempts),
			Backoff:     v.GetDuration(KeyCookiesBackoff),
		},
		Revoke: RevokePolicy(v.GetString(KeySwitchRevokePolicy)),
		Notify: NotifyConfig{
			RedisURL: v.GetString(KeyNotifyRedisURL),
			Channel:  v.GetString(KeyNotifyChannel),
		},
		Daemon: DaemonConfig{Listen: v.GetString(KeyDaemonListen)},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}

	policy, ok := domain.ParseReconcilePolicy(v.GetString(KeyReconcilePolicy))
	if !ok {
		return Config{}, fmt.Errorf("invalid %s %q", KeyReconcilePolicy, v.GetString(KeyReconcilePolicy))
	}
	cfg.Reconcile = policy

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault(KeyRegistryBaseURL, defaultRegistryBaseURL)
	v.SetDefault(KeyRegistryTimeout, 10*time.Second)
	v.SetDefault(KeyBreakerMaxFailures, 5)
	v.SetDefault(KeyBreakerOpenTimeout, 30*time.Second)
	v.SetDefault(KeyStatePath, filepath.Join(baseDir, "state.toml"))
	v.SetDefault(KeyStateLockTimeout, 15*time.Second)
	v.SetDefault(KeySecretsBackend, "file")
	v.SetDefault(KeySecretsDir, filepath.Join(baseDir, "secrets"))
	v.SetDefault(KeySecretsPassPrefix, "cookie-accounts")
	v.SetDefault(KeySecretsPassTimeout, 15*time.Second)
	v.SetDefault(KeyBrowserBackend, "cdp")
	v.SetDefault(KeyBrowserDebuggerURL, defaultBrowserDebuggerURL)
	v.SetDefault(KeySessionPollInterval, 30*time.Second)
	v.SetDefault(KeySessionInactivity, time.Duration(0))
	v.SetDefault(KeyCookiesMaxAttempts, 3)
	v.SetDefault(KeyCookiesBackoff, 100*time.Millisecond)
	v.SetDefault(KeyReconcilePolicy, string(domain.PolicyNoOpenTab))
	v.SetDefault(KeySwitchRevokePolicy, string(RevokeAll))
	v.SetDefault(KeyNotifyRedisURL, "")
	v.SetDefault(KeyNotifyChannel, defaultNotifyChannel)
	v.SetDefault(KeyDaemonListen, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

func (c Config) validate() error {
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("%s is empty", KeyRegistryBaseURL)
	}
	if c.StatePath == "" {
		return fmt.Errorf("%s is empty", KeyStatePath)
	}
	if c.StateLockTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyStateLockTimeout)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", KeySessionPollInterval)
	}
	if c.Cookies.MaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", KeyCookiesMaxAttempts)
	}
	switch c.Revoke {
	case RevokeAll, RevokeUnshared:
	default:
		return fmt.Errorf("invalid %s %q", KeySwitchRevokePolicy, c.Revoke)
	}
	switch c.Browser.Backend {
	case "cdp", "memory":
	default:
		return fmt.Errorf("invalid %s %q", KeyBrowserBackend, c.Browser.Backend)
	}
	switch c.Secrets.Backend {
	case "file", "pass", "chain":
	default:
		return fmt.Errorf("invalid %s %q", KeySecretsBackend, c.Secrets.Backend)
	}
	if c.Secrets.PassTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeySecretsPassTimeout)
	}

	return nil
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}
