package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Profile profileSchema  `toml:"profile"`
	Current *currentSchema `toml:"current,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type profileSchema struct {
	UserID   string `toml:"user_id,omitempty"`
	Email    string `toml:"email,omitempty"`
	DeviceID string `toml:"device_id,omitempty"`
}

type currentSchema struct {
	SessionKey      string `toml:"session_key"`
	RemoteSessionID string `toml:"remote_session_id,omitempty"`
	DeviceID        string `toml:"device_id,omitempty"`
	Domain          string `toml:"domain"`
	AppliedAt       string `toml:"applied_at"`
	// ManagedDomains is informational; readers derive it from the cookies.
	ManagedDomains []string      `toml:"managed_domains"`
	Account        accountSchema `toml:"account"`
}

type accountSchema struct {
	ID                 string         `toml:"id"`
	Name               string         `toml:"name"`
	MaxConcurrentUsers int            `toml:"max_concurrent_users,omitempty"`
	Cookies            []cookieSchema `toml:"cookies"`
}

type cookieSchema struct {
	Domain string `toml:"domain"`
	Name   string `toml:"name"`
	Value  string `toml:"value"`
}
