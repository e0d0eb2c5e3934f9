package domain

import "time"

// RegistryTokenKey is the secret store key of the registry bearer token.
const RegistryTokenKey = "registry/token"

// SessionKey identifies one local activation of an account. Timers and
// deferred teardowns carry the key they were created for.
type SessionKey string

type CurrentAccount struct {
	Account         Account
	SessionKey      SessionKey
	RemoteSessionID string
	DeviceID        string
	Domain          string
	AppliedAt       time.Time
}

func (c CurrentAccount) RemoteSession(userID string) RemoteSession {
	return RemoteSession{
		ID:        c.RemoteSessionID,
		AccountID: c.Account.ID,
		UserID:    userID,
		DeviceID:  c.DeviceID,
		Domain:    c.Domain,
	}
}

// RemoteSession is the registry record backing a CurrentAccount.
type RemoteSession struct {
	ID                 string
	AccountID          AccountID
	UserID             string
	DeviceID           string
	Domain             string
	ActiveSessions     int
	MaxConcurrentUsers int
}

type SessionInfo struct {
	AccountID          AccountID
	ActiveSessions     int
	MaxConcurrentUsers int
}

// Exceeded reports a cap violation detected after the session was acquired.
func (s SessionInfo) Exceeded() bool {
	return s.MaxConcurrentUsers > 0 && s.ActiveSessions > s.MaxConcurrentUsers
}

func (s SessionInfo) Full() bool {
	return s.MaxConcurrentUsers > 0 && s.ActiveSessions >= s.MaxConcurrentUsers
}

type DeviceInfo struct {
	ActiveDevices int
	MaxDevices    int
}

func (d DeviceInfo) Full() bool {
	return d.MaxDevices > 0 && d.ActiveDevices >= d.MaxDevices
}

type AcquireRequest struct {
	AccountID AccountID
	UserID    string
	DeviceID  string
	Domain    string
}

type User struct {
	ID    string
	Email string
}

// Profile is what survives restarts besides the current account.
type Profile struct {
	User     User
	DeviceID string
}
