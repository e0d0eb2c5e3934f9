package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrSecretNotFound    = errors.New("secret not found")
	ErrInvalidAccount    = errors.New("invalid account")
	ErrLimitExceeded     = errors.New("limit exceeded")
	ErrCookieApplyFailed = errors.New("cookie apply failed")
	ErrNetwork           = errors.New("registry unreachable")
	ErrSwitchInProgress  = errors.New("switch already in progress")
	ErrStateLocked       = errors.New("state is locked by another process")
	ErrSessionExpired    = errors.New("session expired")
	ErrUnauthorized      = errors.New("registry credentials rejected")
	ErrNotLoggedIn       = errors.New("not logged in")
)

type LimitResource string

const (
	LimitDevices  LimitResource = "device"
	LimitSessions LimitResource = "session"
)

type LimitError struct {
	Resource LimitResource
	Active   int
	Max      int
}

func (e *LimitError) Error() string {
	if e.Max <= 0 {
		return fmt.Sprintf("%s limit reached", e.Resource)
	}

	return fmt.Sprintf("%s limit reached: %d/%d %ss active", e.Resource, e.Active, e.Max, e.Resource)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

type CookieApplyError struct {
	Domain string
	Name   string
	Err    error
}

func (e *CookieApplyError) Error() string {
	return fmt.Sprintf("cookie %s on %s could not be verified: %v", e.Name, e.Domain, e.Err)
}

func (e *CookieApplyError) Is(target error) bool {
	return target == ErrCookieApplyFailed
}

func (e *CookieApplyError) Unwrap() error {
	return e.Err
}

type RegistryError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *RegistryError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: registry returned status %d", e.Op, e.StatusCode)
	}

	return fmt.Sprintf("%s: registry returned status %d: %s", e.Op, e.StatusCode, e.Detail)
}

func (e *RegistryError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == 401
}
