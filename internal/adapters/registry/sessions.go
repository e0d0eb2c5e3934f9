package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

type devicesResponse struct {
	ActiveDevices int `json:"active_devices"`
	MaxDevices    int `json:"max_devices"`
}

type sessionInfoResponse struct {
	ActiveSessions     int `json:"active_sessions"`
	MaxConcurrentUsers int `json:"max_concurrent_users"`
}

type createSessionRequest struct {
	AccountID any    `json:"account_id"`
	Domain    string `json:"domain"`
	DeviceID  string `json:"device_id,omitempty"`
}

type createSessionResponse struct {
	ID flexID `json:"id"`
}

type registerDeviceRequest struct {
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id"`
	AccountID any    `json:"account_id"`
}

// AcquireSession checks the device cap, then the session cap, and only then
// creates the session and registers the device. A failed device
// registration ends the session it just created.
func (c *Client) AcquireSession(ctx context.Context, req domain.AcquireRequest) (domain.RemoteSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.RemoteSession{}, err
	}
	if req.UserID == "" || req.DeviceID == "" {
		return domain.RemoteSession{}, errors.New("acquire session: user and device id are required")
	}

	devices, err := c.devices(ctx, req.UserID)
	if err != nil {
		return domain.RemoteSession{}, err
	}
	if devices.Full() {
		return domain.RemoteSession{}, &domain.LimitError{Resource: domain.LimitDevices, Active: devices.ActiveDevices, Max: devices.MaxDevices}
	}

	info, err := c.PollSession(ctx, req.AccountID)
	if err != nil {
		return domain.RemoteSession{}, err
	}
	if info.Full() {
		return domain.RemoteSession{}, &domain.LimitError{Resource: domain.LimitSessions, Active: info.ActiveSessions, Max: info.MaxConcurrentUsers}
	}

	var created createSessionResponse
	err = c.do(ctx, request{
		op:     "create session",
		method: http.MethodPost,
		path:   "/api/sessions",
		body:   createSessionRequest{AccountID: wireID(req.AccountID), Domain: req.Domain, DeviceID: req.DeviceID},
	}, &created)
	if err != nil {
		if isLimitRejection(err) {
			return domain.RemoteSession{}, &domain.LimitError{Resource: domain.LimitSessions, Active: info.ActiveSessions, Max: info.MaxConcurrentUsers}
		}
		return domain.RemoteSession{}, err
	}

	sessionID := string(created.ID)
	if sessionID == "" {
		sessionID = string(req.AccountID)
	}
	session := domain.RemoteSession{
		ID:                 sessionID,
		AccountID:          req.AccountID,
		UserID:             req.UserID,
		DeviceID:           req.DeviceID,
		Domain:             req.Domain,
		ActiveSessions:     info.ActiveSessions + 1,
		MaxConcurrentUsers: info.MaxConcurrentUsers,
	}

	err = c.do(ctx, request{
		op:     "register device",
		method: http.MethodPost,
		path:   "/api/devices/register",
		body:   registerDeviceRequest{UserID: req.UserID, DeviceID: req.DeviceID, AccountID: wireID(req.AccountID)},
	}, nil)
	if err != nil {
		if endErr := c.endSession(context.WithoutCancel(ctx), req.AccountID); endErr != nil {
			err = errors.Join(err, endErr)
		}
		if isLimitRejection(err) {
			return domain.RemoteSession{}, errors.Join(&domain.LimitError{Resource: domain.LimitDevices, Max: devices.MaxDevices}, err)
		}
		return domain.RemoteSession{}, err
	}

	return session, nil
}

// ReleaseSession ends the session and unregisters the device. Records that
// are already gone count as released.
func (c *Client) ReleaseSession(ctx context.Context, session domain.RemoteSession) error {
	var errs []error
	if session.AccountID != "" {
		if err := c.endSession(ctx, session.AccountID); err != nil {
			errs = append(errs, err)
		}
	}
	if session.DeviceID != "" {
		err := c.do(ctx, request{
			op:     "unregister device",
			method: http.MethodDelete,
			path:   "/api/devices/" + url.PathEscape(session.DeviceID),
		}, nil)
		if err != nil && !isNotFound(err) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (c *Client) PollSession(ctx context.Context, accountID domain.AccountID) (domain.SessionInfo, error) {
	var payload sessionInfoResponse
	err := c.do(ctx, request{
		op:     "poll session",
		method: http.MethodGet,
		path:   "/api/accounts/" + url.PathEscape(string(accountID)) + "/session",
	}, &payload)
	if err != nil {
		return domain.SessionInfo{}, err
	}

	return domain.SessionInfo{
		AccountID:          accountID,
		ActiveSessions:     payload.ActiveSessions,
		MaxConcurrentUsers: payload.MaxConcurrentUsers,
	}, nil
}

func (c *Client) devices(ctx context.Context, userID string) (domain.DeviceInfo, error) {
	var payload devicesResponse
	err := c.do(ctx, request{
		op:     "check devices",
		method: http.MethodGet,
		path:   "/api/users/" + url.PathEscape(userID) + "/devices",
	}, &payload)
	if err != nil {
		return domain.DeviceInfo{}, err
	}

	return domain.DeviceInfo{ActiveDevices: payload.ActiveDevices, MaxDevices: payload.MaxDevices}, nil
}

func (c *Client) endSession(ctx context.Context, accountID domain.AccountID) error {
	err := c.do(ctx, request{
		op:     "end session",
		method: http.MethodDelete,
		path:   "/api/sessions/" + url.PathEscape(string(accountID)),
	}, nil)
	if err != nil && !isNotFound(err) {
		return err
	}

	return nil
}

func isLimitRejection(err error) bool {
	var registryErr *domain.RegistryError
	if !errors.As(err, &registryErr) {
		return false
	}
	switch registryErr.StatusCode {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusTooManyRequests:
		return strings.Contains(strings.ToLower(registryErr.Detail), "maximum")
	default:
		return false
	}
}

func isNotFound(err error) bool {
	var registryErr *domain.RegistryError
	return errors.As(err, &registryErr) && registryErr.StatusCode == http.StatusNotFound
}

// wireID sends numeric account ids as JSON numbers.
func wireID(id domain.AccountID) any {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return json.Number(id)
	}
	return string(id)
}

// flexID accepts ids encoded as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = flexID(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*f = flexID(number.String())
	return nil
}
