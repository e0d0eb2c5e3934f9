package application

import (
	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

type Status struct {
	User     domain.User
	DeviceID string
	LoggedIn bool
	Current  *domain.CurrentAccount
	Managed  domain.ManagedDomains
	// Remote is nil when the registry was not asked or could not answer.
	Remote    *domain.SessionInfo
	RemoteErr error
}
