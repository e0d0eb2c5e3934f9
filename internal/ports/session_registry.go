package ports

import (
	"context"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

type SessionRegistry interface {
	AcquireSession(ctx context.Context, req domain.AcquireRequest) (domain.RemoteSession, error)
	ReleaseSession(ctx context.Context, session domain.RemoteSession) error
	PollSession(ctx context.Context, accountID domain.AccountID) (domain.SessionInfo, error)
}

type AccountCatalog interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (token string, user domain.User, err error)
}
