package ports

import (
	"context"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

type CookieStore interface {
	GetAll(ctx context.Context, filter domain.CookieFilter) ([]domain.Cookie, error)
	Set(ctx context.Context, write domain.CookieWrite) error
	Remove(ctx context.Context, url, name string) error
}
