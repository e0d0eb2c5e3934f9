package registry

import (
	"context"
	"net/http"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

type accountPayload struct {
	ID                 flexID          `json:"id"`
	Name               string          `json:"name"`
	Cookies            []cookiePayload `json:"cookies"`
	MaxConcurrentUsers int             `json:"max_concurrent_users"`
}

type cookiePayload struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var payload []accountPayload
	err := c.do(ctx, request{op: "list accounts", method: http.MethodGet, path: "/api/accounts"}, &payload)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(payload))
	for _, entry := range payload {
		cookies := make([]domain.CookieSpec, 0, len(entry.Cookies))
		for _, cookie := range entry.Cookies {
			cookies = append(cookies, domain.CookieSpec{Domain: cookie.Domain, Name: cookie.Name, Value: cookie.Value})
		}
		accounts = append(accounts, domain.Account{
			ID:                 domain.AccountID(entry.ID),
			Name:               entry.Name,
			Cookies:            cookies,
			MaxConcurrentUsers: entry.MaxConcurrentUsers,
		})
	}

	return accounts, nil
}
