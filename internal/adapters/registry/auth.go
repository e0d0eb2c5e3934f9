package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type validateResponse struct {
	Email string `json:"email"`
}

// Login exchanges credentials for a bearer token and resolves the user it
// belongs to. The token is not stored here.
func (c *Client) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var token tokenResponse
	err := c.do(ctx, request{op: "login", method: http.MethodPost, path: "/api/auth/login", form: form, anonymous: true}, &token)
	if err != nil {
		return "", domain.User{}, err
	}
	if token.AccessToken == "" {
		return "", domain.User{}, errors.New("login: response missing access token")
	}

	var user validateResponse
	err = c.do(ctx, request{op: "validate token", method: http.MethodGet, path: "/api/auth/validate", token: token.AccessToken}, &user)
	if err != nil {
		return "", domain.User{}, err
	}
	if user.Email == "" {
		user.Email = email
	}

	return token.AccessToken, domain.User{ID: user.Email, Email: user.Email}, nil
}

// Validate checks the stored token against the registry.
func (c *Client) Validate(ctx context.Context) (domain.User, error) {
	var user validateResponse
	if err := c.do(ctx, request{op: "validate token", method: http.MethodGet, path: "/api/auth/validate"}, &user); err != nil {
		return domain.User{}, fmt.Errorf("validate token: %w", err)
	}

	return domain.User{ID: user.Email, Email: user.Email}, nil
}
