package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/metrics"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	"github.com/bnema/cookie-accounts-cli/internal/version"
	"github.com/sony/gobreaker"
)

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

type Options struct {
	HTTPClient         *http.Client
	RequestTimeout     time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	Logger             *slog.Logger
}

// Client talks to the session/device/account registry. Every call carries
// the stored bearer token; a 401 deletes it.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	tokens         ports.SecretStore
	breaker        *gobreaker.CircuitBreaker
	logger         *slog.Logger
}

var (
	_ ports.SessionRegistry = (*Client)(nil)
	_ ports.AccountCatalog  = (*Client)(nil)
	_ ports.Authenticator   = (*Client)(nil)
)

func NewClient(baseURL string, tokens ports.SecretStore, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     opts.HTTPClient,
		requestTimeout: opts.RequestTimeout,
		tokens:         tokens,
		breaker:        newBreaker(opts.BreakerMaxFailures, opts.BreakerOpenTimeout, opts.Logger),
		logger:         opts.Logger,
	}
}

type request struct {
	op     string
	method string
	path   string
	body   any
	form   url.Values
	// token overrides the stored token; anonymous skips authentication.
	token     string
	anonymous bool
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	token := req.token
	if token == "" && !req.anonymous {
		stored, err := c.tokens.Get(ctx, domain.RegistryTokenKey)
		if err != nil || strings.TrimSpace(stored) == "" {
			return fmt.Errorf("%s: %w", req.op, domain.ErrNotLoggedIn)
		}
		token = strings.TrimSpace(stored)
	}

	started := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, req, token, out)
	})
	metrics.RegistryRequestDuration.WithLabelValues(req.op).Observe(time.Since(started).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", req.op, domain.ErrNetwork, err)
	}
	if errors.Is(err, domain.ErrUnauthorized) && req.token == "" && !req.anonymous {
		if deleteErr := c.tokens.Delete(context.WithoutCancel(ctx), domain.RegistryTokenKey); deleteErr != nil {
			c.logger.Warn("invalidate registry token", "error", deleteErr)
		}
	}

	return err
}

func (c *Client) roundTrip(ctx context.Context, req request, token string, out any) error {
	endpoint, err := buildAPIURL(c.baseURL, req.path)
	if err != nil {
		return err
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", req.op, err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(requestCtx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", req.op, domain.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &domain.RegistryError{Op: req.op, StatusCode: resp.StatusCode, Detail: decodeDetail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.op, err)
	}

	return nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

// decodeDetail reads the error detail, which is a string or a validation list.
func decodeDetail(body io.Reader) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBytes)).Decode(&payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}

	return string(payload.Detail)
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("registry base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse registry base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("registry base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("registry base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse registry path: %w", err)
	}
	return endpoint.String(), nil
}
