// Package api is the HTTP client for the finance REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-finance-web/token"
	"github.com/jrsteele09/go-finance-web/users"
	"golang.org/x/oauth2"
)

// API paths, relative to the base URL
const (
	PathToken          = "/auth/token/"
	PathRegister       = "/users/register/"
	PathProfile        = "/users/profile/"
	PathChangePassword = "/users/change-password/"
)

const (
	contentTypeJSON = "application/json"
	maxErrorBody    = 1 << 20
	defaultTimeout  = 15 * time.Second
)

// Client calls the REST API. Login and registration go out without
// credentials; profile calls carry the bearer token from the token source.
type Client struct {
	baseURL string
	public  *http.Client
	authed  *http.Client
}

type options struct {
	transport http.RoundTripper
	timeout   time.Duration
}

type Option func(*options)

// WithTransport sets the round tripper underneath both clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// New creates a Client for baseURL (e.g., "http://localhost:8000/api").
func New(baseURL string, tokens oauth2.TokenSource, opts ...Option) *Client {
	o := options{
		transport: http.DefaultTransport,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		public: &http.Client{
			Transport: o.transport,
			Timeout:   o.timeout,
		},
		authed: &http.Client{
			Transport: bearerTransport(tokens, o.transport),
			Timeout:   o.timeout,
		},
	}
}

// ContextTokenSource is a token source that can read with a request's context.
type ContextTokenSource interface {
	oauth2.TokenSource
	WithContext(ctx context.Context) oauth2.TokenSource
}

func bearerTransport(tokens oauth2.TokenSource, base http.RoundTripper) http.RoundTripper {
	if src, ok := tokens.(ContextTokenSource); ok {
		return &requestTokenTransport{source: src, base: base}
	}
	return &oauth2.Transport{Source: tokens, Base: base}
}

// requestTokenTransport fetches the bearer token with each request's context.
type requestTokenTransport struct {
	source ContextTokenSource
	base   http.RoundTripper
}

func (t *requestTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := &oauth2.Transport{Source: t.source.WithContext(req.Context()), Base: t.base}
	return rt.RoundTrip(req)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ObtainToken exchanges credentials for an access/refresh pair.
func (c *Client) ObtainToken(ctx context.Context, email, password string) (token.Pair, error) {
	credentials := map[string]string{
		"email":    email,
		"password": password,
	}

	var pair token.Pair
	if err := c.do(ctx, c.public, http.MethodPost, PathToken, credentials, &pair); err != nil {
		return token.Pair{}, err
	}
	if pair.Access == "" {
		return token.Pair{}, fmt.Errorf("[api ObtainToken] %w: missing access token", ErrDecode)
	}
	return pair, nil
}

// Register creates an account. It does not log the new user in.
func (c *Client) Register(ctx context.Context, registration users.Registration) error {
	return c.do(ctx, c.public, http.MethodPost, PathRegister, registration, nil)
}

func (c *Client) Profile(ctx context.Context) (*users.Profile, error) {
	var profile users.Profile
	if err := c.do(ctx, c.authed, http.MethodGet, PathProfile, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.Profile, error) {
	var profile users.Profile
	if err := c.do(ctx, c.authed, http.MethodPatch, PathProfile, update, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) ChangePassword(ctx context.Context, change users.PasswordChange) error {
	return c.do(ctx, c.authed, http.MethodPost, PathChangePassword, change, nil)
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[api] encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("[api] build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("[api] %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return newError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("[api] %s %s: %w: empty body", method, path, ErrDecode)
		}
		return fmt.Errorf("[api] %s %s: %w: %v", method, path, ErrDecode, err)
	}
	return nil
}
