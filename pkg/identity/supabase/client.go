// Package supabase implements identity.Authenticator and identity.AccountRemover
// against the Supabase Auth (GoTrue) REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/accountkit/pkg/identity"
)

// Client talks to /auth/v1 of one Supabase project.
type Client struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	jwtSecret      []byte
	http           *http.Client
	now            func() time.Time
}

var (
	_ identity.Authenticator  = (*Client)(nil)
	_ identity.AccountRemover = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if cfg.AnonKey == "" {
		return nil, ErrMissingAnonKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:        cfg.AnonKey,
		serviceRoleKey: cfg.ServiceRoleKey,
		http:           &http.Client{Timeout: timeout},
		now:            time.Now,
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type userResponse struct {
	ID         string            `json:"id"`
	Email      string            `json:"email"`
	CreatedAt  time.Time         `json:"created_at"`
	Identities []json.RawMessage `json:"identities"`
}

func (u userResponse) toUser() identity.User {
	return identity.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

type sessionResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	ExpiresAt   int64        `json:"expires_at"`
	User        userResponse `json:"user"`
}

func (s sessionResponse) toSession(now time.Time) *identity.Session {
	out := &identity.Session{AccessToken: s.AccessToken, User: s.User.toUser()}
	switch {
	case s.ExpiresAt > 0:
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	case s.ExpiresIn > 0:
		out.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return out
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, "",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && !errors.Is(err, identity.ErrRateLimited) {
			return nil, errors.Join(identity.ErrInvalidCredentials, apiErr)
		}
		return nil, err
	}
	return resp.toSession(c.now()), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil)
	if errors.Is(err, identity.ErrUnauthenticated) || errors.Is(err, identity.ErrUserNotFound) {
		return nil
	}
	return err
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*identity.Session, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", nil, "",
		map[string]string{"email": email, "password": password}, &raw); err != nil {
		return nil, err
	}

	// Autoconfirm projects answer with a session, the rest with the bare user.
	var session sessionResponse
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.Join(identity.ErrProvider, err)
	}
	if session.AccessToken != "" {
		return session.toSession(c.now()), nil
	}

	var user userResponse
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, errors.Join(identity.ErrProvider, err)
	}
	// With confirmations enabled, GoTrue hides existing accounts behind a user with no identities.
	if user.Identities != nil && len(user.Identities) == 0 {
		return nil, identity.ErrEmailTaken
	}
	return &identity.Session{User: user.toUser()}, nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	var query url.Values
	if redirectURL != "" {
		query = url.Values{"redirect_to": {redirectURL}}
	}
	err := c.do(ctx, http.MethodPost, "/recover", query, "", map[string]string{"email": email}, nil)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil
	}
	return err
}

func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if accessToken == "" {
		return identity.ErrUnauthenticated
	}
	return c.do(ctx, http.MethodPut, "/user", nil, accessToken, map[string]string{"password": newPassword}, nil)
}

// CurrentUser verifies the token locally when a JWT secret is configured and
// asks GoTrue otherwise.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*identity.User, error) {
	if accessToken == "" {
		return nil, identity.ErrUnauthenticated
	}
	if c.jwtSecret != nil {
		return c.verifyToken(accessToken)
	}

	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	u := resp.toUser()
	return &u, nil
}

// DeleteUser removes the user through the admin API with the service role key.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if c.serviceRoleKey == "" {
		return ErrMissingServiceRoleKey
	}
	return c.doWithKey(ctx, c.serviceRoleKey, http.MethodDelete, "/admin/users/"+url.PathEscape(userID), nil, c.serviceRoleKey, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, body, out any) error {
	return c.doWithKey(ctx, c.anonKey, method, path, query, bearer, body, out)
}

func (c *Client) doWithKey(ctx context.Context, apiKey, method, path string, query url.Values, bearer string, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("supabase: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(identity.ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Join(identity.ErrProvider, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return classify(parseAPIError(resp.StatusCode, data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Join(identity.ErrProvider, fmt.Errorf("supabase: decode response: %w", err))
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &APIError{Status: status, Code: payload.ErrorCode}
	if apiErr.Code == "" {
		apiErr.Code = payload.Error
	}
	for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	return apiErr
}

func classify(e *APIError) error {
	msg := strings.ToLower(e.Message)
	switch {
	case e.Status == http.StatusTooManyRequests, strings.HasPrefix(e.Code, "over_"), strings.Contains(msg, "rate limit"):
		return errors.Join(identity.ErrRateLimited, e)
	case e.Code == "user_already_exists", e.Code == "email_exists", strings.Contains(msg, "already registered"):
		return errors.Join(identity.ErrEmailTaken, e)
	case e.Code == "invalid_credentials", e.Code == "invalid_grant":
		return errors.Join(identity.ErrInvalidCredentials, e)
	case e.Code == "weak_password":
		return errors.Join(identity.ErrWeakPassword, e)
	case e.Code == "user_not_found", e.Status == http.StatusNotFound:
		return errors.Join(identity.ErrUserNotFound, e)
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden,
		e.Code == "bad_jwt", e.Code == "session_not_found":
		return errors.Join(identity.ErrUnauthenticated, e)
	default:
		return errors.Join(identity.ErrProvider, e)
	}
}
