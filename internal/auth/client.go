package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
)

// Config holds the auth provider connection settings. The provider owns
// identity and credentials entirely; this service only exchanges and
// validates tokens.
type Config struct {
	URL       string `envconfig:"AUTH_URL" required:"true"`
	AnonKey   string `envconfig:"AUTH_ANON_KEY" required:"true"`
	TimeoutMs int    `envconfig:"AUTH_TIMEOUT_MS" default:"10000"`
}

// MsgInvalidCredentials is the single message shown for any sign-in
// failure, whatever the underlying cause.
const MsgInvalidCredentials = "invalid credentials or not authorized"

// User is the subset of the provider's user object this service reads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the provider-issued session. Beyond the access token it is
// treated as opaque.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Client is a minimal GoTrue-style REST client for the auth provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
	}
}

// SignInWithPassword exchanges credentials for a session. Every failure
// class collapses into one generic user-visible message.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Session{}, errx.WrapAuth(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("/auth/v1/token?grant_type=password"), bytes.NewReader(payload))
	if err != nil {
		return Session{}, errx.WrapAuth(err)
	}
	c.setHeaders(req, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, errx.New(err, http.StatusUnauthorized, MsgInvalidCredentials)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Session{}, errx.New(err, http.StatusUnauthorized, MsgInvalidCredentials)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Session{}, errx.New(fmt.Errorf("auth status %d", resp.StatusCode), http.StatusUnauthorized, MsgInvalidCredentials)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, errx.New(err, http.StatusUnauthorized, MsgInvalidCredentials)
	}
	if strings.TrimSpace(session.AccessToken) == "" {
		return Session{}, errx.New(fmt.Errorf("no session returned"), http.StatusUnauthorized, MsgInvalidCredentials)
	}
	return session, nil
}

// GetUser validates an access token and returns its user. Any failure,
// including transient provider errors, reads as "no session" so callers
// fail closed.
func (c *Client) GetUser(ctx context.Context, accessToken string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/auth/v1/user"), nil)
	if err != nil {
		return User{}, errx.WrapAuth(err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return User{}, errx.WrapAuth(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return User{}, errx.WrapAuth(fmt.Errorf("auth status %d", resp.StatusCode))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, errx.WrapAuth(err)
	}
	if strings.TrimSpace(user.ID) == "" {
		return User{}, errx.WrapAuth(fmt.Errorf("no user in session"))
	}
	return user, nil
}

// SignOut revokes the session on the provider side. Best effort; the
// local cookie is cleared regardless.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/auth/v1/logout"), nil)
	if err != nil {
		return errx.WrapAuth(err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errx.WrapAuth(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errx.WrapAuth(fmt.Errorf("auth status %d", resp.StatusCode))
	}
	return nil
}

var _ Provider = (*Client)(nil)

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.URL, "/") + path
}

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", c.cfg.AnonKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AnonKey)
	}
	req.Header.Set("Accept", "application/json")
}
