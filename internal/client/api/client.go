// Package api is a client of the auth server's HTTP API. It keeps the session
// cookies in memory and lets the caller persist them between runs.
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
)

// ErrUnavailable reports that the server could not be reached.
var ErrUnavailable = errors.New("server unavailable")

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// User is the identity returned by register and login.
type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Profile is the account returned by /me.
type Profile struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	GoogleSub *string  `json:"google_sub"`
	Roles     []string `json:"roles"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

type envelope struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error"`
	User  json.RawMessage `json:"user"`
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// NewClient talks to baseURL (e.g. "http://127.0.0.1:8080") starting from
// session. A nil session starts empty.
func NewClient(baseURL string, timeout time.Duration, session *Session) *Client {
	if session == nil {
		session = &Session{}
	}
	if session.Cookies == nil {
		session.Cookies = map[string]string{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		session: session,
	}
}

// Session returns the current cookie state.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range c.session.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.absorbCookies(resp)

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

// absorbCookies applies Set-Cookie headers: expired cookies are dropped.
func (c *Client) absorbCookies(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.session.Cookies, ck.Name)
			continue
		}
		c.session.Cookies[ck.Name] = ck.Value
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeUser[T any](env *envelope) (*T, error) {
	if len(env.User) == 0 || string(env.User) == "null" {
		return nil, nil
	}
	var u T
	if err := json.Unmarshal(env.User, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return decodeUser[User](env)
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return decodeUser[User](env)
}

// Me returns the signed-in profile, or nil when the session is not valid.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, nil
	}
	return decodeUser[Profile](env)
}

func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil)
	return err
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil)
	return err
}
