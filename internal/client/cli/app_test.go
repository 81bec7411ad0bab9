package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authServer is an in-memory stand-in for the auth HTTP API.
type authServer struct {
	mu       sync.Mutex
	accounts map[string]string
	refresh  string
	rotated  int
}

func (s *authServer) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	issue := func(w http.ResponseWriter, email string) {
		s.rotated++
		s.refresh = "ref-" + strings.Repeat("x", s.rotated)
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "acc:" + email, Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "refresh", Value: s.refresh, Path: "/"})
	}
	creds := func(r *http.Request) (string, string) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		return body.Email, body.Password
	}

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		email, pw := creds(r)
		if _, ok := s.accounts[email]; ok {
			reply(w, http.StatusConflict, map[string]any{"ok": false, "error": "email already registered"})
			return
		}
		s.accounts[email] = pw
		issue(w, email)
		reply(w, http.StatusOK, map[string]any{"ok": true, "user": map[string]any{"id": "u-1", "email": email, "roles": []string{"user"}}})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		email, pw := creds(r)
		if s.accounts[email] != pw || pw == "" {
			reply(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "invalid credentials"})
			return
		}
		issue(w, email)
		reply(w, http.StatusOK, map[string]any{"ok": true, "user": map[string]any{"id": "u-1", "email": email, "roles": []string{"user"}}})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session")
		if err != nil {
			reply(w, http.StatusOK, map[string]any{"ok": false, "user": nil})
			return
		}
		email := strings.TrimPrefix(ck.Value, "acc:")
		reply(w, http.StatusOK, map[string]any{"ok": true, "user": map[string]any{
			"id": "u-1", "email": email, "google_sub": nil, "roles": []string{"user"},
			"created_at": 1, "updated_at": 1,
		}})
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ck, err := r.Cookie("refresh")
		if err != nil || ck.Value != s.refresh {
			reply(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "revoked refresh"})
			return
		}
		acc, _ := r.Cookie("session")
		email := ""
		if acc != nil {
			email = strings.TrimPrefix(acc.Value, "acc:")
		}
		issue(w, email)
		reply(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.refresh = ""
		s.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Path: "/", MaxAge: -1})
		http.SetCookie(w, &http.Cookie{Name: "refresh", Path: "/", MaxAge: -1})
		reply(w, http.StatusOK, map[string]any{"ok": true})
	})
	return mux
}

type cliEnv struct {
	server      *authServer
	url         string
	sessionFile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	s := &authServer{accounts: map[string]string{}}
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)

	t.Setenv("ERGOAUTH_SERVER", "")
	t.Setenv("ERGOAUTH_SESSION", "")

	stubPassword(t, "password123")
	return &cliEnv{server: s, url: srv.URL, sessionFile: filepath.Join(t.TempDir(), "session.json")}
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
}

// run executes one authctl invocation, like a fresh process would.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(strings.NewReader(stdin), &out, &errOut)
	full := append([]string{"--server", e.url, "--session", e.sessionFile}, args...)
	err := app.Run(context.Background(), full)
	return out.String(), err
}

func TestCLI_RegisterMeRefreshLogout(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "register", "--email", "a@x.io")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered a@x.io (u-1)")

	info, err := os.Stat(env.sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err = env.run(t, "", "me")
	require.NoError(t, err)
	assert.Contains(t, out, "email:  a@x.io")
	assert.Contains(t, out, "roles:  user")

	out, err = env.run(t, "", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Session refreshed")

	// the rotated token was saved, so a second refresh succeeds too
	_, err = env.run(t, "", "refresh")
	require.NoError(t, err)

	out, err = env.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	_, err = os.Stat(env.sessionFile)
	assert.True(t, os.IsNotExist(err))

	out, err = env.run(t, "", "me")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestCLI_LoginPromptsForEmail(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "register", "-e", "b@x.io")
	require.NoError(t, err)

	out, err := env.run(t, "b@x.io\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Email\n> ")
	assert.Contains(t, out, "Enter password: ")
	assert.Contains(t, out, "Signed in as b@x.io")
}

func TestCLI_Errors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "register", "-e", "c@x.io")
	require.NoError(t, err)

	_, err = env.run(t, "", "register", "-e", "c@x.io")
	require.EqualError(t, err, "email already registered")

	stubPassword(t, "wrong-password")
	_, err = env.run(t, "", "login", "-e", "c@x.io")
	require.EqualError(t, err, "invalid credentials")

	// a stale refresh token from another device was rotated away
	env.server.mu.Lock()
	env.server.refresh = "elsewhere"
	env.server.mu.Unlock()
	_, err = env.run(t, "", "refresh")
	require.EqualError(t, err, "revoked refresh")
}

func TestCLI_UnknownCommand(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "frobnicate")
	assert.Error(t, err)
}

func TestCLI_ServerUnavailable(t *testing.T) {
	env := newCLIEnv(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	env.url = srv.URL
	srv.Close()

	_, err := env.run(t, "", "me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach server")
}
