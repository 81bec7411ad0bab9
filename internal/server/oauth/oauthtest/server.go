// Package oauthtest runs a fake Google token endpoint for tests.
package oauthtest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Grant is what the fake endpoint answers for one authorization code.
// A non-empty ErrorDescription makes the exchange fail with HTTP 400.
type Grant struct {
	Subject          string
	Email            string
	IDToken          string
	ErrorCode        string
	ErrorDescription string
}

// Server is an httptest server exposing /auth and /token.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	grants   map[string]Grant
	lastForm map[string]string
}

// NewServer starts the fake provider. Close it when done.
func NewServer() *Server {
	s := &Server{grants: make(map[string]Grant)}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/token", s.handleToken)
	s.srv = httptest.NewServer(mux)
	return s
}

func (s *Server) AuthURL() string  { return s.srv.URL + "/auth" }
func (s *Server) TokenURL() string { return s.srv.URL + "/token" }
func (s *Server) Close()           { s.srv.Close() }

// Client returns an HTTP client that reaches the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Grant registers the answer for code.
func (s *Server) Grant(code string, g Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[code] = g
}

// LastForm returns the form fields of the most recent token request.
func (s *Server) LastForm() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastForm
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	s.mu.Lock()
	s.lastForm = form
	g, ok := s.grants[form["code"]]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant", "error_description": "Bad Request"})
		return
	}
	if g.ErrorDescription != "" || g.ErrorCode != "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": g.ErrorCode, "error_description": g.ErrorDescription})
		return
	}

	idToken := g.IDToken
	if idToken == "" {
		idToken = UnsignedIDToken(map[string]any{"sub": g.Subject, "email": g.Email})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "provider-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

// UnsignedIDToken builds a three-segment token whose signature is junk.
func UnsignedIDToken(claims map[string]any) string {
	enc := base64.RawURLEncoding
	header, _ := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	payload, _ := json.Marshal(claims)
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("unsigned"))
}
