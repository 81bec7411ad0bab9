// Package cookies parses inbound Cookie headers and serializes Set-Cookie
// values for the session, refresh and OAuth nonce cookies.
package cookies

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
)

// Parse splits a Cookie header into name/value pairs. Values are URL-decoded;
// a value that fails to decode is kept as sent. Pairs without a name are skipped.
func Parse(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		i := strings.Index(part, "=")
		if i <= 0 {
			continue
		}
		name := strings.TrimSpace(part[:i])
		if name == "" {
			continue
		}
		raw := strings.TrimSpace(part[i+1:])
		if v, err := url.PathUnescape(raw); err == nil {
			raw = v
		}
		out[name] = raw
	}
	return out
}

// ParseRequest parses every Cookie header of r.
func ParseRequest(r *http.Request) map[string]string {
	return Parse(strings.Join(r.Header.Values("Cookie"), ";"))
}

// Options control Serialize. Nil HttpOnly or Secure mean "on".
type Options struct {
	// MaxAge > 0 emits Max-Age=n; MaxAge < 0 emits Max-Age=0 (delete now).
	MaxAge   int
	Expires  time.Time
	Path     string
	Domain   string
	HttpOnly *bool
	Secure   *bool
	SameSite string
}

// Serialize renders a Set-Cookie header value.
func Serialize(name, value string, o Options) string {
	parts := []string{name + "=" + value}
	switch {
	case o.MaxAge > 0:
		parts = append(parts, "Max-Age="+strconv.Itoa(o.MaxAge))
	case o.MaxAge < 0:
		parts = append(parts, "Max-Age=0")
	}
	if !o.Expires.IsZero() {
		parts = append(parts, "Expires="+o.Expires.UTC().Format(http.TimeFormat))
	}
	path := o.Path
	if path == "" {
		path = "/"
	}
	parts = append(parts, "Path="+path)
	if o.Domain != "" {
		parts = append(parts, "Domain="+o.Domain)
	}
	if o.HttpOnly == nil || *o.HttpOnly {
		parts = append(parts, "HttpOnly")
	}
	if o.Secure == nil || *o.Secure {
		parts = append(parts, "Secure")
	}
	sameSite := o.SameSite
	if sameSite == "" {
		sameSite = "Lax"
	}
	parts = append(parts, "SameSite="+sameSite)
	return strings.Join(parts, "; ")
}

// NonceTTL bounds how long an OAuth round trip may take.
const NonceTTL = 10 * time.Minute

// Binder turns sessions into Set-Cookie values with the deployment's
// cookie attributes.
type Binder struct {
	Domain     string
	Secure     bool
	SameSite   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (b *Binder) options(maxAge int) Options {
	secure := b.Secure
	return Options{MaxAge: maxAge, Domain: b.Domain, Secure: &secure, SameSite: b.SameSite}
}

// Session returns the access and refresh cookies for s.
func (b *Binder) Session(s *models.Session) []string {
	return []string{
		Serialize(common.SessionCookieName, s.AccessToken, b.options(int(b.AccessTTL.Seconds()))),
		Serialize(common.RefreshCookieName, s.RefreshToken, b.options(int(b.RefreshTTL.Seconds()))),
	}
}

// Clear expires both session cookies.
func (b *Binder) Clear() []string {
	return []string{
		Serialize(common.SessionCookieName, "", b.options(-1)),
		Serialize(common.RefreshCookieName, "", b.options(-1)),
	}
}

// Nonce sets the short-lived OAuth nonce cookie.
func (b *Binder) Nonce(nonce string) string {
	return Serialize(common.OAuthNonceCookieName, nonce, b.options(int(NonceTTL.Seconds())))
}

// ClearNonce expires the OAuth nonce cookie.
func (b *Binder) ClearNonce() string {
	return Serialize(common.OAuthNonceCookieName, "", b.options(-1))
}
