package cookies

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single", "session=abc", map[string]string{"session": "abc"}},
		{"spaces and many", " session = abc ;refresh=def", map[string]string{"session": "abc", "refresh": "def"}},
		{"split on first equals", "refresh=a.b=c==", map[string]string{"refresh": "a.b=c=="}},
		{"url decoded", "redirect=%2Fdash%20board", map[string]string{"redirect": "/dash board"}},
		{"bad escape kept raw", "x=%zz", map[string]string{"x": "%zz"}},
		{"nameless pair skipped", "=oops; a=1", map[string]string{"a": "1"}},
		{"no equals skipped", "garbage; b=2", map[string]string{"b": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.header))
		})
	}
}

func TestParseRequest_MultipleHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Add("Cookie", "session=s1")
	r.Header.Add("Cookie", "refresh=r1")

	assert.Equal(t, map[string]string{"session": "s1", "refresh": "r1"}, ParseRequest(r))
}

func TestSerialize_Defaults(t *testing.T) {
	got := Serialize("session", "tok", Options{})
	assert.Equal(t, "session=tok; Path=/; HttpOnly; Secure; SameSite=Lax", got)
}

func TestSerialize_AllOptions(t *testing.T) {
	off := false
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Serialize("refresh", "r", Options{
		MaxAge:   60,
		Expires:  exp,
		Path:     "/api",
		Domain:   "example.com",
		HttpOnly: &off,
		Secure:   &off,
		SameSite: "None",
	})
	assert.Equal(t, "refresh=r; Max-Age=60; Expires=Wed, 02 Jan 2030 03:04:05 GMT; Path=/api; Domain=example.com; SameSite=None", got)
}

func TestSerialize_Delete(t *testing.T) {
	assert.Equal(t, "session=; Max-Age=0; Path=/; HttpOnly; Secure; SameSite=Lax", Serialize("session", "", Options{MaxAge: -1}))
}

func TestBinder(t *testing.T) {
	b := &Binder{Secure: true, SameSite: "Lax", AccessTTL: 15 * time.Minute, RefreshTTL: 30 * 24 * time.Hour}

	got := b.Session(&models.Session{AccessToken: "a", RefreshToken: "r"})
	assert.Equal(t, []string{
		"session=a; Max-Age=900; Path=/; HttpOnly; Secure; SameSite=Lax",
		"refresh=r; Max-Age=2592000; Path=/; HttpOnly; Secure; SameSite=Lax",
	}, got)

	assert.Equal(t, []string{
		"session=; Max-Age=0; Path=/; HttpOnly; Secure; SameSite=Lax",
		"refresh=; Max-Age=0; Path=/; HttpOnly; Secure; SameSite=Lax",
	}, b.Clear())

	assert.Equal(t, "oauth_nonce=n1; Max-Age=600; Path=/; HttpOnly; Secure; SameSite=Lax", b.Nonce("n1"))
	assert.Equal(t, "oauth_nonce=; Max-Age=0; Path=/; HttpOnly; Secure; SameSite=Lax", b.ClearNonce())

	insecure := &Binder{Secure: false, Domain: "localhost"}
	assert.Equal(t, "oauth_nonce=; Max-Age=0; Path=/; Domain=localhost; HttpOnly; SameSite=Lax", insecure.ClearNonce())
}
