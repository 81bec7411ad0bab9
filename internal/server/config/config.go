// Package config handles configuration for the auth server, including
// defaults, JSON overlay, environment variables and command-line flags.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds runtime settings for the auth server.
//
// SecretKey is the base64url-encoded HMAC key for HS256 tokens. The default
// is a development key and must be overridden in production.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string

	DatabaseDriver string
	DatabaseDSN    string

	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	PasswordIterations           int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleAuthURL      string
	GoogleTokenURL     string
	OAuthNonceCheck    bool

	SiteURL        string
	AllowedOrigins []string

	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LogBackend string
	LogLevel   string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:ergoauth.db?cache=shared"
	// base64url("dev-only-signing-key-change-me-now"); development only.
	c.SecretKey = "ZGV2LW9ubHktc2lnbmluZy1rZXktY2hhbmdlLW1lLW5vdw"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.PasswordIterations = 310000
	c.OAuthNonceCheck = true
	c.SiteURL = "http://localhost:5173"
	c.CookieSecure = true
	c.CookieSameSite = "Lax"
	c.CacheBackend = "memory"
	c.RedisAddr = "127.0.0.1:6379"
	c.CacheTTL = time.Hour
	c.LogBackend = "slog"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// SecretBytes decodes SecretKey. Padded and unpadded base64url are accepted.
func (c *Config) SecretBytes() ([]byte, error) {
	s := strings.TrimRight(strings.TrimSpace(c.SecretKey), "=")
	return base64.RawURLEncoding.DecodeString(s)
}

// Origins returns the CORS allow-list, falling back to SiteURL.
func (c *Config) Origins() []string {
	if len(c.AllowedOrigins) > 0 {
		return c.AllowedOrigins
	}
	if c.SiteURL == "" {
		return nil
	}
	return []string{c.SiteURL}
}

// OAuthEnabled reports whether Google sign-in is configured.
func (c *Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	key, err := c.SecretBytes()
	if err != nil {
		return fmt.Errorf("secret key is not base64url: %w", err)
	}
	if len(key) < 32 {
		return errors.New("secret key must decode to at least 32 bytes")
	}
	switch c.DatabaseDriver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	switch c.CacheBackend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend %q", c.CacheBackend)
	}
	if c.AccessTokenValidityDuration <= 0 || c.RefreshTokenValidityDuration <= 0 {
		return errors.New("token validity durations must be positive")
	}
	if c.PasswordIterations <= 0 {
		return errors.New("password iterations must be positive")
	}
	return nil
}
