package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/ergoauth/internal/flagx"
	"github.com/dmitrijs2005/ergoauth/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file. Durations use
// timex.Duration, so both "15m" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from an explicit false or zero.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDriver               string         `json:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordIterations           int            `json:"password_iterations"`
	GoogleClientID               string         `json:"google_client_id"`
	GoogleClientSecret           string         `json:"google_client_secret"`
	GoogleRedirectURL            string         `json:"google_redirect_url"`
	GoogleAuthURL                string         `json:"google_auth_url"`
	GoogleTokenURL               string         `json:"google_token_url"`
	OAuthNonceCheck              *bool          `json:"oauth_nonce_check"`
	SiteURL                      string         `json:"site_url"`
	AllowedOrigins               []string       `json:"allowed_origins"`
	CookieDomain                 string         `json:"cookie_domain"`
	CookieSecure                 *bool          `json:"cookie_secure"`
	CookieSameSite               string         `json:"cookie_same_site"`
	CacheBackend                 string         `json:"cache_backend"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	CacheTTL                     timex.Duration `json:"cache_ttl"`
	LogBackend                   string         `json:"log_backend"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// --config flag (or AUTH_CONFIG) into config. Only fields present in the file override the
// current values. It panics if the file cannot be read or is not valid JSON.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PasswordIterations > 0 {
		config.PasswordIterations = c.PasswordIterations
	}
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	setString(&config.GoogleAuthURL, c.GoogleAuthURL)
	setString(&config.GoogleTokenURL, c.GoogleTokenURL)
	if c.OAuthNonceCheck != nil {
		config.OAuthNonceCheck = *c.OAuthNonceCheck
	}
	setString(&config.SiteURL, c.SiteURL)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.CookieDomain, c.CookieDomain)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.CookieSameSite, c.CookieSameSite)
	setString(&config.CacheBackend, c.CacheBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB > 0 {
		config.RedisDB = c.RedisDB
	}
	if c.CacheTTL.Duration > 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
