package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envFile is the dotenv file consulted before the process environment.
var envFile = ".env"

// parseEnv overlays values from a .env file (if present) and the process
// environment. Variables already set in the process win over the file.
func parseEnv(config *Config) {
	// a missing .env is normal outside development
	_ = godotenv.Load(envFile)

	lookup := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	lookup("HTTP_ADDR", &config.EndpointAddrHTTP)
	lookup("GRPC_ADDR", &config.EndpointAddrGRPC)
	lookup("AUTH_SECRET", &config.SecretKey)
	lookup("GOOGLE_CLIENT_ID", &config.GoogleClientID)
	lookup("GOOGLE_CLIENT_SECRET", &config.GoogleClientSecret)
	lookup("GOOGLE_REDIRECT_URL", &config.GoogleRedirectURL)
	lookup("SITE_URL", &config.SiteURL)
	lookup("DATABASE_DRIVER", &config.DatabaseDriver)
	lookup("DATABASE_DSN", &config.DatabaseDSN)
	lookup("REDIS_ADDR", &config.RedisAddr)
	lookup("REDIS_PASSWORD", &config.RedisPassword)
	lookup("CACHE_BACKEND", &config.CacheBackend)
	lookup("LOG_BACKEND", &config.LogBackend)
	lookup("LOG_LEVEL", &config.LogLevel)
	lookup("COOKIE_DOMAIN", &config.CookieDomain)

	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && v != "" {
		config.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("OAUTH_NONCE_CHECK"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.OAuthNonceCheck = b
		}
	}
	if v, ok := os.LookupEnv("COOKIE_SECURE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.CookieSecure = b
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
