package config

import (
	"os"
	"time"
)

// parseEnv overlays cfg with ERGOAUTH_SERVER, ERGOAUTH_SESSION and
// ERGOAUTH_TIMEOUT. Unparsable durations are ignored.
func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv("ERGOAUTH_SERVER"); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := os.LookupEnv("ERGOAUTH_SESSION"); ok && v != "" {
		cfg.SessionFile = v
	}
	if v, ok := os.LookupEnv("ERGOAUTH_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
}
