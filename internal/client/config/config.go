package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the authctl CLI.
//
// Fields:
//   - ServerURL: base URL of the auth server HTTP API.
//   - SessionFile: where the session cookies are kept between runs.
//   - Timeout: per-request HTTP timeout.
type Config struct {
	ServerURL   string
	SessionFile string
	Timeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.SessionFile = defaultSessionFile()
	c.Timeout = 10 * time.Second
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".ergoauth-session.json"
	}
	return filepath.Join(home, ".ergoauth", "session.json")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the JSON file at jsonPath (if not empty) and the environment. Later sources
// take precedence over earlier ones; command-line flags are applied by the
// caller on top.
func LoadConfig(jsonPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, jsonPath); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	return cfg, nil
}
