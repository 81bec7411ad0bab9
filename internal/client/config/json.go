package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/ergoauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Timeout accepts either a string like "5s" or integer nanoseconds.
type JsonConfig struct {
	ServerURL   string         `json:"server_url"`
	SessionFile string         `json:"session_file"`
	Timeout     timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the non-empty values found in path.
// An empty path loads nothing.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.SessionFile != "" {
		cfg.SessionFile = jc.SessionFile
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
