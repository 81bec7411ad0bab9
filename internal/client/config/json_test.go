package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	dir := t.TempDir()

	t.Run("overlays present values", func(t *testing.T) {
		path := writeTempJSON(t, dir, "full.json", map[string]any{
			"server_url":   "https://auth.example",
			"session_file": "/var/tmp/sess.json",
			"timeout":      "2s",
		})

		cfg := &Config{}
		require.NoError(t, parseJson(cfg, path))

		assert.Equal(t, "https://auth.example", cfg.ServerURL)
		assert.Equal(t, "/var/tmp/sess.json", cfg.SessionFile)
		assert.Equal(t, 2*time.Second, cfg.Timeout)
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		path := writeTempJSON(t, dir, "partial.json", map[string]any{
			"timeout": 5000000000,
		})

		cfg := &Config{ServerURL: "defaults:1234", SessionFile: "s"}
		require.NoError(t, parseJson(cfg, path))

		assert.Equal(t, "defaults:1234", cfg.ServerURL)
		assert.Equal(t, "s", cfg.SessionFile)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("empty path → no changes", func(t *testing.T) {
		cfg := &Config{ServerURL: "defaults:1234"}
		require.NoError(t, parseJson(cfg, ""))
		assert.Equal(t, "defaults:1234", cfg.ServerURL)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		assert.Error(t, parseJson(&Config{}, bad))
	})
}
