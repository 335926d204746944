package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Valid config", func(t *testing.T) {
		path := writeConfig(t, `
dispatcher:
  host: 127.0.0.1
  port: 5555
storage:
  host: 127.0.0.1
  port: 5570
  db_path: test.db
worker:
  forward_timeout_ms: 4000
requester:
  timeout_ms: 2000
  max_attempts: 3
  interval_ms: 200
log:
  level: debug
  format: json
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:5555", cfg.DispatcherAddr())
		assert.Equal(t, "http://127.0.0.1:5555/requests", cfg.RequestURL())
		assert.Equal(t, "http://127.0.0.1:5555/subscribe/RETURN", cfg.SubscribeURL("RETURN"))
		assert.Equal(t, "http://127.0.0.1:5570/apply", cfg.ApplyURL())
		assert.Equal(t, "debug", cfg.Log.Level)
		// Unset schedule falls back to the default
		assert.NotEmpty(t, cfg.Scheduler.OverdueLoanReport)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Invalid port", func(t *testing.T) {
		path := writeConfig(t, `
dispatcher:
  host: 127.0.0.1
  port: 99999
storage:
  host: 127.0.0.1
  port: 5570
  db_path: test.db
`)
		_, err := Load(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid dispatcher port")
	})

	t.Run("Missing db_path", func(t *testing.T) {
		path := writeConfig(t, `
dispatcher:
  host: 127.0.0.1
  port: 5555
storage:
  host: 127.0.0.1
  port: 5570
`)
		_, err := Load(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "db_path")
	})

	t.Run("Env overrides", func(t *testing.T) {
		t.Setenv("DISPATCHER_HOST", "10.0.0.5")
		t.Setenv("MAX_ATTEMPTS", "7")
		path := writeConfig(t, `
dispatcher:
  host: 127.0.0.1
  port: 5555
storage:
  host: 127.0.0.1
  port: 5570
  db_path: test.db
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.5", cfg.Dispatcher.Host)
		assert.Equal(t, 7, cfg.Requester.MaxAttempts)
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 4000, cfg.Worker.ForwardTimeoutMs)
	assert.Equal(t, 3, cfg.Requester.MaxAttempts)
}
