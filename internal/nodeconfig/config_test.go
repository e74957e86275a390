package nodeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_FillsDocumentedValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(15*1e9), cfg.Presence.HeartbeatInterval.Nanoseconds())
	assert.Equal(t, int64(45*1e9), cfg.Presence.StaleAfter.Nanoseconds())
	assert.Equal(t, 256, cfg.Pending.MaxQueueLen)
	assert.Equal(t, 100, cfg.PublicChannel.RingSize)
}

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	content := `
host: "127.0.0.1"
port: 9999
bootstrap_servers:
  - host: seed.example.com
    port: 8080
    pubkey: "abc123"
presence:
  heartbeat_interval: 30s
  stale_after: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	require.Len(t, cfg.BootstrapServers, 1)
	assert.Equal(t, "seed.example.com", cfg.BootstrapServers[0].Host)
	assert.Equal(t, int64(30*1e9), cfg.Presence.HeartbeatInterval.Nanoseconds())
	// untouched fields still get defaults filled in
	assert.Equal(t, 256, cfg.Pending.MaxQueueLen)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/node.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides_Apply(t *testing.T) {
	cfg := Default()
	overrides := EnvOverrides{Host: "10.0.0.1", Port: 1234}
	overrides.Apply(cfg)

	assert.Equal(t, "10.0.0.1", cfg.Host)
	assert.Equal(t, 1234, cfg.Port)
}

func TestLoad_FallsBackToDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HOST", "")
	t.Setenv("PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Port, cfg.Port)
}
