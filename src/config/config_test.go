package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfigHome points the XDG config home at an empty directory so
// a developer's real config file cannot leak into the test.
func useTempConfigHome(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist", "config.json"))
	require.Error(t, err, "an explicit missing path must fail")

	// The implicit default path may be absent; defaults stand in.
	useTempConfigHome(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Client.MaxRetries)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"addr": "0.0.0.0:9000"},
		"client": {"url": "ws://example.com:9000", "max_retries": 2, "retry_interval_ms": 500, "heartbeat_interval_ms": 2000},
		"api": {"provider": "openai", "model": "gpt-4o-mini"}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "ws://example.com:9000", cfg.Client.URL)
	assert.Equal(t, 2, cfg.Client.MaxRetries)

	api, err := cfg.API.Selector()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", api.Model)
}

func TestLoadRejectsUnknownModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api": {"provider": "openai", "model": "claude-3-opus-20240229"}
	}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "cross-provider model must not validate")
}

func TestEnvironmentOverrides(t *testing.T) {
	useTempConfigHome(t)
	t.Setenv("WILLIAM_URL", "ws://10.0.0.1:8765")
	t.Setenv("WILLIAM_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_KEY", "sk-openai-fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.1:8765", cfg.Client.URL)
	assert.Equal(t, "sk-test", cfg.Keys.Anthropic)
	assert.Equal(t, "sk-openai-fallback", cfg.Keys.OpenAI)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:7777"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7777", loaded.Server.Addr)
}

func TestIntervalHelpers(t *testing.T) {
	c := ClientConfig{RetryIntervalMS: 1500, HeartbeatIntervalMS: 5000}
	assert.Equal(t, "1.5s", c.RetryInterval().String())
	assert.Equal(t, "5s", c.HeartbeatInterval().String())
}
