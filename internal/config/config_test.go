package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Load Tests ====================

func TestLoadConfigOptional_MissingFile(t *testing.T) {
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "nope.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
debug: true
proxy-url: socks5://127.0.0.1:1080
capture:
  enabled: true
  db-path: /tmp/captures.db
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Capture.Enabled)
	assert.Equal(t, "/tmp/captures.db", cfg.ResolvedCaptureDB())
	assert.Equal(t, 30, cfg.Capture.RetentionDays, "untouched nested default")
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 0\nproxy-url: ftp://x\n"), 0o644))
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 0")
	assert.Contains(t, err.Error(), "proxy scheme")
}

func TestGenerateDefaultConfigYAML_LoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, GenerateDefaultConfigYAML(), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}

// ==================== Path Tests ====================

func TestExpandPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/llm-wire/providers", ExpandPath("$XDG_CONFIG_HOME/llm-wire/providers"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/xdg/llm-wire", ConfigDir())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), ExpandPath("~/x"))
}

// ==================== Credentials Tests ====================

func TestEnvCredentials(t *testing.T) {
	t.Setenv("LLM_WIRE_TEST_KEY", "  from-env ")
	t.Setenv("LLM_WIRE_EMPTY_KEY", "   ")
	c := NewEnvCredentials()

	v, ok := c.Lookup("LLM_WIRE_TEST_KEY")
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)

	_, ok = c.Lookup("LLM_WIRE_EMPTY_KEY")
	assert.False(t, ok)

	c.Set("LLM_WIRE_TEST_KEY", "override")
	v, _ = c.Lookup("LLM_WIRE_TEST_KEY")
	assert.Equal(t, "override", v)

	_, ok = c.Lookup("")
	assert.False(t, ok)
}
