package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(LogLevelEnv, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPath(t *testing.T) {
	t.Setenv(LogLevelEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "systemd-language-server", cfg.Server.Name)
	assert.True(t, cfg.Workspace.Scan)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv(LogLevelEnv, "")

	path := writeConfig(t, `
log_level = "debug"

[server]
name = "units"

[stream]
buffer_size = 4096
max_message_size = 1048576

[workspace]
scan = false
extensions = ["service", ".timer"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "units", cfg.Server.Name)
	assert.Equal(t, 4096, cfg.Stream.BufferSize)
	assert.Equal(t, int64(1048576), cfg.Stream.MaxMessageSize)
	assert.False(t, cfg.Workspace.Scan)
	assert.Equal(t, []string{".service", ".timer"}, cfg.Workspace.Extensions)
}

func TestLoadPartialFileKeepsOtherDefaults(t *testing.T) {
	t.Setenv(LogLevelEnv, "")

	cfg, err := Load(writeConfig(t, "[stream]\nbuffer_size = 1024\n"))
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Stream.BufferSize)
	assert.Equal(t, Default().Stream.MaxMessageSize, cfg.Stream.MaxMessageSize)
	assert.Equal(t, DefaultExtensions, cfg.Workspace.Extensions)
}

func TestLoadEnvOverridesLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "ERROR")

	cfg, err := Load(writeConfig(t, `log_level = "debug"`))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, cfg.Level())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv(LogLevelEnv, "")

	_, err := Load(writeConfig(t, "[stream]\nbuffer_size = 0\n"))
	assert.ErrorContains(t, err, "buffer_size")

	_, err = Load(writeConfig(t, "[stream]\nmax_message_size = -1\n"))
	assert.ErrorContains(t, err, "max_message_size")
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "log_level = \n"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, Config{LogLevel: name}.Level(), name)
	}
}

func TestDefaultPathUsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/systemd-lsp/config.toml", path)
}
