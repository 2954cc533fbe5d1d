// Package config loads the server's optional TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LogLevelEnv overrides the configured log level when set.
const LogLevelEnv = "SYSTEMD_LSP_LOG_LEVEL"

// Config is the full server configuration. The zero value is not useful;
// start from Default.
type Config struct {
	LogLevel  string    `toml:"log_level"`
	Server    Server    `toml:"server"`
	Stream    Stream    `toml:"stream"`
	Workspace Workspace `toml:"workspace"`
}

// Server identifies the server to clients.
type Server struct {
	Name string `toml:"name"`
}

// Stream tunes the Content-Length framed transport.
type Stream struct {
	// BufferSize is the size of the read buffer in bytes.
	BufferSize int `toml:"buffer_size"`
	// MaxMessageSize rejects messages whose declared length exceeds it.
	MaxMessageSize int64 `toml:"max_message_size"`
}

// Workspace controls indexing of unit files under the client's root.
type Workspace struct {
	Scan       bool     `toml:"scan"`
	Extensions []string `toml:"extensions"`
}

// DefaultExtensions are the unit file suffixes indexed when none are configured.
var DefaultExtensions = []string{
	".service", ".socket", ".timer", ".mount", ".target",
	".path", ".slice", ".scope", ".automount", ".swap",
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "INFO",
		Server:   Server{Name: "systemd-language-server"},
		Stream: Stream{
			BufferSize:     64 * 1024,
			MaxMessageSize: 32 * 1024 * 1024,
		},
		Workspace: Workspace{
			Scan:       true,
			Extensions: append([]string(nil), DefaultExtensions...),
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/systemd-lsp/config.toml, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "systemd-lsp", "config.toml"), nil
}

// Load reads path over the defaults. A missing file is not an error. The
// log level environment variable is applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("No config file, using defaults", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if env := os.Getenv(LogLevelEnv); env != "" {
		cfg.LogLevel = env
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Stream.BufferSize <= 0 {
		return fmt.Errorf("stream.buffer_size must be positive, got %d", c.Stream.BufferSize)
	}
	if c.Stream.MaxMessageSize <= 0 {
		return fmt.Errorf("stream.max_message_size must be positive, got %d", c.Stream.MaxMessageSize)
	}
	if c.Server.Name == "" {
		c.Server.Name = Default().Server.Name
	}
	if len(c.Workspace.Extensions) == 0 {
		c.Workspace.Extensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range c.Workspace.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Workspace.Extensions[i] = "." + ext
		}
	}
	return nil
}

// Level maps LogLevel onto slog. Unknown names fall back to info.
func (c Config) Level() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
