package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the gateway's TCP listen address.
	Listen string `yaml:"listen"`
	// HistoryDBPath locates the SQLite history snapshot database. Empty
	// disables persistence.
	HistoryDBPath string `yaml:"history_db"`
	// ReadBufferSize is the per-session PTY read buffer in bytes.
	ReadBufferSize int `yaml:"read_buffer_size"`
	// DrainTimeout is a duration string (default "1s") bounding the
	// post-exit output drain per session.
	DrainTimeout string `yaml:"drain_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Listen:         "127.0.0.1:7117",
		HistoryDBPath:  filepath.Join(dataDir(), "history.db"),
		ReadBufferSize: 8 * 1024,
		DrainTimeout:   "1s",
		LogLevel:       "info",
	}
}

// dataDir returns the persistent data directory under $HOME/.termhub.
// Falls back to "./data" if $HOME cannot be determined.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".termhub")
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return filepath.Join(dataDir(), "config.yaml")
}

// Load reads path over Default(). A missing file is not an error; the
// defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("config: read_buffer_size must be positive")
	}
	if _, err := time.ParseDuration(c.DrainTimeout); err != nil {
		return fmt.Errorf("config: invalid drain_timeout %q: %w", c.DrainTimeout, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}

// DrainDuration parses DrainTimeout, falling back to one second.
func (c Config) DrainDuration() time.Duration {
	d, err := time.ParseDuration(c.DrainTimeout)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
