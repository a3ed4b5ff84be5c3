package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.Listen != def.Listen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, def.Listen)
	}
	if cfg.ReadBufferSize != def.ReadBufferSize {
		t.Errorf("ReadBufferSize = %d, want %d", cfg.ReadBufferSize, def.ReadBufferSize)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen: 127.0.0.1:9000\nread_buffer_size: 4096\ndrain_timeout: 250ms\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q, want 127.0.0.1:9000", cfg.Listen)
	}
	if cfg.ReadBufferSize != 4096 {
		t.Errorf("ReadBufferSize = %d, want 4096", cfg.ReadBufferSize)
	}
	if got := cfg.DrainDuration(); got != 250*time.Millisecond {
		t.Errorf("DrainDuration() = %v, want 250ms", got)
	}
	if got := cfg.SlogLevel(); got != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", got)
	}
	// Fields absent from the file keep their defaults.
	if cfg.HistoryDBPath != Default().HistoryDBPath {
		t.Errorf("HistoryDBPath = %q, want default", cfg.HistoryDBPath)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty listen", "listen: \"\"\n"},
		{"zero buffer", "read_buffer_size: 0\n"},
		{"bad duration", "drain_timeout: soon\n"},
		{"bad level", "log_level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
		})
	}
}
