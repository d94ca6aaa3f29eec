package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/easelhq/easel/internal/history"
)

// Helper writing a config file into a temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "easel.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.History.Capacity != history.DefaultCapacity {
		t.Errorf("History.Capacity = %d, want %d", cfg.History.Capacity, history.DefaultCapacity)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Prefix != "easel" {
		t.Errorf("Logging.Prefix = %q, want easel", cfg.Logging.Prefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.History.Capacity != history.DefaultCapacity {
		t.Error("missing file should yield defaults")
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[history]
capacity = 200

[logging]
level = "debug"

[extensions]
dir = "./ext"
enabled = ["seo-check"]

[timing]
debounce_ms = 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.History.Capacity != 200 {
		t.Errorf("History.Capacity = %d, want 200", cfg.History.Capacity)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Extensions.Dir != "./ext" {
		t.Errorf("Extensions.Dir = %q, want ./ext", cfg.Extensions.Dir)
	}
	if len(cfg.Extensions.Enabled) != 1 || cfg.Extensions.Enabled[0] != "seo-check" {
		t.Errorf("Extensions.Enabled = %v, want [seo-check]", cfg.Extensions.Enabled)
	}
	if cfg.Timing.DebounceMS != 100 {
		t.Errorf("Timing.DebounceMS = %d, want 100", cfg.Timing.DebounceMS)
	}

	// Omitted keys keep their defaults.
	if cfg.Logging.Prefix != "easel" {
		t.Errorf("Logging.Prefix = %q, want default easel", cfg.Logging.Prefix)
	}
	if cfg.Timing.ThrottleMS != 100 {
		t.Errorf("Timing.ThrottleMS = %d, want default 100", cfg.Timing.ThrottleMS)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeConfig(t, `history = {{{`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", perr.Path, path)
	}
	if perr.Unwrap() == nil {
		t.Error("ParseError should wrap the TOML error")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"

[history]
capacity = 10
`)

	t.Setenv("EASEL_LOG_LEVEL", "error")
	t.Setenv("EASEL_HISTORY_CAPACITY", "75")
	t.Setenv("EASEL_EXTENSIONS_DIR", "/opt/easel/ext")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want env override error", cfg.Logging.Level)
	}
	if cfg.History.Capacity != 75 {
		t.Errorf("History.Capacity = %d, want env override 75", cfg.History.Capacity)
	}
	if cfg.Extensions.Dir != "/opt/easel/ext" {
		t.Errorf("Extensions.Dir = %q, want env override", cfg.Extensions.Dir)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("EASEL_HISTORY_CAPACITY", "many")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for unparsable EASEL_HISTORY_CAPACITY")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero capacity", func(c *Config) { c.History.Capacity = 0 }, ErrInvalidCapacity},
		{"negative capacity", func(c *Config) { c.History.Capacity = -1 }, ErrInvalidCapacity},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidLevel},
		{"negative debounce", func(c *Config) { c.Timing.DebounceMS = -1 }, ErrInvalidInterval},
		{"negative limit", func(c *Config) { c.Canvas.MaxElements = -1 }, ErrInvalidLimit},
		{"negative timeout", func(c *Config) { c.Extensions.TimeoutMS = -1 }, ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	cfg.Timing.DebounceMS = 250
	cfg.Timing.ThrottleMS = 50
	cfg.Extensions.TimeoutMS = 1500

	if got := cfg.Debounce(); got != 250*time.Millisecond {
		t.Errorf("Debounce() = %v, want 250ms", got)
	}
	if got := cfg.Throttle(); got != 50*time.Millisecond {
		t.Errorf("Throttle() = %v, want 50ms", got)
	}
	if got := cfg.ExtensionTimeout(); got != 1500*time.Millisecond {
		t.Errorf("ExtensionTimeout() = %v, want 1.5s", got)
	}
}
