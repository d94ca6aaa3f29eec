// Package config loads workbench configuration: defaults first, then
// the TOML file, then EASEL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/easelhq/easel/internal/history"
)

// Validation errors.
var (
	// ErrInvalidCapacity indicates a non-positive history capacity.
	ErrInvalidCapacity = errors.New("history capacity must be positive")

	// ErrInvalidLevel indicates an unknown log level name.
	ErrInvalidLevel = errors.New("unknown log level")

	// ErrInvalidInterval indicates a negative timing interval.
	ErrInvalidInterval = errors.New("timing intervals must be non-negative")

	// ErrInvalidLimit indicates a negative canvas element limit.
	ErrInvalidLimit = errors.New("canvas element limit must be non-negative")

	// ErrInvalidTimeout indicates a negative extension timeout.
	ErrInvalidTimeout = errors.New("extension timeout must be non-negative")
)

// Config is the full workbench configuration.
type Config struct {
	History    HistoryConfig    `toml:"history"`
	Logging    LoggingConfig    `toml:"logging"`
	Extensions ExtensionsConfig `toml:"extensions"`
	Canvas     CanvasConfig     `toml:"canvas"`
	Timing     TimingConfig     `toml:"timing"`
}

// HistoryConfig bounds the undo/redo log.
type HistoryConfig struct {
	Capacity int `toml:"capacity"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
}

// ExtensionsConfig controls the extension host.
type ExtensionsConfig struct {
	// Dir is where *.lua extensions are loaded from.
	Dir string `toml:"dir"`

	// Enabled restricts loading to the named extensions. Empty means
	// all extensions in Dir.
	Enabled []string `toml:"enabled"`

	// TimeoutMS bounds a single script call.
	TimeoutMS int `toml:"timeout_ms"`
}

// CanvasConfig bounds the document.
type CanvasConfig struct {
	MaxElements int `toml:"max_elements"`
}

// TimingConfig sets the coalescing intervals.
type TimingConfig struct {
	DebounceMS int `toml:"debounce_ms"`
	ThrottleMS int `toml:"throttle_ms"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		History: HistoryConfig{Capacity: history.DefaultCapacity},
		Logging: LoggingConfig{Level: "info", Prefix: "easel"},
		Extensions: ExtensionsConfig{
			Dir:       "extensions",
			TimeoutMS: 5000,
		},
		Canvas: CanvasConfig{MaxElements: 10000},
		Timing: TimingConfig{DebounceMS: 250, ThrottleMS: 100},
	}
}

// Load reads the TOML file at path layered over Default and under the
// environment. A missing file is not an error: defaults plus
// environment apply. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	case os.IsNotExist(err):
		// Defaults apply.
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values from EASEL_* variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("EASEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EASEL_EXTENSIONS_DIR"); v != "" {
		cfg.Extensions.Dir = v
	}
	if v := os.Getenv("EASEL_HISTORY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EASEL_HISTORY_CAPACITY: %w", err)
		}
		cfg.History.Capacity = n
	}
	return nil
}

// Validate checks ranges and names. It is called by Load; callers
// building a Config by hand should call it themselves.
func (c *Config) Validate() error {
	if c.History.Capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.History.Capacity)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.Logging.Level)
	}
	if c.Timing.DebounceMS < 0 || c.Timing.ThrottleMS < 0 {
		return ErrInvalidInterval
	}
	if c.Canvas.MaxElements < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, c.Canvas.MaxElements)
	}
	if c.Extensions.TimeoutMS < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, c.Extensions.TimeoutMS)
	}
	return nil
}

// Debounce returns the debounce interval as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Timing.DebounceMS) * time.Millisecond
}

// Throttle returns the throttle interval as a duration.
func (c *Config) Throttle() time.Duration {
	return time.Duration(c.Timing.ThrottleMS) * time.Millisecond
}

// ExtensionTimeout returns the per-call script timeout as a duration.
func (c *Config) ExtensionTimeout() time.Duration {
	return time.Duration(c.Extensions.TimeoutMS) * time.Millisecond
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
