// Package config provides configuration types, defaults, and persistence for connbreaker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"connbreaker/internal/hotkey"
	"connbreaker/internal/log"
	"connbreaker/internal/terminator"
	"connbreaker/internal/tracing"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration options for connbreaker.
type Config struct {
	Hotkey  string         `mapstructure:"hotkey"` // e.g. "ctrl+alt+k"; empty means none
	Tool    ToolConfig     `mapstructure:"tool"`
	Picker  PickerConfig   `mapstructure:"picker"`
	Tracing tracing.Config `mapstructure:"tracing"`
	Debug   bool           `mapstructure:"debug"`
	LogPath string         `mapstructure:"log_path"`
}

// ToolConfig describes the external connection-closing utility.
type ToolConfig struct {
	Path         string        `mapstructure:"path"`
	Args         []string      `mapstructure:"args"`          // must contain {pid}
	CountPattern string        `mapstructure:"count_pattern"` // regex, first group is the closed count
	Timeout      time.Duration `mapstructure:"timeout"`
}

// PickerConfig holds process picker options.
type PickerConfig struct {
	UniqueNames     bool          `mapstructure:"unique_names"` // one row per executable name
	SkipSystem      bool          `mapstructure:"skip_system"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Tool: ToolConfig{
			Path:    DefaultToolPath(),
			Args:    append([]string(nil), terminator.DefaultArgs...),
			Timeout: 10 * time.Second,
		},
		Picker: PickerConfig{
			UniqueNames:     true,
			SkipSystem:      true,
			RefreshInterval: 2 * time.Second,
		},
		Tracing: tracing.DefaultConfig(),
		LogPath: DefaultLogPath(),
	}
}

// DefaultToolPath is cports.exe in an assets folder next to the executable.
func DefaultToolPath() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join("assets", "cports.exe")
	}
	return filepath.Join(filepath.Dir(exe), "assets", "cports.exe")
}

// UserConfigDir is the per-user connbreaker directory.
func UserConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "connbreaker")
}

// DefaultConfigPath is where a fresh config is written when none exists.
func DefaultConfigPath() string {
	return filepath.Join(UserConfigDir(), "config.yaml")
}

// DefaultLogPath is the debug log location.
func DefaultLogPath() string {
	return filepath.Join(UserConfigDir(), "debug.log")
}

// Validate checks cfg for errors. Empty optional values are accepted.
func Validate(cfg Config) error {
	if cfg.Hotkey != "" {
		if _, err := hotkey.Parse(cfg.Hotkey); err != nil {
			return fmt.Errorf("%w: hotkey: %w", ErrInvalidConfig, err)
		}
	}
	if err := ValidateTool(cfg.Tool); err != nil {
		return err
	}
	if cfg.Picker.RefreshInterval < 0 {
		return fmt.Errorf("%w: picker.refresh_interval must not be negative", ErrInvalidConfig)
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateTool checks the external tool settings.
func ValidateTool(tool ToolConfig) error {
	if strings.TrimSpace(tool.Path) == "" {
		return fmt.Errorf("%w: tool.path is required", ErrInvalidConfig)
	}
	if len(tool.Args) > 0 && !containsPlaceholder(tool.Args) {
		return fmt.Errorf("%w: tool.args must contain %s or %s", ErrInvalidConfig,
			terminator.PIDPlaceholder, terminator.NamePlaceholder)
	}
	if tool.CountPattern != "" {
		re, err := regexp.Compile(tool.CountPattern)
		if err != nil {
			return fmt.Errorf("%w: tool.count_pattern: %w", ErrInvalidConfig, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("%w: tool.count_pattern needs a capture group", ErrInvalidConfig)
		}
	}
	if tool.Timeout < 0 {
		return fmt.Errorf("%w: tool.timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(cfg tracing.Config) error {
	if cfg.SampleRate < 0.0 || cfg.SampleRate > 1.0 {
		return fmt.Errorf("%w: tracing.sample_rate must be between 0.0 and 1.0, got %v", ErrInvalidConfig, cfg.SampleRate)
	}
	switch cfg.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("%w: tracing.exporter must be \"none\", \"stdout\", or \"otlp\", got %q", ErrInvalidConfig, cfg.Exporter)
	}
	if cfg.Enabled && cfg.Exporter == "otlp" && cfg.OTLPEndpoint == "" {
		return fmt.Errorf("%w: tracing.otlp_endpoint is required when exporter is \"otlp\"", ErrInvalidConfig)
	}
	return nil
}

func containsPlaceholder(args []string) bool {
	for _, a := range args {
		if strings.Contains(a, terminator.PIDPlaceholder) || strings.Contains(a, terminator.NamePlaceholder) {
			return true
		}
	}
	return false
}

// NewTool builds the terminator tool described by cfg.
func (c Config) NewTool() (*terminator.CommandTool, error) {
	return terminator.NewCommandTool(c.Tool.Path, c.Tool.Args, c.Tool.CountPattern, c.Tool.Timeout)
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# connbreaker configuration

# Global hotkey that closes the selected process's connections.
# Modifiers: ctrl, alt, shift, win. Example: ctrl+alt+k
# Write the + key as plus (ctrl+plus) or last (ctrl++).
hotkey: ""

# External connection-closing utility (NirSoft CurrPorts by default).
tool:
  # path: C:\Tools\cports\cports.exe   # default: assets\cports.exe next to connbreaker
  # {pid} targets the selected process; {name} targets every process with
  # the same executable name (e.g. all chrome.exe instances).
  args: ["/close", "*", "*", "*", "*", "{pid}"]
  # count_pattern: "closed (\\d+)"     # regex; first group is the number of closed connections
  timeout: 10s

picker:
  unique_names: true       # one row per executable name
  skip_system: true        # hide processes without a command line
  refresh_interval: 2s

# Tracing of termination attempts (OpenTelemetry)
# tracing:
#   enabled: true
#   exporter: otlp         # none, stdout, otlp
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# debug: false
# log_path: ~/.config/connbreaker/debug.log
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
