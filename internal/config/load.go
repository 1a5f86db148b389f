package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"connbreaker/internal/log"
)

// LocalConfigPath is the per-directory config checked before the user one.
var LocalConfigPath = filepath.Join(".connbreaker", "config.yaml")

// SetDefaults registers Defaults() on v so unset keys fall back to them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("hotkey", d.Hotkey)
	v.SetDefault("tool.path", d.Tool.Path)
	v.SetDefault("tool.args", d.Tool.Args)
	v.SetDefault("tool.count_pattern", d.Tool.CountPattern)
	v.SetDefault("tool.timeout", d.Tool.Timeout)
	v.SetDefault("picker.unique_names", d.Picker.UniqueNames)
	v.SetDefault("picker.skip_system", d.Picker.SkipSystem)
	v.SetDefault("picker.refresh_interval", d.Picker.RefreshInterval)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_path", d.LogPath)
}

// Resolve picks the config file to use. Lookup order: explicit path,
// ./.connbreaker/config.yaml, then the user config dir. The second result is
// false when the file does not exist yet.
func Resolve(explicit string) (string, bool) {
	if explicit != "" {
		_, err := os.Stat(explicit)
		return explicit, err == nil
	}
	if _, err := os.Stat(LocalConfigPath); err == nil {
		return LocalConfigPath, true
	}
	path := DefaultConfigPath()
	_, err := os.Stat(path)
	return path, err == nil
}

// Load reads the config at path into v and decodes it. A missing file is
// created from the default template first; if that fails the defaults are
// used as-is.
func Load(v *viper.Viper, path string, exists bool) (Config, error) {
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if !exists {
		if err := WriteDefaultConfig(path); err != nil {
			log.Warn(log.CatConfig, "continuing with built-in defaults", "path", path, "error", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Reload re-reads the config file already set on v.
func Reload(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
