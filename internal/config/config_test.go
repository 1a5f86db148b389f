package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Empty(t, cfg.Hotkey)
	require.Equal(t, "cports.exe", filepath.Base(cfg.Tool.Path))
	require.Equal(t, "assets", filepath.Base(filepath.Dir(cfg.Tool.Path)))
	require.Equal(t, []string{"/close", "*", "*", "*", "*", "{pid}"}, cfg.Tool.Args)
	require.Equal(t, 10*time.Second, cfg.Tool.Timeout)
	require.True(t, cfg.Picker.UniqueNames)
	require.True(t, cfg.Picker.SkipSystem)
	require.False(t, cfg.Tracing.Enabled)
	require.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid hotkey", mutate: func(c *Config) { c.Hotkey = "ctrl+alt+k" }},
		{name: "bad hotkey", mutate: func(c *Config) { c.Hotkey = "ctrl+alt" }, wantErr: "hotkey"},
		{name: "empty tool path", mutate: func(c *Config) { c.Tool.Path = " " }, wantErr: "tool.path"},
		{name: "args without pid", mutate: func(c *Config) { c.Tool.Args = []string{"/close", "*"} }, wantErr: "{pid}"},
		{name: "args with name", mutate: func(c *Config) { c.Tool.Args = []string{"/close", "*", "*", "*", "*", "{name}"} }},
		{name: "bad regex", mutate: func(c *Config) { c.Tool.CountPattern = "(" }, wantErr: "tool.count_pattern"},
		{name: "regex without group", mutate: func(c *Config) { c.Tool.CountPattern = `\d+` }, wantErr: "capture group"},
		{name: "negative timeout", mutate: func(c *Config) { c.Tool.Timeout = -time.Second }, wantErr: "tool.timeout"},
		{name: "negative refresh", mutate: func(c *Config) { c.Picker.RefreshInterval = -1 }, wantErr: "refresh_interval"},
		{name: "bad exporter", mutate: func(c *Config) { c.Tracing.Exporter = "file" }, wantErr: "tracing.exporter"},
		{name: "sample rate", mutate: func(c *Config) { c.Tracing.SampleRate = 2 }, wantErr: "sample_rate"},
		{name: "otlp needs endpoint", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
			c.Tracing.OTLPEndpoint = ""
		}, wantErr: "otlp_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	v := viper.New()
	cfg, err := Load(v, path, true)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	require.Empty(t, cfg.Hotkey)
	require.Equal(t, 2*time.Second, cfg.Picker.RefreshInterval)
	require.Equal(t, 10*time.Second, cfg.Tool.Timeout)
	require.Equal(t, Defaults().Tool.Path, cfg.Tool.Path)
}

func TestLoad_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(viper.New(), path, false)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, Defaults().Picker, cfg.Picker)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `hotkey: ctrl+shift+f9
tool:
  path: /opt/tools/closer
  args: ["--kill", "{pid}"]
  count_pattern: "closed (\\d+)"
  timeout: 3s
picker:
  unique_names: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(viper.New(), path, true)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	require.Equal(t, "ctrl+shift+f9", cfg.Hotkey)
	require.Equal(t, "/opt/tools/closer", cfg.Tool.Path)
	require.Equal(t, []string{"--kill", "{pid}"}, cfg.Tool.Args)
	require.Equal(t, `closed (\d+)`, cfg.Tool.CountPattern)
	require.Equal(t, 3*time.Second, cfg.Tool.Timeout)
	require.False(t, cfg.Picker.UniqueNames)
	require.True(t, cfg.Picker.SkipSystem, "unset keys fall back to defaults")

	tool, err := cfg.NewTool()
	require.NoError(t, err)
	require.NotNil(t, tool.CountPattern)
}

func TestReload_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hotkey: ctrl+alt+k\n"), 0o600))

	v := viper.New()
	_, err := Load(v, path, true)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("hotkey: ctrl+alt\n"), 0o600))
	_, err = Reload(v)
	require.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte("hotkey: alt+f4\n"), 0o600))
	cfg, err := Reload(v)
	require.NoError(t, err)
	require.Equal(t, "alt+f4", cfg.Hotkey)
}

func TestResolve_Explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")

	got, exists := Resolve(path)
	require.Equal(t, path, got)
	require.False(t, exists)

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, exists = Resolve(path)
	require.True(t, exists)
}

func TestSaveHotkey_PreservesOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SaveHotkey(path, "ctrl+alt+k"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Global hotkey")
	require.Contains(t, string(data), "refresh_interval: 2s")

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	require.Equal(t, "ctrl+alt+k", parsed["hotkey"])

	require.NoError(t, SaveHotkey(path, ""))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	parsed = nil
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	require.Equal(t, "", parsed["hotkey"])
}

func TestSaveHotkey_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.NoError(t, SaveHotkey(path, "f9"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hotkey: f9\n", string(data))
}

func TestSaveHotkey_AppendsMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o600))

	require.NoError(t, SaveHotkey(path, "win+z"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug: true\nhotkey: win+z\n", string(data))
}
