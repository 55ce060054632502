package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "speaker", cfg.Audio.Backend)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 6, cfg.Audio.Polyphony)
	assert.Equal(t, 1.0, cfg.Audio.PitchBase)
	assert.True(t, cfg.Audio.PitchVariance)
	assert.Equal(t, 70, cfg.Audio.Volume)
	assert.InDelta(t, 0.7, cfg.VolumeFraction(), 1e-9)
	assert.True(t, cfg.Bank.PreviewOnSelect)
	assert.Equal(t, 10*time.Second, cfg.Idle.Timeout.Duration())
	assert.Equal(t, 5*time.Second, cfg.Idle.CheckInterval.Duration())
	assert.Equal(t, 80*time.Millisecond, cfg.Input.Debounce.Duration())
	assert.True(t, cfg.DBus.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[audio]
backend = "oto"
sample_rate = 48000
buffer = "20ms"
polyphony = 8
pitch_base = 1.1
pitch_variance = false
volume = 40

[bank]
name = "typewriter"
dir = "/opt/banks"
preview_on_select = false

[idle]
timeout = "30s"
check_interval = "2000"

[input]
source = "stdin"
debounce = "50ms"

[dbus]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "oto", cfg.Audio.Backend)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 20*time.Millisecond, cfg.Audio.Buffer.Duration())
	assert.Equal(t, 8, cfg.Audio.Polyphony)
	assert.Equal(t, 1.1, cfg.Audio.PitchBase)
	assert.False(t, cfg.Audio.PitchVariance)
	assert.Equal(t, 40, cfg.Audio.Volume)
	assert.Equal(t, "typewriter", cfg.Bank.Name)
	assert.Equal(t, "/opt/banks", cfg.BanksDir())
	assert.False(t, cfg.Bank.PreviewOnSelect)
	assert.Equal(t, 30*time.Second, cfg.Idle.Timeout.Duration())
	assert.Equal(t, 2*time.Second, cfg.Idle.CheckInterval.Duration())
	assert.Equal(t, "stdin", cfg.Input.Source)
	assert.Equal(t, 50*time.Millisecond, cfg.Input.Debounce.Duration())
	assert.False(t, cfg.DBus.Enabled)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 55\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 55, cfg.Audio.Volume)
	assert.Equal(t, 6, cfg.Audio.Polyphony)
	assert.Equal(t, "terminal", cfg.Input.Source)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[input]\ndebounce = \"soon\"\n"), 0644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "backend", modify: func(c *Config) { c.Audio.Backend = "alsa" }, wantErr: "invalid audio backend"},
		{name: "sample rate", modify: func(c *Config) { c.Audio.SampleRate = 100 }, wantErr: "sample_rate"},
		{name: "buffer", modify: func(c *Config) { c.Audio.Buffer = Duration(2 * time.Second) }, wantErr: "buffer"},
		{name: "polyphony", modify: func(c *Config) { c.Audio.Polyphony = 0 }, wantErr: "polyphony"},
		{name: "queue", modify: func(c *Config) { c.Audio.QueueCapacity = 0 }, wantErr: "queue_capacity"},
		{name: "quality", modify: func(c *Config) { c.Audio.ResampleQuality = 65 }, wantErr: "resample_quality"},
		{name: "pitch", modify: func(c *Config) { c.Audio.PitchBase = 10 }, wantErr: "pitch_base"},
		{name: "volume", modify: func(c *Config) { c.Audio.Volume = 101 }, wantErr: "volume"},
		{name: "idle", modify: func(c *Config) { c.Idle.CheckInterval = 0 }, wantErr: "check_interval"},
		{name: "input", modify: func(c *Config) { c.Input.Source = "evdev" }, wantErr: "invalid input source"},
		{name: "debounce", modify: func(c *Config) { c.Input.Debounce = Duration(-time.Second) }, wantErr: "debounce"},
		{name: "idle disabled", modify: func(c *Config) { c.Idle.Timeout = 0; c.Idle.CheckInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	cfg.Audio.Volume = 33
	cfg.Bank.Name = "classic"
	cfg.Input.Debounce = Duration(120 * time.Millisecond)

	require.NoError(t, cfg.Save(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"80ms", 80 * time.Millisecond},
		{"10s", 10 * time.Second},
		{"1m30s", 90 * time.Second},
		{"250", 250 * time.Millisecond},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.UnmarshalText([]byte(tt.in)))
			assert.Equal(t, tt.want, d.Duration())
		})
	}

	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("later")))

	text, err := Duration(1500 * time.Millisecond).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	assert.Equal(t, "/custom/config/keyclack/config.toml", ConfigPath())
	assert.Equal(t, "/custom/data/keyclack", DataPath())
	assert.Equal(t, "/custom/data/keyclack/state.json", StatePath())
	assert.Equal(t, "/custom/config/keyclack/banks", DefaultConfig().BanksDir())
}

func TestBanksDir_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Bank.Dir = "~/sounds"
	assert.Equal(t, filepath.Join(home, "sounds"), cfg.BanksDir())
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	require.NoError(t, EnsureDataDir())

	info, err := os.Stat(filepath.Join(dir, "keyclack"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
