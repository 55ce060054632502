// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppName names the config and data directories.
const AppName = "keyclack"

// Default configuration values.
const (
	DefaultBackend         = "speaker"
	DefaultSampleRate      = 44100
	DefaultBuffer          = 10 * time.Millisecond
	DefaultPolyphony       = 6
	DefaultQueueCapacity   = 256
	DefaultResampleQuality = 4
	DefaultVolume          = 70
	DefaultIdleTimeout     = 10 * time.Second
	DefaultIdleCheck       = 5 * time.Second
	DefaultDebounce        = 80 * time.Millisecond
	DefaultInputSource     = "terminal"
)

// Config is the keyclack configuration, loaded from
// ~/.config/keyclack/config.toml.
type Config struct {
	Audio AudioConfig `toml:"audio"`
	Bank  BankConfig  `toml:"bank"`
	Idle  IdleConfig  `toml:"idle"`
	Input InputConfig `toml:"input"`
	DBus  DBusConfig  `toml:"dbus"`
}

// AudioConfig contains output and playback settings.
type AudioConfig struct {
	Backend         string   `toml:"backend"`          // "speaker", "oto" or "null"
	SampleRate      int      `toml:"sample_rate"`      // Output rate in Hz
	Buffer          Duration `toml:"buffer"`           // Device buffer, e.g. "10ms"
	Polyphony       int      `toml:"polyphony"`        // Simultaneous voices
	QueueCapacity   int      `toml:"queue_capacity"`   // Control queue depth
	ResampleQuality int      `toml:"resample_quality"` // 1-64
	PitchBase       float64  `toml:"pitch_base"`       // 1.0 = unchanged
	PitchVariance   bool     `toml:"pitch_variance"`   // ±0.05 per keystroke
	Volume          int      `toml:"volume"`           // 0-100, used until state.json has one
}

// BankConfig selects and locates sound banks.
type BankConfig struct {
	Name            string `toml:"name"` // Used when no bank was selected before
	Dir             string `toml:"dir"`  // User banks, defaults to ~/.config/keyclack/banks
	PreviewOnSelect bool   `toml:"preview_on_select"`
}

// IdleConfig controls pausing the output when nobody is typing.
type IdleConfig struct {
	Timeout       Duration `toml:"timeout"` // "0" disables idle pausing
	CheckInterval Duration `toml:"check_interval"`
}

// InputConfig selects where keystrokes come from.
type InputConfig struct {
	Source   string   `toml:"source"`   // "terminal", "stdin" or "dbus"
	Debounce Duration `toml:"debounce"` // Same-key repeat window
}

// DBusConfig controls the session bus service.
type DBusConfig struct {
	Enabled bool `toml:"enabled"`
}

// Valid option values.
var (
	ValidBackends     = []string{"speaker", "oto", "null"}
	ValidInputSources = []string{"terminal", "stdin", "dbus"}
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			SampleRate:      DefaultSampleRate,
			Buffer:          Duration(DefaultBuffer),
			Polyphony:       DefaultPolyphony,
			QueueCapacity:   DefaultQueueCapacity,
			ResampleQuality: DefaultResampleQuality,
			PitchBase:       1.0,
			PitchVariance:   true,
			Volume:          DefaultVolume,
		},
		Bank: BankConfig{
			PreviewOnSelect: true,
		},
		Idle: IdleConfig{
			Timeout:       Duration(DefaultIdleTimeout),
			CheckInterval: Duration(DefaultIdleCheck),
		},
		Input: InputConfig{
			Source:   DefaultInputSource,
			Debounce: Duration(DefaultDebounce),
		},
		DBus: DBusConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the keyclack config directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppName)
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppName)
}

// StatePath returns the path to the persisted settings file.
func StatePath() string {
	return filepath.Join(DataPath(), "state.json")
}

// BanksDir returns the user banks directory, honouring bank.dir.
func (c *Config) BanksDir() string {
	if c.Bank.Dir != "" {
		return expandPath(c.Bank.Dir)
	}
	return filepath.Join(ConfigDir(), "banks")
}

// LoadConfig loads configuration from path, or the default path when empty.
// Values missing from the file keep their defaults. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, or the default path when empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(ValidBackends, strings.ToLower(c.Audio.Backend)) {
		return fmt.Errorf("invalid audio backend %q, must be one of: %v", c.Audio.Backend, ValidBackends)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Buffer.Duration() < 0 || c.Audio.Buffer.Duration() > time.Second {
		return fmt.Errorf("buffer must be between 0 and 1s, got %s", c.Audio.Buffer.Duration())
	}
	if c.Audio.Polyphony < 1 || c.Audio.Polyphony > 64 {
		return fmt.Errorf("polyphony must be between 1 and 64, got %d", c.Audio.Polyphony)
	}
	if c.Audio.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.Audio.QueueCapacity)
	}
	if c.Audio.ResampleQuality < 1 || c.Audio.ResampleQuality > 64 {
		return fmt.Errorf("resample_quality must be between 1 and 64, got %d", c.Audio.ResampleQuality)
	}
	if c.Audio.PitchBase < 0.25 || c.Audio.PitchBase > 4 {
		return fmt.Errorf("pitch_base must be between 0.25 and 4, got %g", c.Audio.PitchBase)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if c.Idle.Timeout.Duration() < 0 {
		return fmt.Errorf("idle timeout cannot be negative")
	}
	if c.Idle.Timeout.Duration() > 0 && c.Idle.CheckInterval.Duration() <= 0 {
		return fmt.Errorf("idle check_interval must be positive when timeout is set")
	}
	if !slices.Contains(ValidInputSources, strings.ToLower(c.Input.Source)) {
		return fmt.Errorf("invalid input source %q, must be one of: %v", c.Input.Source, ValidInputSources)
	}
	if c.Input.Debounce.Duration() < 0 {
		return fmt.Errorf("debounce cannot be negative")
	}
	return nil
}

// VolumeFraction returns the configured volume as a 0-1 gain.
func (c *Config) VolumeFraction() float64 {
	return float64(c.Audio.Volume) / 100.0
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
