package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/wavcapture/internal/audio"
)

// EnvPrefix prefixes environment overrides, e.g. WAVCAPTURE_AUDIO_SAMPLE_RATE
const EnvPrefix = "WAVCAPTURE"

type Config struct {
	Audio  AudioConfig  `mapstructure:"audio" yaml:"audio"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type AudioConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"` // "auto", "malgo", "portaudio", "pipewire", "synthetic"
	Device     int    `mapstructure:"device" yaml:"device"`   // -1 selects the system default
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	BitDepth   int    `mapstructure:"bit_depth" yaml:"bit_depth"`
	Channels   int    `mapstructure:"channels" yaml:"channels"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	FileName  string `mapstructure:"file_name" yaml:"file_name"` // empty writes tmp.wav
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:    string(audio.BackendTypeAuto),
			Device:     int(audio.DefaultDevice),
			SampleRate: audio.DefaultSampleRate,
			BitDepth:   audio.DefaultBitDepth,
			Channels:   audio.DefaultChannels,
		},
		Output: OutputConfig{
			Directory: ".",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DefaultPath returns $HOME/.config/wavcapture.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "wavcapture.yaml")
	}
	return filepath.Join(home, ".config", "wavcapture.yaml")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.device", d.Audio.Device)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.bit_depth", d.Audio.BitDepth)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("output.directory", d.Output.Directory)
	v.SetDefault("output.file_name", d.Output.FileName)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// Load resolves the configuration from defaults, the config file and the
// environment, in increasing priority. An empty configFile reads
// DefaultPath when it exists; an explicit configFile must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultPath()
	}

	if _, err := os.Stat(configFile); err == nil {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		slog.Debug("Loaded config file", "path", configFile)
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	} else {
		slog.Debug("No config file, using defaults", "path", configFile)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Output.Directory = expandPath(cfg.Output.Directory)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field that cannot be left to the audio driver
func (c *Config) Validate() error {
	if _, err := audio.ParseBackend(c.Audio.Backend); err != nil {
		return fmt.Errorf("audio.backend: %w", err)
	}
	if c.Audio.Device < int(audio.DefaultDevice) {
		return fmt.Errorf("audio.device must be -1 (default) or a device index, got %d", c.Audio.Device)
	}
	if c.Audio.SampleRate <= 0 || int64(c.Audio.SampleRate) > math.MaxUint32 {
		return fmt.Errorf("audio.sample_rate must be between 1 and %d, got %d", uint32(math.MaxUint32), c.Audio.SampleRate)
	}
	switch c.Audio.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("audio.bit_depth must be 8, 16, 24 or 32, got %d", c.Audio.BitDepth)
	}
	if c.Audio.Channels <= 0 || c.Audio.Channels > 0xffff {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	if err := c.Format().Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}

// Format returns the capture format described by the audio section
func (c *Config) Format() audio.Format {
	return audio.NewFormat(uint32(c.Audio.SampleRate), uint16(c.Audio.BitDepth), uint16(c.Audio.Channels))
}

// DeviceID returns the configured capture device
func (c *Config) DeviceID() audio.DeviceID {
	return audio.DeviceID(c.Audio.Device)
}

// ParseLevel converts a log level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return out, nil
}

// Save writes the configuration to path, creating parent directories. An
// existing file is only replaced when overwrite is set.
func (c *Config) Save(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	out, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
