package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/audiolibrelab/wavcapture/internal/audio"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wavcapture.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults when no config file exists, got: %v", err)
	}

	if cfg.Audio.Backend != "auto" {
		t.Errorf("Expected backend 'auto', got %s", cfg.Audio.Backend)
	}
	if cfg.Audio.Device != -1 {
		t.Errorf("Expected default device -1, got %d", cfg.Audio.Device)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.BitDepth != 16 || cfg.Audio.Channels != 1 {
		t.Errorf("Unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Format() != audio.DefaultFormat() {
		t.Errorf("Expected default format, got %s", cfg.Format())
	}
	if cfg.DeviceID() != audio.DefaultDevice {
		t.Errorf("Expected default device, got %d", cfg.DeviceID())
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
audio:
  backend: synthetic
  device: 2
  sample_rate: 48000
  bit_depth: 24
  channels: 2
output:
  directory: ~/Recordings
  file_name: session
log:
  level: debug
`)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.Backend != "synthetic" || cfg.Audio.Device != 2 {
		t.Errorf("Unexpected audio config: %+v", cfg.Audio)
	}
	want := audio.NewFormat(48000, 24, 2)
	if cfg.Format() != want {
		t.Errorf("Expected format %s, got %s", want, cfg.Format())
	}
	if cfg.Output.Directory != filepath.Join(home, "Recordings") {
		t.Errorf("Expected expanded directory, got %s", cfg.Output.Directory)
	}
	if cfg.Output.FileName != "session" {
		t.Errorf("Expected file name 'session', got %s", cfg.Output.FileName)
	}
	// Unset keys keep their defaults
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("Expected default max_backups 3, got %d", cfg.Log.MaxBackups)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
audio:
  sample_rate: 22050
`)
	t.Setenv("WAVCAPTURE_AUDIO_SAMPLE_RATE", "96000")
	t.Setenv("WAVCAPTURE_AUDIO_BACKEND", "synthetic")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 96000 {
		t.Errorf("Expected env sample rate 96000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Backend != "synthetic" {
		t.Errorf("Expected env backend 'synthetic', got %s", cfg.Audio.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Audio.Backend = "jack" }, "audio.backend"},
		{"device below default", func(c *Config) { c.Audio.Device = -2 }, "audio.device"},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "audio.sample_rate"},
		{"sample rate above 32 bits", func(c *Config) { big := int64(1)<<32 + 44100; c.Audio.SampleRate = int(big) }, "audio.sample_rate"},
		{"frame too wide", func(c *Config) { c.Audio.BitDepth = 32; c.Audio.Channels = 65535 }, "block align"},
		{"odd bit depth", func(c *Config) { c.Audio.BitDepth = 12 }, "audio.bit_depth"},
		{"no channels", func(c *Config) { c.Audio.Channels = 0 }, "audio.channels"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative rotation", func(c *Config) { c.Log.MaxBackups = -1 }, "rotation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	path := writeConfig(t, `
audio:
  bit_depth: 20
`)
	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for 20-bit samples")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wavcapture.yaml")

	cfg := Default()
	cfg.Audio.Backend = "synthetic"
	cfg.Audio.SampleRate = 32000
	cfg.Output.FileName = "demo"
	if err := cfg.Save(path, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := cfg.Save(path, false); err == nil {
		t.Error("Expected error saving over an existing file without overwrite")
	}
	if err := cfg.Save(path, true); err != nil {
		t.Errorf("Save with overwrite failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Audio.Backend != "synthetic" || loaded.Audio.SampleRate != 32000 || loaded.Output.FileName != "demo" {
		t.Errorf("Reloaded config differs: %+v", loaded)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; expected %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	if got := expandPath("~/Audio"); got != filepath.Join(home, "Audio") {
		t.Errorf("Expected %s, got %s", filepath.Join(home, "Audio"), got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("Absolute path changed: %s", got)
	}
	if got := expandPath("relative"); got != "relative" {
		t.Errorf("Relative path changed: %s", got)
	}
}
