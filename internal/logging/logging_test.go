package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "wavcapture.log")

	logger, closer := New(Options{
		Level:      slog.LevelInfo,
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		Console:    &console,
	})
	logger.Info("Recording started", "device", "Synthetic Tone (440 Hz)")
	logger.Debug("Hidden below info")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !strings.Contains(console.String(), "Recording started") {
		t.Errorf("console missing record: %q", console.String())
	}
	if strings.Contains(console.String(), "Hidden below info") {
		t.Error("debug record written at info level")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `device="Synthetic Tone (440 Hz)"`) {
		t.Errorf("log file missing attributes: %q", data)
	}
}

func TestNewConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger, closer := New(Options{Level: slog.LevelDebug, Console: &console})
	logger.Debug("buffer drained", "bytes", 4096)
	if err := closer.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if !strings.Contains(console.String(), "bytes=4096") {
		t.Errorf("unexpected output %q", console.String())
	}
}

func TestVerboseLevel(t *testing.T) {
	if got := VerboseLevel(0, slog.LevelWarn); got != slog.LevelWarn {
		t.Errorf("expected fallback, got %v", got)
	}
	if got := VerboseLevel(2, slog.LevelWarn); got != slog.LevelDebug {
		t.Errorf("expected debug, got %v", got)
	}
}
