package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/wavcapture/internal/audio"
	"github.com/audiolibrelab/wavcapture/internal/config"
	"github.com/audiolibrelab/wavcapture/internal/play"
	"github.com/audiolibrelab/wavcapture/internal/wav"
)

// Service represents the core WavCapture service interface
type Service interface {
	// Device operations
	ListDevices() ([]audio.DeviceInfo, error)

	// Recording operations
	StartRecording() error
	StopRecording() error
	ResetRecording() error
	Export(name string) (string, error)
	Record(ctx context.Context, duration time.Duration, name string) (string, error)
	GetRecordingStatus() (audio.State, *audio.SessionInfo)

	// File operations
	Inspect(path string) (*wav.Info, error)
	Play(path string) error

	// Configuration operations
	GetConfig() *config.Config

	GetLastError() string
	Close() error
}

// CaptureService is the main service implementation. It opens the audio
// backend and the capture session lazily on first use.
type CaptureService struct {
	cfg       *config.Config
	newDriver func(name string) (audio.Driver, error)

	mu      sync.Mutex
	driver  audio.Driver
	session *audio.Session

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a new WavCapture service instance
func New(cfg *config.Config) *CaptureService {
	return &CaptureService{
		cfg:       cfg,
		newDriver: audio.NewDriver,
	}
}

var _ Service = (*CaptureService)(nil)

func (s *CaptureService) ensureDriver() (audio.Driver, error) {
	if s.driver != nil {
		return s.driver, nil
	}
	d, err := s.newDriver(s.cfg.Audio.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio backend: %w", err)
	}
	slog.Debug("Audio backend ready", "backend", d.Name())
	s.driver = d
	return d, nil
}

func (s *CaptureService) ensureSession() (*audio.Session, error) {
	if s.session != nil {
		return s.session, nil
	}
	d, err := s.ensureDriver()
	if err != nil {
		return nil, err
	}
	session, err := audio.Open(d, s.cfg.DeviceID(), s.cfg.Format())
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}
	s.session = session
	return session, nil
}

// ListDevices returns the capture devices of the configured backend
func (s *CaptureService) ListDevices() ([]audio.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.ensureDriver()
	if err != nil {
		return nil, err
	}
	return d.Devices()
}

// StartRecording opens the capture device if needed and starts recording
func (s *CaptureService) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLastError()
	session, err := s.ensureSession()
	if err == nil {
		err = session.Record()
	}
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return err
	}
	slog.Info("Recording", "device", session.DeviceName(), "format", session.Format().String())
	return nil
}

// StopRecording stops the current recording, keeping what was captured
func (s *CaptureService) StopRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	if err := s.session.Stop(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return err
	}
	s.clearLastError()
	return nil
}

// ResetRecording stops recording and discards what was captured
func (s *CaptureService) ResetRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	return s.session.Reset()
}

// Export stops recording and writes the captured audio into the output
// directory. An empty name falls back to output.file_name.
func (s *CaptureService) Export(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.ensureSession()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.cfg.Output.Directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path, err := session.Export(s.OutputPath(name))
	if path == "" && err != nil {
		s.setLastError(fmt.Sprintf("Failed to export recording: %v", err))
		return "", err
	}
	if err != nil {
		slog.Warn("Recording stopped with errors", "error", err)
	}
	return path, nil
}

// Record captures for duration, or until ctx is done when duration is zero,
// then exports the take
func (s *CaptureService) Record(ctx context.Context, duration time.Duration, name string) (string, error) {
	if err := s.StartRecording(); err != nil {
		return "", err
	}

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		slog.Info("Stopping recording...")
	case <-timeout:
		slog.Debug("Recording duration reached", "duration", duration)
	}

	return s.Export(name)
}

// GetRecordingStatus returns the session state and details
func (s *CaptureService) GetRecordingStatus() (audio.State, *audio.SessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return audio.StateIdle, nil
	}
	info := s.session.Info()
	return info.State, &info
}

// OutputPath returns the file a take called name is exported to
func (s *CaptureService) OutputPath(name string) string {
	if name == "" {
		name = s.cfg.Output.FileName
	}
	cleanName := cleanFileName(name)
	if cleanName == "" {
		cleanName = audio.DefaultExportName
	}
	return audio.ExportPath(filepath.Join(s.cfg.Output.Directory, cleanName))
}

// Inspect reads the format of a WAV file
func (s *CaptureService) Inspect(path string) (*wav.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := wav.Inspect(f)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	return info, nil
}

// Play plays a WAV file through an external player
func (s *CaptureService) Play(path string) error {
	return play.New().Play(path)
}

// GetConfig returns the current configuration
func (s *CaptureService) GetConfig() *config.Config {
	return s.cfg
}

// Close releases the capture session and the audio backend
func (s *CaptureService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.session != nil {
		firstErr = s.session.Close()
		s.session = nil
	}
	if s.driver != nil {
		if err := s.driver.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.driver = nil
	}
	return firstErr
}

// Helper functions

func cleanFileName(name string) string {
	// Keep letters, numbers, hyphens, underscores and dots; spaces become underscores
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == ' ' || r == '-' || r == '_' || r == '.' {
			result.WriteRune(r)
		}
	}
	clean := strings.ReplaceAll(strings.TrimSpace(result.String()), " ", "_")
	return strings.TrimLeft(clean, ".")
}

// GetLastError returns the last error message (thread-safe)
func (s *CaptureService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *CaptureService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

// clearLastError clears the last error message (thread-safe)
func (s *CaptureService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
