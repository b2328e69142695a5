package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/audiolibrelab/wavcapture/internal/wav"
)

// DefaultExportName is the file written by Export when no name is given
const DefaultExportName = "tmp.wav"

// Session owns an opened capture device, its two capture buffers, the
// capture worker and the accumulated audio.
type Session struct {
	backend    string
	handle     Handle
	deviceID   DeviceID
	deviceName string
	format     Format
	signal     *signal

	// mu serializes the lifecycle operations
	mu    sync.Mutex
	state State
	done  chan struct{}

	// buffers and next are owned by the worker while it runs and by the
	// lifecycle operations otherwise
	buffers   [2]*Buffer
	next      int
	recording atomic.Bool

	storeMu sync.Mutex
	store   []byte

	errMu     sync.Mutex
	workerErr error

	completed atomic.Int64
}

// Open claims a capture device on driver in the requested format and primes
// both capture buffers
func Open(driver Driver, id DeviceID, format Format) (*Session, error) {
	if driver == nil {
		return nil, newError("open", ErrDriverUnavailable, nil)
	}
	format = format.derive()

	count, err := driver.DeviceCount()
	if err != nil {
		return nil, newError("open", kindOf(err, ErrDriverUnavailable), err)
	}
	if count == 0 {
		return nil, newError("open", ErrDeviceUnavailable, fmt.Errorf("no capture devices on %s", driver.Name()))
	}
	if !validDevice(id, count) {
		return nil, newError("open", ErrInvalidDeviceID, fmt.Errorf("device %d of %d", id, count))
	}

	if err := format.Validate(); err != nil {
		return nil, newError("open", ErrInvalidFormat, err)
	}

	s := &Session{
		backend:  driver.Name(),
		deviceID: id,
		format:   format,
		signal:   newSignal(),
		state:    StateIdle,
		buffers:  [2]*Buffer{NewBuffer(), NewBuffer()},
	}

	handle, err := driver.Open(id, format, s.signal.notify)
	if err != nil {
		return nil, newError("open", kindOf(err, ErrDeviceError), err)
	}
	s.handle = handle
	s.deviceName = handle.DeviceName()

	if err := s.prime(); err != nil {
		if cerr := handle.Close(); cerr != nil {
			slog.Debug("Failed to release device after priming error", "error", cerr)
		}
		return nil, err
	}

	slog.Info("Opened capture device",
		"backend", s.backend,
		"device", s.deviceName,
		"format", format.String())
	return s, nil
}

// prime submits every buffer the driver does not currently hold. The first
// buffer the driver will complete becomes the next one the worker waits on.
func (s *Session) prime() error {
	if !s.buffers[s.next].queued && s.buffers[s.next^1].queued {
		s.next ^= 1
	}
	for i := 0; i < 2; i++ {
		b := s.buffers[s.next^i]
		if b.queued {
			continue
		}
		if err := s.handle.AddBuffer(b); err != nil {
			return newError("add buffer", kindOf(err, ErrDeviceError), err)
		}
		b.queued = true
	}
	return nil
}

// Record starts the device and the capture worker. It does nothing when
// the session is already recording.
func (s *Session) Record() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return newError("record", ErrClosed, nil)
	case StateRecording:
		return s.pendingWorkerErr()
	}

	if err := s.prime(); err != nil {
		return err
	}
	if err := s.handle.Start(); err != nil {
		return newError("record", kindOf(err, ErrDeviceError), err)
	}

	s.state = StateRecording
	s.recording.Store(true)
	s.done = make(chan struct{})
	go s.capture(s.done)

	slog.Debug("Recording started", "device", s.deviceName)
	return nil
}

// Stop halts the device and waits for the capture worker to exit. Buffers
// the device returned while stopping are appended before Stop returns.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop("stop")
}

func (s *Session) stop(op string) error {
	if s.state != StateRecording {
		return nil
	}
	s.state = StateIdle
	s.recording.Store(false)

	var errs []error
	if err := s.handle.Reset(); err != nil {
		errs = append(errs, newError(op, ErrDeviceError, err))
	}
	s.signal.notify()
	<-s.done
	s.done = nil

	if err := s.flush(); err != nil {
		errs = append(errs, err)
	}
	if err := s.takeWorkerErr(); err != nil {
		errs = append(errs, err)
	}

	slog.Debug("Recording stopped", "device", s.deviceName, "bytes", s.Len())
	return errors.Join(errs...)
}

// flush drains buffers the device completed after the worker exited,
// keeping the alternation order
func (s *Session) flush() error {
	for i := 0; i < 2; i++ {
		b := s.buffers[s.next]
		if !b.queued || !b.Done() {
			return nil
		}
		if err := s.advance(b); err != nil {
			return err
		}
	}
	return nil
}

// Reset stops recording and discards everything captured
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.stop("reset")
	s.Clear()
	return err
}

// Clear discards everything captured without changing the recording state
func (s *Session) Clear() {
	s.storeMu.Lock()
	s.store = nil
	s.storeMu.Unlock()
}

// Export stops recording and writes the captured audio to a WAV file. An
// empty name writes DefaultExportName; other names get a .wav extension
// when they lack one. Errors from stopping are returned with the path, or
// joined with the write error when no file was written.
func (s *Session) Export(name string) (string, error) {
	path := ExportPath(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return "", newError("export", ErrClosed, nil)
	}
	stopErr := s.stop("export")

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Join(stopErr, newError("export", ErrIO, err))
	}
	if err := s.encode(f); err != nil {
		f.Close()
		return "", errors.Join(stopErr, newError("export", ErrIO, err))
	}
	if err := f.Close(); err != nil {
		return "", errors.Join(stopErr, newError("export", ErrIO, err))
	}

	slog.Info("Exported recording", "file", path, "bytes", s.Len())
	return path, stopErr
}

// WriteWAV stops recording and encodes the captured audio to w
func (s *Session) WriteWAV(w io.WriteSeeker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return newError("export", ErrClosed, nil)
	}
	stopErr := s.stop("export")
	if err := s.encode(w); err != nil {
		return errors.Join(stopErr, newError("export", ErrIO, err))
	}
	return stopErr
}

func (s *Session) encode(w io.WriteSeeker) error {
	header := wav.NewHeader(s.format.SampleRate, s.format.BitDepth, s.format.Channels)

	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	return wav.Encode(w, header, s.store)
}

// ExportPath returns the file name Export writes for name
func ExportPath(name string) string {
	if name == "" {
		return DefaultExportName
	}
	if !strings.HasSuffix(name, ".wav") {
		name += ".wav"
	}
	return name
}

// Close stops recording if needed and releases the device. Calling Close
// more than once is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if err := s.stop("close"); err != nil {
		slog.Warn("Error stopping capture during close", "device", s.deviceName, "error", err)
	}
	s.state = StateClosed

	if err := s.handle.Close(); err != nil {
		return newError("close", ErrDeviceError, err)
	}
	slog.Debug("Closed capture device", "device", s.deviceName)
	return nil
}

// Data returns a copy of the captured audio
func (s *Session) Data() []byte {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	return append([]byte(nil), s.store...)
}

// Reader returns a reader over a snapshot of the captured audio
func (s *Session) Reader() io.Reader {
	return bytes.NewReader(s.Data())
}

// Len returns the number of bytes captured since the last reset or clear
func (s *Session) Len() int {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	return len(s.store)
}

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Format returns the capture format
func (s *Session) Format() Format { return s.format }

func (s *Session) SampleRate() uint32 { return s.format.SampleRate }
func (s *Session) BitDepth() uint16 { return s.format.BitDepth }
func (s *Session) Channels() uint16 { return s.format.Channels }

// DeviceName returns the product name of the opened device
func (s *Session) DeviceName() string { return s.deviceName }

func (s *Session) DeviceID() DeviceID { return s.deviceID }

// Completed returns the number of buffers drained since Open
func (s *Session) Completed() int64 { return s.completed.Load() }

// Info returns a snapshot of the session
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		Backend:       s.backend,
		DeviceID:      s.deviceID,
		DeviceName:    s.deviceName,
		Format:        s.format,
		State:         s.State(),
		BytesCaptured: s.Len(),
		Completed:     s.Completed(),
	}
}
