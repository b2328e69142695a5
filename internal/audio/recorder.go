package audio

import "io"

// State represents the current state of a capture session
type State string

const (
	StateIdle      State = "IDLE"
	StateRecording State = "RECORDING"
	StateClosed    State = "CLOSED"
)

// SessionInfo describes an open capture session
type SessionInfo struct {
	Backend       string   `json:"backend"`
	DeviceID      DeviceID `json:"device_id"`
	DeviceName    string   `json:"device_name"`
	Format        Format   `json:"format"`
	State         State    `json:"state"`
	BytesCaptured int      `json:"bytes_captured"`
	Completed     int64    `json:"buffers_completed"`
}

// Recorder defines the lifecycle shared by capture sessions
type Recorder interface {
	Record() error
	Stop() error
	Reset() error
	Clear()

	// Export writes the captured audio as a WAV file and returns its path
	Export(name string) (string, error)
	WriteWAV(w io.WriteSeeker) error

	// Status and information
	Info() SessionInfo
	Data() []byte
	Len() int

	// Cleanup
	Close() error
}

var _ Recorder = (*Session)(nil)
