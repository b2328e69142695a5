package audio

// DeviceID selects a capture device by its position in the driver's device list
type DeviceID int

// DefaultDevice asks the driver for its preferred capture device
const DefaultDevice DeviceID = -1

// DeviceInfo describes one capture device
type DeviceInfo struct {
	ID        DeviceID `json:"id"`
	Name      string   `json:"name"`
	IsDefault bool     `json:"is_default"`
}

// Driver enumerates and opens capture devices of one audio backend
type Driver interface {
	// Name returns the backend name
	Name() string

	// DeviceCount returns the number of capture devices
	DeviceCount() (int, error)

	// DeviceName returns the product name of a device
	DeviceName(id DeviceID) (string, error)

	// Devices lists every capture device
	Devices() ([]DeviceInfo, error)

	// Open claims a device in the given format. notify is called from the
	// backend's callback context once for every buffer it completes.
	Open(id DeviceID, format Format, notify func()) (Handle, error)

	// Close releases the backend
	Close() error
}

// Handle is an opened capture device
type Handle interface {
	// DeviceName returns the product name of the opened device
	DeviceName() string

	// AddBuffer submits a buffer for the device to fill
	AddBuffer(b *Buffer) error

	// Start begins capturing into submitted buffers
	Start() error

	// Reset stops capturing and returns every submitted buffer marked done
	// with its partial byte count
	Reset() error

	// Close releases the device
	Close() error
}

// validDevice reports whether id addresses one of count devices
func validDevice(id DeviceID, count int) bool {
	return id == DefaultDevice || (id >= 0 && int(id) < count)
}
