//go:build cgo && portaudio

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

func init() {
	registerBackend(BackendTypePortAudio, newPortAudioDriver)
}

// portAudioDriver captures through PortAudio. Only input-capable devices are
// listed, so device ids count input devices.
type portAudioDriver struct{}

func newPortAudioDriver() (Driver, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, newError("open driver", ErrDriverUnavailable, err)
	}
	return &portAudioDriver{}, nil
}

func (d *portAudioDriver) Name() string {
	return string(BackendTypePortAudio)
}

func (d *portAudioDriver) inputDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, newError("list devices", ErrDriverUnavailable, err)
	}
	var inputs []*portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			inputs = append(inputs, dev)
		}
	}
	return inputs, nil
}

func (d *portAudioDriver) device(id DeviceID) (*portaudio.DeviceInfo, error) {
	if id == DefaultDevice {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, newError("default device", ErrDeviceUnavailable, err)
		}
		return dev, nil
	}
	inputs, err := d.inputDevices()
	if err != nil {
		return nil, err
	}
	if !validDevice(id, len(inputs)) {
		return nil, newError("device", ErrInvalidDeviceID, fmt.Errorf("device %d of %d", id, len(inputs)))
	}
	return inputs[id], nil
}

func (d *portAudioDriver) DeviceCount() (int, error) {
	inputs, err := d.inputDevices()
	if err != nil {
		return 0, err
	}
	return len(inputs), nil
}

func (d *portAudioDriver) DeviceName(id DeviceID) (string, error) {
	dev, err := d.device(id)
	if err != nil {
		return "", err
	}
	return dev.Name, nil
}

func (d *portAudioDriver) Devices() ([]DeviceInfo, error) {
	inputs, err := d.inputDevices()
	if err != nil {
		return nil, err
	}
	def, _ := portaudio.DefaultInputDevice()

	list := make([]DeviceInfo, 0, len(inputs))
	for i, dev := range inputs {
		list = append(list, DeviceInfo{
			ID:        DeviceID(i),
			Name:      dev.Name,
			IsDefault: def != nil && def.Name == dev.Name && def.HostApi == dev.HostApi,
		})
	}
	return list, nil
}

func (d *portAudioDriver) Open(id DeviceID, format Format, notify func()) (Handle, error) {
	dev, err := d.device(id)
	if err != nil {
		return nil, err
	}
	if format.Channels == 0 || int(format.Channels) > dev.MaxInputChannels {
		return nil, newError("open device", ErrInvalidFormat,
			fmt.Errorf("%d channels, device supports %d", format.Channels, dev.MaxInputChannels))
	}

	h := &portAudioHandle{name: dev.Name, queue: NewQueue(notify)}
	callback, err := h.callback(format.BitDepth)
	if err != nil {
		return nil, newError("open device", ErrInvalidFormat, err)
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = int(format.Channels)
	params.Output.Device = nil
	params.Output.Channels = 0
	params.SampleRate = float64(format.SampleRate)

	if err := portaudio.IsFormatSupported(params, callback); err != nil {
		return nil, newError("open device", ErrInvalidFormat, err)
	}
	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, newError("open device", portAudioKind(err, ErrDeviceUnavailable), err)
	}
	h.stream = stream

	slog.Debug("Opened PortAudio stream", "device", dev.Name, "format", format.String())
	return h, nil
}

func (d *portAudioDriver) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return newError("close driver", ErrDeviceError, err)
	}
	return nil
}

type portAudioHandle struct {
	name    string
	stream  *portaudio.Stream
	queue   *Queue
	scratch []byte
}

// callback returns a stream callback for the sample width. PortAudio hands
// interleaved samples; they are written to the queue as little-endian PCM.
func (h *portAudioHandle) callback(bitDepth uint16) (any, error) {
	switch bitDepth {
	case 8:
		return func(in []uint8) {
			h.queue.Write(in)
		}, nil
	case 16:
		return func(in []int16) {
			h.scratch = h.scratch[:0]
			for _, v := range in {
				h.scratch = binary.LittleEndian.AppendUint16(h.scratch, uint16(v))
			}
			h.queue.Write(h.scratch)
		}, nil
	case 32:
		return func(in []int32) {
			h.scratch = h.scratch[:0]
			for _, v := range in {
				h.scratch = binary.LittleEndian.AppendUint32(h.scratch, uint32(v))
			}
			h.queue.Write(h.scratch)
		}, nil
	default:
		return nil, fmt.Errorf("%d-bit samples are not supported by the portaudio backend", bitDepth)
	}
}

func (h *portAudioHandle) DeviceName() string {
	return h.name
}

func (h *portAudioHandle) AddBuffer(b *Buffer) error {
	h.queue.Add(b)
	return nil
}

func (h *portAudioHandle) Start() error {
	if err := h.stream.Start(); err != nil {
		return newError("start", portAudioKind(err, ErrDeviceError), err)
	}
	return nil
}

// portAudioKind maps PortAudio error codes onto capture error kinds
func portAudioKind(err, fallback error) error {
	switch {
	case errors.Is(err, portaudio.InsufficientMemory):
		return ErrResourceExhausted
	case errors.Is(err, portaudio.DeviceUnavailable):
		return ErrDeviceUnavailable
	case errors.Is(err, portaudio.InvalidSampleRate), errors.Is(err, portaudio.InvalidChannelCount),
		errors.Is(err, portaudio.SampleFormatNotSupported):
		return ErrInvalidFormat
	}
	return fallback
}

func (h *portAudioHandle) Reset() error {
	err := h.stream.Abort()
	h.queue.Reset()
	return err
}

func (h *portAudioHandle) Close() error {
	return h.stream.Close()
}
