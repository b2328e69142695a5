//go:build cgo && !noaudio

package audio

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
)

func init() {
	registerBackend(BackendTypeMalgo, newMalgoDriver)
}

// malgoDriver captures through miniaudio, which picks the native API of the
// host (WASAPI, Core Audio, ALSA or PulseAudio)
type malgoDriver struct {
	ctx *malgo.AllocatedContext
}

func newMalgoDriver() (Driver, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, newError("open driver", ErrDriverUnavailable, err)
	}
	return &malgoDriver{ctx: ctx}, nil
}

func (d *malgoDriver) Name() string {
	return string(BackendTypeMalgo)
}

func (d *malgoDriver) captureDevices() ([]malgo.DeviceInfo, error) {
	devices, err := d.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, newError("list devices", ErrDriverUnavailable, err)
	}
	return devices, nil
}

func (d *malgoDriver) DeviceCount() (int, error) {
	devices, err := d.captureDevices()
	if err != nil {
		return 0, err
	}
	return len(devices), nil
}

func (d *malgoDriver) DeviceName(id DeviceID) (string, error) {
	devices, err := d.captureDevices()
	if err != nil {
		return "", err
	}
	if id == DefaultDevice {
		for _, dev := range devices {
			if dev.IsDefault == 1 {
				return dev.Name(), nil
			}
		}
		return "default", nil
	}
	if !validDevice(id, len(devices)) {
		return "", newError("device name", ErrInvalidDeviceID, fmt.Errorf("device %d of %d", id, len(devices)))
	}
	return devices[id].Name(), nil
}

func (d *malgoDriver) Devices() ([]DeviceInfo, error) {
	devices, err := d.captureDevices()
	if err != nil {
		return nil, err
	}
	list := make([]DeviceInfo, 0, len(devices))
	for i, dev := range devices {
		list = append(list, DeviceInfo{
			ID:        DeviceID(i),
			Name:      dev.Name(),
			IsDefault: dev.IsDefault == 1,
		})
	}
	return list, nil
}

func malgoFormat(bitDepth uint16) (malgo.FormatType, error) {
	switch bitDepth {
	case 8:
		return malgo.FormatU8, nil
	case 16:
		return malgo.FormatS16, nil
	case 24:
		return malgo.FormatS24, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%d-bit samples", bitDepth)
	}
}

func (d *malgoDriver) Open(id DeviceID, format Format, notify func()) (Handle, error) {
	sampleFormat, err := malgoFormat(format.BitDepth)
	if err != nil {
		return nil, newError("open device", ErrInvalidFormat, err)
	}
	if format.Channels == 0 || format.SampleRate == 0 {
		return nil, newError("open device", ErrInvalidFormat, fmt.Errorf("%s", format))
	}

	name, err := d.DeviceName(id)
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = sampleFormat
	deviceConfig.Capture.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = format.SampleRate
	deviceConfig.Alsa.NoMMap = 1
	if id != DefaultDevice {
		devices, err := d.captureDevices()
		if err != nil {
			return nil, err
		}
		if !validDevice(id, len(devices)) {
			return nil, newError("open device", ErrInvalidDeviceID, fmt.Errorf("device %d of %d", id, len(devices)))
		}
		deviceConfig.Capture.DeviceID = devices[id].ID.Pointer()
	}

	h := &malgoHandle{name: name, queue: NewQueue(notify)}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			h.queue.Write(input)
		},
	}

	dev, err := malgo.InitDevice(d.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, newError("open device", ErrDeviceUnavailable, err)
	}
	h.device = dev

	slog.Debug("Initialized malgo capture device", "device", name, "format", format.String())
	return h, nil
}

func (d *malgoDriver) Close() error {
	if err := d.ctx.Uninit(); err != nil {
		return newError("close driver", ErrDeviceError, err)
	}
	d.ctx.Free()
	return nil
}

type malgoHandle struct {
	name   string
	device *malgo.Device
	queue  *Queue
}

func (h *malgoHandle) DeviceName() string {
	return h.name
}

func (h *malgoHandle) AddBuffer(b *Buffer) error {
	h.queue.Add(b)
	return nil
}

func (h *malgoHandle) Start() error {
	return h.device.Start()
}

func (h *malgoHandle) Reset() error {
	err := h.device.Stop()
	h.queue.Reset()
	return err
}

func (h *malgoHandle) Close() error {
	h.device.Uninit()
	return nil
}
