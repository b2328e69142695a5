package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	syntheticDeviceName = "Synthetic Tone (440 Hz)"
	syntheticFrequency  = 440.0
	syntheticPeriod     = 10 * time.Millisecond

	minSampleRate = 1000
	maxSampleRate = 384000
	maxChannels   = 32
)

func init() {
	registerBackend(BackendTypeSynthetic, func() (Driver, error) {
		return NewSyntheticDriver(), nil
	})
}

// SyntheticDriver exposes one device that produces a sine tone in real
// time. It needs no audio hardware.
type SyntheticDriver struct{}

// NewSyntheticDriver creates the synthetic backend
func NewSyntheticDriver() *SyntheticDriver {
	return &SyntheticDriver{}
}

func (d *SyntheticDriver) Name() string {
	return string(BackendTypeSynthetic)
}

func (d *SyntheticDriver) DeviceCount() (int, error) {
	return 1, nil
}

func (d *SyntheticDriver) DeviceName(id DeviceID) (string, error) {
	if !validDevice(id, 1) {
		return "", newError("device name", ErrInvalidDeviceID, fmt.Errorf("device %d of 1", id))
	}
	return syntheticDeviceName, nil
}

func (d *SyntheticDriver) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: 0, Name: syntheticDeviceName, IsDefault: true}}, nil
}

// ValidateFormat reports whether the synthetic device can produce format
func ValidateFormat(format Format) error {
	switch format.BitDepth {
	case 8, 16, 24, 32:
	default:
		return newError("validate format", ErrInvalidFormat, fmt.Errorf("%d-bit samples", format.BitDepth))
	}
	if format.Channels == 0 || format.Channels > maxChannels {
		return newError("validate format", ErrInvalidFormat, fmt.Errorf("%d channels", format.Channels))
	}
	if format.SampleRate < minSampleRate || format.SampleRate > maxSampleRate {
		return newError("validate format", ErrInvalidFormat, fmt.Errorf("%d Hz", format.SampleRate))
	}
	return nil
}

func (d *SyntheticDriver) Open(id DeviceID, format Format, notify func()) (Handle, error) {
	if _, err := d.DeviceName(id); err != nil {
		return nil, err
	}
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	return &syntheticHandle{
		format: format.derive(),
		queue:  NewQueue(notify),
	}, nil
}

func (d *SyntheticDriver) Close() error {
	return nil
}

type syntheticHandle struct {
	format Format
	queue  *Queue

	mu    sync.Mutex
	stop  chan struct{}
	wg    sync.WaitGroup
	frame uint64
}

func (h *syntheticHandle) DeviceName() string {
	return syntheticDeviceName
}

func (h *syntheticHandle) AddBuffer(b *Buffer) error {
	h.queue.Add(b)
	return nil
}

func (h *syntheticHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		return nil
	}
	h.stop = make(chan struct{})
	h.wg.Add(1)
	go h.generate(h.stop)
	return nil
}

// generate writes one period of tone per tick until stop is closed
func (h *syntheticHandle) generate(stop chan struct{}) {
	defer h.wg.Done()

	ticker := time.NewTicker(syntheticPeriod)
	defer ticker.Stop()

	framesPerTick := int(h.format.SampleRate) * int(syntheticPeriod/time.Millisecond) / 1000
	if framesPerTick == 0 {
		framesPerTick = 1
	}
	chunk := make([]byte, 0, framesPerTick*int(h.format.BlockAlign))

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			chunk = h.render(chunk[:0], framesPerTick)
			h.queue.Write(chunk)
		}
	}
}

// render appends frames of tone in the handle's sample format
func (h *syntheticHandle) render(dst []byte, frames int) []byte {
	rate := float64(h.format.SampleRate)
	for i := 0; i < frames; i++ {
		v := 0.5 * math.Sin(2*math.Pi*syntheticFrequency*float64(h.frame)/rate)
		h.frame++
		for c := uint16(0); c < h.format.Channels; c++ {
			dst = appendSample(dst, v, h.format.BitDepth)
		}
	}
	return dst
}

// appendSample encodes v in [-1, 1] as little-endian PCM. 8-bit samples are
// unsigned with a 128 offset.
func appendSample(dst []byte, v float64, bitDepth uint16) []byte {
	switch bitDepth {
	case 8:
		return append(dst, byte(int(v*127)+128))
	case 16:
		return binary.LittleEndian.AppendUint16(dst, uint16(int16(v*math.MaxInt16)))
	case 24:
		s := uint32(int32(v * 8388607))
		return append(dst, byte(s), byte(s>>8), byte(s>>16))
	default:
		return binary.LittleEndian.AppendUint32(dst, uint32(int32(v*math.MaxInt32)))
	}
}

// Reset stops the generator and returns every pending buffer
func (h *syntheticHandle) Reset() error {
	h.halt()
	h.queue.Reset()
	return nil
}

func (h *syntheticHandle) halt() {
	h.mu.Lock()
	stop := h.stop
	h.stop = nil
	h.mu.Unlock()

	if stop != nil {
		close(stop)
		h.wg.Wait()
	}
}

func (h *syntheticHandle) Close() error {
	h.halt()
	return nil
}
