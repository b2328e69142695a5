package audio

import (
	"fmt"
	"math"
)

// Default capture parameters
const (
	DefaultSampleRate = 44100
	DefaultBitDepth   = 16
	DefaultChannels   = 1
)

// Format describes linear PCM samples. BlockAlign and AvgBytesPerSec are
// derived from the other fields; build values with NewFormat.
type Format struct {
	SampleRate     uint32 `json:"sample_rate"`
	BitDepth       uint16 `json:"bit_depth"`
	Channels       uint16 `json:"channels"`
	BlockAlign     uint16 `json:"block_align"`
	AvgBytesPerSec uint32 `json:"avg_bytes_per_sec"`
}

// NewFormat returns a format with derived fields filled in. Derived fields
// too wide for a WAV header are left zero; Validate reports them.
func NewFormat(sampleRate uint32, bitDepth, channels uint16) Format {
	f := Format{
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
		Channels:   channels,
	}
	blockAlign := frameSize(bitDepth, channels)
	byteRate := uint64(sampleRate) * uint64(blockAlign)
	if blockAlign <= math.MaxUint16 && byteRate <= math.MaxUint32 {
		f.BlockAlign = uint16(blockAlign)
		f.AvgBytesPerSec = uint32(byteRate)
	}
	return f
}

func frameSize(bitDepth, channels uint16) uint32 {
	return uint32(channels) * uint32(bitDepth) / 8
}

// Validate reports formats whose block align or byte rate overflow the
// WAV header fields
func (f Format) Validate() error {
	blockAlign := frameSize(f.BitDepth, f.Channels)
	if blockAlign > math.MaxUint16 {
		return fmt.Errorf("%s: block align of %d bytes exceeds %d", f, blockAlign, math.MaxUint16)
	}
	if byteRate := uint64(f.SampleRate) * uint64(blockAlign); byteRate > math.MaxUint32 {
		return fmt.Errorf("%s: byte rate of %d exceeds %d", f, byteRate, uint64(math.MaxUint32))
	}
	return nil
}

// DefaultFormat is 16-bit mono at 44.1kHz
func DefaultFormat() Format {
	return NewFormat(DefaultSampleRate, DefaultBitDepth, DefaultChannels)
}

// derive recomputes BlockAlign and AvgBytesPerSec
func (f Format) derive() Format {
	return NewFormat(f.SampleRate, f.BitDepth, f.Channels)
}

// Consistent reports whether the derived fields agree with the base fields
func (f Format) Consistent() bool {
	return f.Validate() == nil && f == f.derive()
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d bit, %d ch", f.SampleRate, f.BitDepth, f.Channels)
}
