package wav

import (
	"errors"
	"fmt"
	"io"
	"time"

	gowav "github.com/go-audio/wav"
)

// Info summarizes a WAV file for display
type Info struct {
	AudioFormat    uint16
	Channels       int
	SampleRate     int
	BitDepth       int
	AvgBytesPerSec int
	DataBytes      int64
	Duration       time.Duration
}

// Inspect reads the header information of a WAV stream
func Inspect(r io.ReadSeeker) (*Info, error) {
	d := gowav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("failed to read WAV info: %w", err)
	}
	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, errors.New("invalid WAV file: missing format information")
	}

	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate data chunk: %w", err)
	}

	info := &Info{
		AudioFormat:    d.WavAudioFormat,
		Channels:       int(d.NumChans),
		SampleRate:     int(d.SampleRate),
		BitDepth:       int(d.BitDepth),
		AvgBytesPerSec: int(d.AvgBytesPerSec),
		DataBytes:      d.PCMLen(),
	}
	if info.AvgBytesPerSec > 0 {
		info.Duration = time.Duration(float64(info.DataBytes) / float64(info.AvgBytesPerSec) * float64(time.Second))
	}

	return info, nil
}
