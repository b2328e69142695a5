package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the size of the canonical RIFF/WAVE header written by Encoder
const HeaderSize = 44

// FormatPCM is the WAVE audio format tag for linear PCM
const FormatPCM = 1

const (
	riffSizeOffset = 4
	dataSizeOffset = 40
)

// Header describes the fmt and size fields of a WAV file
type Header struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16

	// RIFFSize is the RIFF chunk size (file size - 8)
	RIFFSize uint32
	// DataSize is the declared size of the data chunk
	DataSize uint32
}

// NewHeader builds a PCM header with derived byte rate and block align.
// Derived fields that overflow are left zero and rejected by the encoder.
func NewHeader(sampleRate uint32, bitsPerSample, channels uint16) Header {
	h := Header{
		AudioFormat:   FormatPCM,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
	}
	blockAlign := uint32(channels) * uint32(bitsPerSample) / 8
	byteRate := uint64(sampleRate) * uint64(blockAlign)
	if blockAlign <= math.MaxUint16 && byteRate <= math.MaxUint32 {
		h.BlockAlign = uint16(blockAlign)
		h.ByteRate = uint32(byteRate)
	}
	return h
}

// check rejects PCM headers whose derived fields cannot hold the frame size
func (h Header) check() error {
	if h.AudioFormat != FormatPCM {
		return nil
	}
	blockAlign := uint32(h.Channels) * uint32(h.BitsPerSample) / 8
	if blockAlign > math.MaxUint16 || uint64(h.SampleRate)*uint64(blockAlign) > math.MaxUint32 {
		return fmt.Errorf("wav: %d channels of %d bits at %d Hz overflow the header", h.Channels, h.BitsPerSample, h.SampleRate)
	}
	return nil
}

// Encoder streams PCM bytes into a WAV container. The header is written with
// placeholder sizes and patched by Close once the data length is known.
type Encoder struct {
	w      io.WriteSeeker
	header Header

	start       int64
	wroteHeader bool
	written     int64
	closed      bool
}

// NewEncoder creates an encoder writing to w at its current offset
func NewEncoder(w io.WriteSeeker, header Header) *Encoder {
	return &Encoder{w: w, header: header}
}

func (e *Encoder) writeHeader() error {
	if e.wroteHeader {
		return nil
	}

	if err := e.header.check(); err != nil {
		return err
	}

	start, err := e.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to locate header offset: %w", err)
	}
	e.start = start

	h := e.header
	fields := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(0), // patched by Close
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		h.AudioFormat,
		h.Channels,
		h.SampleRate,
		h.ByteRate,
		h.BlockAlign,
		h.BitsPerSample,
		[4]byte{'d', 'a', 't', 'a'},
		uint32(0), // patched by Close
	}
	for _, f := range fields {
		if err := binary.Write(e.w, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("failed to write WAV header: %w", err)
		}
	}

	e.wroteHeader = true
	return nil
}

// Write appends sample bytes verbatim to the data chunk
func (e *Encoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, errors.New("wav: write on closed encoder")
	}
	if err := e.writeHeader(); err != nil {
		return 0, err
	}

	n, err := e.w.Write(p)
	e.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("failed to write sample data: %w", err)
	}
	return n, nil
}

// Close pads the data chunk to an even length and patches both size fields.
// It does not close the underlying writer.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	if err := e.writeHeader(); err != nil {
		return err
	}
	e.closed = true

	if e.written > int64(^uint32(0))-HeaderSize {
		return fmt.Errorf("wav: data too large (%d bytes)", e.written)
	}

	// RIFF chunks are word aligned
	if e.written%2 == 1 {
		if _, err := e.w.Write([]byte{0}); err != nil {
			return fmt.Errorf("failed to write pad byte: %w", err)
		}
	}

	end, err := e.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to locate end of file: %w", err)
	}
	fileSize := end - e.start

	e.header.DataSize = uint32(e.written)
	e.header.RIFFSize = uint32(fileSize - 8)

	if err := e.patch(riffSizeOffset, e.header.RIFFSize); err != nil {
		return err
	}
	if err := e.patch(dataSizeOffset, e.header.DataSize); err != nil {
		return err
	}

	if _, err := e.w.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}
	return nil
}

func (e *Encoder) patch(offset int64, v uint32) error {
	if _, err := e.w.Seek(e.start+offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to size field: %w", err)
	}
	if err := binary.Write(e.w, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("failed to patch size field: %w", err)
	}
	return nil
}

// Header returns the header as written; sizes are valid after Close
func (e *Encoder) Header() Header {
	return e.header
}

// Encode writes a complete WAV file holding data to w
func Encode(w io.WriteSeeker, header Header, data []byte) error {
	enc := NewEncoder(w, header)
	if _, err := enc.Write(data); err != nil {
		return err
	}
	return enc.Close()
}

// Decode parses a WAV stream and returns its header and the data chunk bytes.
// Chunks other than "fmt " and "data" are skipped.
func Decode(r io.Reader) (Header, []byte, error) {
	var h Header

	var riff struct {
		ID   [4]byte
		Size uint32
		Form [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return h, nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff.ID[:]) != "RIFF" {
		return h, nil, errors.New("invalid WAV file: missing RIFF header")
	}
	if string(riff.Form[:]) != "WAVE" {
		return h, nil, errors.New("invalid WAV file: missing WAVE format")
	}
	h.RIFFSize = riff.Size

	gotFmt := false
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return h, nil, errors.New("invalid WAV file: missing data chunk")
			}
			return h, nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if chunk.Size < 16 {
				return h, nil, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", chunk.Size)
			}
			var f struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return h, nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			h.AudioFormat = f.AudioFormat
			h.Channels = f.Channels
			h.SampleRate = f.SampleRate
			h.ByteRate = f.ByteRate
			h.BlockAlign = f.BlockAlign
			h.BitsPerSample = f.BitsPerSample
			if err := skip(r, int64(chunk.Size)-16+int64(chunk.Size%2)); err != nil {
				return h, nil, err
			}
			gotFmt = true

		case "data":
			if !gotFmt {
				return h, nil, errors.New("invalid WAV file: data chunk before fmt chunk")
			}
			h.DataSize = chunk.Size
			data := make([]byte, chunk.Size)
			if _, err := io.ReadFull(r, data); err != nil {
				return h, nil, fmt.Errorf("failed to read data chunk: %w", err)
			}
			return h, data, nil

		default:
			if err := skip(r, int64(chunk.Size)+int64(chunk.Size%2)); err != nil {
				return h, nil, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("failed to skip chunk: %w", err)
	}
	return nil
}
