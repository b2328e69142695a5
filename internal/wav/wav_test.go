package wav

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeEmptyData(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate uint32
		bitDepth   uint16
		channels   uint16
	}{
		{"cd mono", 44100, 16, 1},
		{"cd stereo", 44100, 16, 2},
		{"telephone", 8000, 8, 1},
		{"studio", 96000, 24, 2},
		{"float-size", 48000, 32, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "empty.wav")
			f, err := os.Create(path)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := Encode(f, NewHeader(tt.sampleRate, tt.bitDepth, tt.channels), nil); err != nil {
				t.Fatalf("encode: %v", err)
			}
			if err := f.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(raw) != HeaderSize {
				t.Fatalf("expected %d bytes, got %d", HeaderSize, len(raw))
			}

			if got := binary.LittleEndian.Uint32(raw[4:8]); got != uint32(len(raw)-8) {
				t.Errorf("RIFF size = %d, expected %d", got, len(raw)-8)
			}
			if got := binary.LittleEndian.Uint32(raw[40:44]); got != 0 {
				t.Errorf("data size = %d, expected 0", got)
			}
			if got := binary.LittleEndian.Uint16(raw[20:22]); got != FormatPCM {
				t.Errorf("audio format = %d, expected PCM", got)
			}
			if got := binary.LittleEndian.Uint16(raw[22:24]); got != tt.channels {
				t.Errorf("channels = %d, expected %d", got, tt.channels)
			}
			if got := binary.LittleEndian.Uint32(raw[24:28]); got != tt.sampleRate {
				t.Errorf("sample rate = %d, expected %d", got, tt.sampleRate)
			}
			blockAlign := tt.channels * tt.bitDepth / 8
			if got := binary.LittleEndian.Uint32(raw[28:32]); got != tt.sampleRate*uint32(blockAlign) {
				t.Errorf("byte rate = %d, expected %d", got, tt.sampleRate*uint32(blockAlign))
			}
			if got := binary.LittleEndian.Uint16(raw[32:34]); got != blockAlign {
				t.Errorf("block align = %d, expected %d", got, blockAlign)
			}
			if got := binary.LittleEndian.Uint16(raw[34:36]); got != tt.bitDepth {
				t.Errorf("bits per sample = %d, expected %d", got, tt.bitDepth)
			}
			for off, id := range map[int]string{0: "RIFF", 8: "WAVE", 12: "fmt ", 36: "data"} {
				if got := string(raw[off : off+4]); got != id {
					t.Errorf("chunk id at %d = %q, expected %q", off, got, id)
				}
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single byte", []byte{0x7f}},
		{"even", bytes.Repeat([]byte{0x01, 0x80, 0xff, 0x00}, 1000)},
		{"odd", bytes.Repeat([]byte{0x10, 0x20, 0x30}, 333)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "take.wav")
			f, err := os.Create(path)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			header := NewHeader(22050, 16, 2)
			if err := Encode(f, header, tt.data); err != nil {
				t.Fatalf("encode: %v", err)
			}
			f.Close()

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got := binary.LittleEndian.Uint32(raw[4:8]); got != uint32(len(raw)-8) {
				t.Errorf("RIFF size = %d, expected file size - 8 = %d", got, len(raw)-8)
			}
			if len(raw)%2 != 0 {
				t.Errorf("file length %d is not word aligned", len(raw))
			}

			got, data, err := Decode(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(data, tt.data) {
				t.Errorf("data mismatch: got %d bytes, expected %d", len(data), len(tt.data))
			}
			if got.SampleRate != header.SampleRate || got.Channels != header.Channels ||
				got.BitsPerSample != header.BitsPerSample || got.BlockAlign != header.BlockAlign ||
				got.ByteRate != header.ByteRate || got.AudioFormat != FormatPCM {
				t.Errorf("header mismatch: got %+v, expected %+v", got, header)
			}
			if got.DataSize != uint32(len(tt.data)) {
				t.Errorf("data size = %d, expected %d", got.DataSize, len(tt.data))
			}
		})
	}
}

func TestEncoderStreamsInPieces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := NewEncoder(f, NewHeader(44100, 16, 1))
	var want []byte
	for i := 0; i < 10; i++ {
		chunk := bytes.Repeat([]byte{byte(i)}, 100+i)
		want = append(want, chunk...)
		if _, err := enc.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if enc.Header().DataSize != uint32(len(want)) {
		t.Errorf("data size = %d, expected %d", enc.Header().DataSize, len(want))
	}
	if _, err := enc.Write([]byte{1}); err == nil {
		t.Error("expected error writing to closed encoder")
	}

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	_, data, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(data, want) {
		t.Errorf("data mismatch: got %d bytes, expected %d", len(data), len(want))
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	var buf bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	buf.WriteString("RIFF")
	w(uint32(0))
	buf.WriteString("WAVE")
	buf.WriteString("LIST")
	w(uint32(3))
	buf.Write([]byte{1, 2, 3, 0}) // odd chunk plus pad
	buf.WriteString("fmt ")
	w(uint32(16))
	w(uint16(FormatPCM))
	w(uint16(1))
	w(uint32(8000))
	w(uint32(8000))
	w(uint16(1))
	w(uint16(8))
	buf.WriteString("data")
	w(uint32(2))
	buf.Write([]byte{0x80, 0x81})

	h, data, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.SampleRate != 8000 || h.BitsPerSample != 8 {
		t.Errorf("unexpected header %+v", h)
	}
	if !bytes.Equal(data, []byte{0x80, 0x81}) {
		t.Errorf("unexpected data %v", data)
	}
}

func TestDecodeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVE")},
		{"not wave", []byte("RIFF\x00\x00\x00\x00AVI ")},
		{"no data", []byte("RIFF\x04\x00\x00\x00WAVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(bytes.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspect.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	data := bytes.Repeat([]byte{0x00, 0x10}, 44100)
	if err := Encode(f, NewHeader(44100, 16, 1), data); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}

	info, err := Inspect(f)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 1 || info.BitDepth != 16 {
		t.Errorf("unexpected info %+v", info)
	}
	if info.AudioFormat != FormatPCM {
		t.Errorf("audio format = %d, expected PCM", info.AudioFormat)
	}
}

func TestNewHeaderWideFrames(t *testing.T) {
	tests := []struct {
		bitDepth   uint16
		channels   uint16
		blockAlign uint16
		byteRate   uint32
	}{
		{16, 4096, 8192, 393216000},
		{32, 2100, 8400, 403200000},
	}

	for _, tt := range tests {
		h := NewHeader(48000, tt.bitDepth, tt.channels)
		if h.BlockAlign != tt.blockAlign || h.ByteRate != tt.byteRate {
			t.Errorf("%d ch of %d bits: block align %d, byte rate %d; expected %d, %d",
				tt.channels, tt.bitDepth, h.BlockAlign, h.ByteRate, tt.blockAlign, tt.byteRate)
		}
	}
}

func TestEncodeRejectsOverflowingHeader(t *testing.T) {
	h := NewHeader(48000, 32, 65535)
	if h.BlockAlign != 0 || h.ByteRate != 0 {
		t.Errorf("expected zero derived fields, got block align %d, byte rate %d", h.BlockAlign, h.ByteRate)
	}

	path := filepath.Join(t.TempDir(), "wide.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	if err := Encode(f, h, nil); err == nil {
		t.Error("expected error for overflowing header")
	}
}
