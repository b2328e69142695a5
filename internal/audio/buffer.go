package audio

import "sync/atomic"

// BufferSize is the capacity in bytes of each capture buffer
const BufferSize = 4096

// Buffer is a fixed-size capture buffer handed back and forth between a
// session and its driver. The driver writes data and the filled count, then
// publishes completion through the done flag; the session only reads the
// contents after observing done.
type Buffer struct {
	data   []byte
	filled int
	done   atomic.Bool

	// queued is session-side bookkeeping: true while submitted to the driver
	queued bool
}

// NewBuffer allocates a buffer of BufferSize bytes
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, BufferSize)}
}

// Done reports whether the driver has returned the buffer
func (b *Buffer) Done() bool {
	return b.done.Load()
}

// Len returns the number of bytes the driver filled
func (b *Buffer) Len() int {
	return b.filled
}

// Bytes returns the filled portion of the buffer
func (b *Buffer) Bytes() []byte {
	return b.data[:b.filled]
}

// Cap returns the buffer capacity
func (b *Buffer) Cap() int {
	return len(b.data)
}

// prepare readies the buffer for submission
func (b *Buffer) prepare() {
	b.filled = 0
	b.done.Store(false)
}

// fill copies as much of p as fits and returns the number of bytes taken
func (b *Buffer) fill(p []byte) int {
	n := copy(b.data[b.filled:], p)
	b.filled += n
	return n
}

func (b *Buffer) full() bool {
	return b.filled == len(b.data)
}

// complete marks the buffer as returned by the driver
func (b *Buffer) complete() {
	b.done.Store(true)
}
