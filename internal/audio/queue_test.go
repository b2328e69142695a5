package audio

import (
	"bytes"
	"sync/atomic"
	"testing"
)

func TestQueueCompletesBuffersInOrder(t *testing.T) {
	var notified atomic.Int32
	q := NewQueue(func() { notified.Add(1) })

	a, b := NewBuffer(), NewBuffer()
	q.Add(a)
	q.Add(b)

	input := make([]byte, BufferSize+100)
	for i := range input {
		input[i] = byte(i % 251)
	}
	if n := q.Write(input); n != len(input) {
		t.Fatalf("wrote %d bytes, expected %d", n, len(input))
	}

	if !a.Done() || a.Len() != BufferSize {
		t.Errorf("first buffer: done=%v len=%d", a.Done(), a.Len())
	}
	if b.Done() || b.Len() != 100 {
		t.Errorf("second buffer: done=%v len=%d", b.Done(), b.Len())
	}
	if !bytes.Equal(a.Bytes(), input[:BufferSize]) || !bytes.Equal(b.Bytes(), input[BufferSize:]) {
		t.Error("buffer contents do not match input")
	}
	if notified.Load() != 1 {
		t.Errorf("expected 1 notification, got %d", notified.Load())
	}
	if q.Pending() != 1 {
		t.Errorf("expected 1 pending buffer, got %d", q.Pending())
	}
}

func TestQueueResetReturnsPartialBuffers(t *testing.T) {
	var notified atomic.Int32
	q := NewQueue(func() { notified.Add(1) })

	a, b := NewBuffer(), NewBuffer()
	q.Add(a)
	q.Add(b)
	q.Write([]byte{1, 2, 3})
	q.Reset()

	if !a.Done() || a.Len() != 3 {
		t.Errorf("partial buffer: done=%v len=%d", a.Done(), a.Len())
	}
	if !b.Done() || b.Len() != 0 {
		t.Errorf("empty buffer: done=%v len=%d", b.Done(), b.Len())
	}
	if q.Pending() != 0 {
		t.Errorf("expected no pending buffers, got %d", q.Pending())
	}
	if notified.Load() == 0 {
		t.Error("reset did not notify")
	}

	// reset with nothing pending is quiet
	before := notified.Load()
	q.Reset()
	if notified.Load() != before {
		t.Error("empty reset notified")
	}
}

func TestQueueDropsWithoutBuffers(t *testing.T) {
	q := NewQueue(nil)
	if n := q.Write(make([]byte, 10)); n != 0 {
		t.Errorf("wrote %d bytes with no buffer", n)
	}
	if q.Dropped() != 10 {
		t.Errorf("dropped = %d, expected 10", q.Dropped())
	}
}

func TestQueueAddPreparesBuffer(t *testing.T) {
	q := NewQueue(nil)
	b := NewBuffer()
	q.Add(b)
	q.Write(make([]byte, BufferSize))
	if !b.Done() {
		t.Fatal("expected full buffer to complete")
	}

	q.Add(b)
	if b.Done() || b.Len() != 0 {
		t.Errorf("resubmitted buffer not reset: done=%v len=%d", b.Done(), b.Len())
	}
}

func TestSignalWaitsForPredicate(t *testing.T) {
	s := newSignal()
	var ready atomic.Bool

	done := make(chan struct{})
	go func() {
		s.wait(ready.Load)
		close(done)
	}()

	s.notify()
	ready.Store(true)
	s.notify()
	<-done

	// already satisfied predicates return immediately
	s.wait(ready.Load)
}
