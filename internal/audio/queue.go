package audio

import "sync"

// Queue holds the buffers a device has been given but not yet returned.
// Backends feed incoming PCM through Write; buffers complete in the order
// they were added.
type Queue struct {
	mu      sync.Mutex
	pending []*Buffer
	notify  func()
	dropped int64
}

// NewQueue creates a queue that calls notify once per completed buffer
func NewQueue(notify func()) *Queue {
	if notify == nil {
		notify = func() {}
	}
	return &Queue{notify: notify}
}

// Add prepares b and appends it to the pending list
func (q *Queue) Add(b *Buffer) {
	b.prepare()
	q.mu.Lock()
	q.pending = append(q.pending, b)
	q.mu.Unlock()
}

// Write copies captured bytes into pending buffers, completing each one as
// it fills. Bytes arriving while nothing is pending are dropped.
func (q *Queue) Write(p []byte) int {
	completed := 0

	q.mu.Lock()
	written := 0
	for len(p) > 0 && len(q.pending) > 0 {
		head := q.pending[0]
		n := head.fill(p)
		p = p[n:]
		written += n
		if head.full() {
			head.complete()
			q.pending[0] = nil
			q.pending = q.pending[1:]
			completed++
		}
	}
	q.dropped += int64(len(p))
	q.mu.Unlock()

	for i := 0; i < completed; i++ {
		q.notify()
	}
	return written
}

// Reset returns every pending buffer with whatever it holds
func (q *Queue) Reset() {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	for _, b := range pending {
		b.complete()
	}
	q.mu.Unlock()

	if len(pending) > 0 {
		q.notify()
	}
}

// Pending returns the number of buffers waiting for data
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped returns the number of bytes discarded for lack of a buffer
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
