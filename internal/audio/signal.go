package audio

import "sync"

// signal wakes the capture worker when the driver completes a buffer.
// notify runs in the driver's callback context: it only takes the lock long
// enough to order itself after a waiter's predicate check, then broadcasts.
type signal struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func newSignal() *signal {
	s := &signal{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *signal) notify() {
	s.mu.Lock()
	s.mu.Unlock()
	s.cond.Broadcast()
}

// wait blocks until ready returns true. ready is re-checked under the lock
// after every wake-up.
func (s *signal) wait(ready func() bool) {
	s.mu.Lock()
	for !ready() {
		s.cond.Wait()
	}
	s.mu.Unlock()
}
