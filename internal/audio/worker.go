package audio

import "log/slog"

// capture is the worker loop. It waits for buffers strictly in alternation,
// appends each completed buffer to the store and hands it straight back to
// the device. It exits once recording has stopped and the buffer it waits
// on is no longer complete, or when a buffer cannot be resubmitted.
func (s *Session) capture(done chan struct{}) {
	defer close(done)

	for {
		b := s.buffers[s.next]
		s.signal.wait(func() bool {
			return b.Done() || !s.recording.Load()
		})
		if !b.Done() {
			return
		}
		if err := s.advance(b); err != nil {
			slog.Error("Capture worker stopped", "device", s.deviceName, "error", err)
			s.setWorkerErr(err)
			return
		}
	}
}

// advance drains b into the store, resubmits it and moves on to the other
// buffer. A buffer that fails resubmission is left unqueued for Record to
// prime again.
func (s *Session) advance(b *Buffer) error {
	s.storeMu.Lock()
	s.store = append(s.store, b.Bytes()...)
	s.storeMu.Unlock()
	s.completed.Add(1)

	s.next ^= 1
	if err := s.handle.AddBuffer(b); err != nil {
		b.queued = false
		return newError("add buffer", ErrDeviceError, err)
	}
	return nil
}

func (s *Session) setWorkerErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.workerErr = err
}

func (s *Session) pendingWorkerErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.workerErr
}

func (s *Session) takeWorkerErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.workerErr
	s.workerErr = nil
	return err
}
