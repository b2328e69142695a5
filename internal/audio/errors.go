package audio

import (
	"errors"
	"fmt"
	"syscall"
)

// Error kinds reported by drivers and sessions. Match them with errors.Is.
var (
	ErrInvalidDeviceID   = errors.New("specified device identifier is out of range")
	ErrInvalidFormat     = errors.New("unsupported waveform-audio format")
	ErrDeviceUnavailable = errors.New("device is already allocated or unavailable")
	ErrResourceExhausted = errors.New("unable to allocate or lock memory")
	ErrDriverUnavailable = errors.New("no device driver is present")
	ErrDeviceError       = errors.New("device driver failure")
	ErrIO                = errors.New("i/o failure")
	ErrClosed            = errors.New("session is closed")
)

// CaptureError records the operation that failed, the error kind and the cause
type CaptureError struct {
	Op   string
	Kind error
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *CaptureError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) error {
	return &CaptureError{Op: op, Kind: kind, Err: err}
}

// kindOf returns the error kind carried by err, or fallback when err has none
func kindOf(err, fallback error) error {
	for _, kind := range []error{
		ErrInvalidDeviceID,
		ErrInvalidFormat,
		ErrDeviceUnavailable,
		ErrResourceExhausted,
		ErrDriverUnavailable,
		ErrDeviceError,
		ErrIO,
		ErrClosed,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return fallback
}

// exhaustedKind reports operating system allocation failures as
// ErrResourceExhausted and otherwise behaves like kindOf
func exhaustedKind(err, fallback error) error {
	if errors.Is(err, syscall.ENOMEM) || errors.Is(err, syscall.EAGAIN) {
		return ErrResourceExhausted
	}
	return kindOf(err, fallback)
}
