package audio

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// BackendType represents the type of audio backend
type BackendType string

const (
	BackendTypeAuto      BackendType = "auto"
	BackendTypeMalgo     BackendType = "malgo"
	BackendTypePortAudio BackendType = "portaudio"
	BackendTypePipeWire  BackendType = "pipewire"
	BackendTypeSynthetic BackendType = "synthetic"
)

// autoOrder lists the hardware backends tried for BackendTypeAuto
var autoOrder = []BackendType{BackendTypeMalgo, BackendTypePortAudio, BackendTypePipeWire}

var (
	backendsMu sync.RWMutex
	backends   = map[BackendType]func() (Driver, error){}
)

// registerBackend makes a backend available under its name. Backends that
// depend on cgo register themselves from build-tagged files.
func registerBackend(t BackendType, open func() (Driver, error)) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[t] = open
}

// ParseBackend converts a configuration value into a BackendType
func ParseBackend(name string) (BackendType, error) {
	switch t := BackendType(strings.ToLower(strings.TrimSpace(name))); t {
	case "":
		return BackendTypeAuto, nil
	case BackendTypeAuto, BackendTypeMalgo, BackendTypePortAudio, BackendTypePipeWire, BackendTypeSynthetic:
		return t, nil
	default:
		return "", fmt.Errorf("unknown audio backend %q", name)
	}
}

// NewDriver opens the named backend. "auto" tries each hardware backend
// compiled into the binary and returns the first that initializes.
func NewDriver(name string) (Driver, error) {
	t, err := ParseBackend(name)
	if err != nil {
		return nil, newError("open driver", ErrDriverUnavailable, err)
	}

	if t != BackendTypeAuto {
		open, ok := lookupBackend(t)
		if !ok {
			return nil, newError("open driver", ErrDriverUnavailable,
				fmt.Errorf("backend %q is not compiled into this binary", t))
		}
		return open()
	}

	var errs []string
	for _, candidate := range autoOrder {
		open, ok := lookupBackend(candidate)
		if !ok {
			continue
		}
		d, err := open()
		if err == nil {
			slog.Debug("Selected audio backend", "backend", candidate)
			return d, nil
		}
		slog.Debug("Audio backend unavailable", "backend", candidate, "error", err)
		errs = append(errs, err.Error())
	}
	if len(errs) == 0 {
		return nil, newError("open driver", ErrDriverUnavailable,
			fmt.Errorf("no hardware backend compiled into this binary"))
	}
	return nil, newError("open driver", ErrDriverUnavailable, fmt.Errorf("%s", strings.Join(errs, "; ")))
}

func lookupBackend(t BackendType) (func() (Driver, error), bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	open, ok := backends[t]
	return open, ok
}

// AvailableBackends returns the backends compiled into this binary
func AvailableBackends() []BackendType {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	list := make([]BackendType, 0, len(backends))
	for t := range backends {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
