package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

func init() {
	registerBackend(BackendTypePipeWire, newPipeWireDriver)
}

// PipeWire queries the PipeWire graph through the pw-link tool
type PipeWire struct {
	run func(name string, args ...string) ([]byte, error)
}

// NewPipeWire creates a new PipeWire instance
func NewPipeWire() *PipeWire {
	return &PipeWire{run: func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).Output()
	}}
}

// ListPorts returns all output ports of the graph, which include the
// capture ports of input devices
func (pw *PipeWire) ListPorts() ([]string, error) {
	output, err := pw.run("pw-link", "-o")
	if err != nil {
		return nil, fmt.Errorf("failed to list PipeWire ports: %w", err)
	}
	return parsePorts(string(output)), nil
}

// CaptureNodes returns the nodes that own at least one capture port, in
// graph order and without duplicates
func (pw *PipeWire) CaptureNodes() ([]string, error) {
	ports, err := pw.ListPorts()
	if err != nil {
		return nil, err
	}
	return captureNodes(ports), nil
}

func parsePorts(output string) []string {
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "Input ports:") && !strings.HasPrefix(line, "Output ports:") {
			ports = append(ports, line)
		}
	}
	return ports
}

// splitPort splits "node:port" at the last colon; node names may contain colons
func splitPort(port string) (node, name string, ok bool) {
	i := strings.LastIndex(port, ":")
	if i <= 0 || i == len(port)-1 {
		return "", "", false
	}
	return strings.TrimSpace(port[:i]), strings.TrimSpace(port[i+1:]), true
}

func captureNodes(ports []string) []string {
	seen := map[string]bool{}
	var nodes []string
	for _, port := range ports {
		node, name, ok := splitPort(port)
		if !ok || !strings.HasPrefix(name, "capture") || seen[node] {
			continue
		}
		seen[node] = true
		nodes = append(nodes, node)
	}
	return nodes
}

// pipeWireDriver records with pw-record, one process per recording run
type pipeWireDriver struct {
	pw *PipeWire
}

func newPipeWireDriver() (Driver, error) {
	for _, tool := range []string{"pw-link", "pw-record"} {
		if _, err := exec.LookPath(tool); err != nil {
			return nil, newError("open driver", ErrDriverUnavailable, err)
		}
	}
	return &pipeWireDriver{pw: NewPipeWire()}, nil
}

func (d *pipeWireDriver) Name() string {
	return string(BackendTypePipeWire)
}

func (d *pipeWireDriver) nodes() ([]string, error) {
	nodes, err := d.pw.CaptureNodes()
	if err != nil {
		return nil, newError("list devices", ErrDriverUnavailable, err)
	}
	return nodes, nil
}

func (d *pipeWireDriver) DeviceCount() (int, error) {
	nodes, err := d.nodes()
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (d *pipeWireDriver) DeviceName(id DeviceID) (string, error) {
	if id == DefaultDevice {
		return "default", nil
	}
	nodes, err := d.nodes()
	if err != nil {
		return "", err
	}
	if !validDevice(id, len(nodes)) {
		return "", newError("device name", ErrInvalidDeviceID, fmt.Errorf("device %d of %d", id, len(nodes)))
	}
	return nodes[id], nil
}

func (d *pipeWireDriver) Devices() ([]DeviceInfo, error) {
	nodes, err := d.nodes()
	if err != nil {
		return nil, err
	}
	list := make([]DeviceInfo, 0, len(nodes))
	for i, node := range nodes {
		list = append(list, DeviceInfo{ID: DeviceID(i), Name: node})
	}
	return list, nil
}

func pipeWireFormat(bitDepth uint16) (string, error) {
	switch bitDepth {
	case 8:
		return "u8", nil
	case 16:
		return "s16", nil
	case 24:
		return "s24", nil
	case 32:
		return "s32", nil
	default:
		return "", fmt.Errorf("%d-bit samples", bitDepth)
	}
}

func (d *pipeWireDriver) Open(id DeviceID, format Format, notify func()) (Handle, error) {
	sampleFormat, err := pipeWireFormat(format.BitDepth)
	if err != nil {
		return nil, newError("open device", ErrInvalidFormat, err)
	}
	if format.Channels == 0 || format.SampleRate == 0 {
		return nil, newError("open device", ErrInvalidFormat, fmt.Errorf("%s", format))
	}

	name, err := d.DeviceName(id)
	if err != nil {
		return nil, err
	}
	h := &pipeWireHandle{
		name:   name,
		format: format,
		sample: sampleFormat,
		queue:  NewQueue(notify),
	}
	if id != DefaultDevice {
		h.target = name
	}
	return h, nil
}

func (d *pipeWireDriver) Close() error {
	return nil
}

type pipeWireHandle struct {
	name   string
	target string
	format Format
	sample string
	queue  *Queue

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func (h *pipeWireHandle) DeviceName() string {
	return h.name
}

func (h *pipeWireHandle) AddBuffer(b *Buffer) error {
	h.queue.Add(b)
	return nil
}

// args builds the pw-record command line writing raw PCM to stdout
func (h *pipeWireHandle) args() []string {
	args := []string{
		"--rate", strconv.Itoa(int(h.format.SampleRate)),
		"--channels", strconv.Itoa(int(h.format.Channels)),
		"--format", h.sample,
		"--raw",
	}
	if h.target != "" {
		args = append(args, "--target", h.target)
	}
	return append(args, "-")
}

func (h *pipeWireHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil {
		return nil
	}

	args := h.args()
	slog.Debug("Starting pw-record", "command", "pw-record "+strings.Join(args, " "))

	cmd := exec.Command("pw-record", args...)
	cmd.Stderr = &stderrLog{label: "pw-record"}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return newError("start", exhaustedKind(err, ErrDeviceError), fmt.Errorf("failed to start pw-record: %w", err))
	}

	h.cmd = cmd
	h.done = make(chan struct{})
	go h.pump(stdout, h.done)
	return nil
}

// pump copies PCM from pw-record into the queue until the pipe closes
func (h *pipeWireHandle) pump(r io.Reader, done chan struct{}) {
	defer close(done)

	buf := make([]byte, BufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.queue.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				slog.Debug("pw-record output ended", "error", err)
			}
			return
		}
	}
}

// stop interrupts pw-record and waits for it to exit
func (h *pipeWireHandle) stop() error {
	h.mu.Lock()
	cmd, done := h.cmd, h.done
	h.cmd, h.done = nil, nil
	h.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to send interrupt to pw-record, killing", "error", err)
		cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("pw-record did not exit within timeout, force killing")
		cmd.Process.Kill()
		<-done
	}

	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		// terminated by our signal
		return nil
	}
	if err != nil {
		return fmt.Errorf("pw-record failed: %w", err)
	}
	return nil
}

func (h *pipeWireHandle) Reset() error {
	err := h.stop()
	h.queue.Reset()
	return err
}

func (h *pipeWireHandle) Close() error {
	return h.stop()
}

// stderrLog forwards a child process's stderr to the debug log line by line
type stderrLog struct {
	label string
	mu    sync.Mutex
	buf   bytes.Buffer
}

func (l *stderrLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		line := strings.TrimRight(string(l.buf.Next(i+1)), "\r\n")
		if line != "" {
			slog.Debug("Process output", "process", l.label, "line", line)
		}
	}
}
