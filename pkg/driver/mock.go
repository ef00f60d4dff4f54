package driver

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Pattern returns the BGR color of pixel (x, y) in frame number seq.
type Pattern func(x, y, seq int) (b, g, r byte)

// Stripes draws black even rows and white odd rows.
func Stripes(x, y, seq int) (b, g, r byte) {
	if y%2 == 1 {
		return 255, 255, 255
	}
	return 0, 0, 0
}

// Gradient encodes the row in blue, the column in green and the frame number
// in red.
func Gradient(x, y, seq int) (b, g, r byte) {
	return byte(y), byte(x), byte(seq)
}

// Mock is a driver producing synthetic frames for tests.
type Mock struct {
	Cameras int

	pattern      Pattern
	failOpen     bool
	countErr     error
	timeoutEvery int

	mu      sync.Mutex
	devices []*MockDevice
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithPattern sets the frame pattern. Defaults to Stripes.
func WithPattern(p Pattern) MockOption {
	return func(m *Mock) { m.pattern = p }
}

// WithOpenFailure makes every Open fail with ErrNoDevice.
func WithOpenFailure() MockOption {
	return func(m *Mock) { m.failOpen = true }
}

// WithCountError makes Count fail with err.
func WithCountError(err error) MockOption {
	return func(m *Mock) { m.countErr = err }
}

// WithTimeoutEvery makes every nth Read time out.
func WithTimeoutEvery(n int) MockOption {
	return func(m *Mock) { m.timeoutEvery = n }
}

// NewMock creates a mock driver reporting the given number of cameras.
func NewMock(cameras int, opts ...MockOption) *Mock {
	m := &Mock{Cameras: cameras, pattern: Stripes}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements Driver.
func (m *Mock) Name() string { return "mock" }

// Count implements Driver.
func (m *Mock) Count() (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.Cameras, nil
}

// Open implements Driver. Non-positive sizes default to 640x480.
func (m *Mock) Open(index int, mode Mode) (Device, error) {
	if m.failOpen || index < 0 || index >= m.Cameras {
		return nil, fmt.Errorf("%w: mock index %d", ErrNoDevice, index)
	}
	if mode.Width <= 0 || mode.Height <= 0 {
		mode.Width, mode.Height = 640, 480
	}

	pattern := m.pattern
	if pattern == nil {
		pattern = Stripes
	}
	d := &MockDevice{
		mode:         mode,
		pattern:      pattern,
		timeoutEvery: m.timeoutEvery,
		frame:        gocv.NewMatWithSize(mode.Height, mode.Width, gocv.MatTypeCV8UC3),
		controls:     map[string]int32{"exposure": 120, "gain": 20},
	}

	m.mu.Lock()
	m.devices = append(m.devices, d)
	m.mu.Unlock()
	return d, nil
}

// Devices returns every device opened so far.
func (m *Mock) Devices() []*MockDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockDevice(nil), m.devices...)
}

// MockDevice is a device opened by Mock.
type MockDevice struct {
	mode         Mode
	pattern      Pattern
	timeoutEvery int

	mu       sync.Mutex
	frame    gocv.Mat
	reads    int
	params   []Parameters
	controls map[string]int32
	closed   bool
}

func (d *MockDevice) Mode() Mode { return d.mode }

func (d *MockDevice) Read() (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Frame{}, ErrClosed
	}

	d.reads++
	if d.timeoutEvery > 0 && d.reads%d.timeoutEvery == 0 {
		return Frame{Image: &d.frame}, nil
	}

	data, err := d.frame.DataPtrUint8()
	if err != nil {
		return Frame{}, err
	}
	w, h := d.mode.Width, d.mode.Height
	for y := 0; y < h; y++ {
		row := data[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			row[x*3], row[x*3+1], row[x*3+2] = d.pattern(x, y, d.reads)
		}
	}
	return Frame{Image: &d.frame, New: true}, nil
}

func (d *MockDevice) SetParameters(p Parameters) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.params = append(d.params, p)
	d.controls["exposure"] = int32(Rescale(p.Exposure, 255))
	d.controls["gain"] = int32(Rescale(p.Gain, 63))
	return nil
}

// Controls implements ControlBackup.
func (d *MockDevice) Controls() (map[string]int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int32, len(d.controls))
	for k, v := range d.controls {
		out[k] = v
	}
	return out, nil
}

// RestoreControls implements ControlBackup.
func (d *MockDevice) RestoreControls(values map[string]int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range values {
		d.controls[k] = v
	}
	return nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.frame.Close()
	return nil
}

// Reads returns the number of Read calls.
func (d *MockDevice) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// Parameters returns every parameter set applied, oldest first.
func (d *MockDevice) Parameters() []Parameters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Parameters(nil), d.params...)
}

// Closed reports whether Close was called.
func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
