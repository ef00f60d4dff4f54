// Package driver abstracts the camera backends a tracker can capture from.
//
// A Driver enumerates and opens cameras; an opened Device delivers BGR frames
// into a buffer it owns and overwrites on every Read. Three hardware backends
// are provided (OpenCV capture, PS3 Eye over V4L2, CLEye on Windows) plus a
// Mock for tests. Backends are looked up by name through the registry.
package driver

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrUnavailable is returned when a backend is not supported on this platform.
	ErrUnavailable = errors.New("driver: backend unavailable on this platform")

	// ErrNoDevice is returned when the requested camera cannot be opened.
	ErrNoDevice = errors.New("driver: no such device")

	// ErrCountUnsupported is returned by drivers that cannot enumerate cameras.
	ErrCountUnsupported = errors.New("driver: camera enumeration not supported")

	// ErrClosed is returned when reading from a closed device.
	ErrClosed = errors.New("driver: device closed")
)

// ParameterMax is the top of the normalized parameter range.
const ParameterMax = 0xFFFF

// Mode is a capture resolution and framerate.
type Mode struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`
}

// Parameters are sensor settings normalized to 0..ParameterMax.
// Each device rescales them into its native ranges.
type Parameters struct {
	AutoExposure     bool   `json:"auto_exposure" yaml:"auto_exposure"`
	AutoGain         bool   `json:"auto_gain" yaml:"auto_gain"`
	AutoWhiteBalance bool   `json:"auto_white_balance" yaml:"auto_white_balance"`
	Exposure         uint16 `json:"exposure" yaml:"exposure"`
	Gain             uint16 `json:"gain" yaml:"gain"`
	WhiteBalanceRed  uint16 `json:"wb_red" yaml:"wb_red"`
	WhiteBalanceGrn  uint16 `json:"wb_green" yaml:"wb_green"`
	WhiteBalanceBlue uint16 `json:"wb_blue" yaml:"wb_blue"`
	Contrast         uint16 `json:"contrast" yaml:"contrast"`
	Brightness       uint16 `json:"brightness" yaml:"brightness"`
}

// Frame is one acquisition result.
//
// Image is owned by the device and overwritten by the next Read. When New is
// false the acquisition timed out and Image still holds the previous frame.
// Timestamps are only set by backends that report them.
type Frame struct {
	Image       *gocv.Mat
	New         bool
	GrabbedAt   time.Time
	RetrievedAt time.Time
}

// Driver enumerates and opens cameras of one backend.
type Driver interface {
	// Name returns the registry name of the backend.
	Name() string

	// Count returns the number of connected cameras, or ErrCountUnsupported.
	Count() (int, error)

	// Open opens camera index with the requested mode. The returned device
	// reports the mode it actually negotiated.
	Open(index int, mode Mode) (Device, error)
}

// Device is an opened camera.
type Device interface {
	// Mode returns the negotiated capture mode.
	Mode() Mode

	// Read blocks until a frame arrives or the backend timeout elapses.
	Read() (Frame, error)

	// SetParameters applies sensor settings. Unsupported settings are ignored.
	SetParameters(p Parameters) error

	// Close releases the device and its frame buffer.
	Close() error
}

// ControlBackup is implemented by devices that can snapshot their native
// control values.
type ControlBackup interface {
	Controls() (map[string]int32, error)
	RestoreControls(values map[string]int32) error
}

// Rescale maps a normalized value in 0..ParameterMax onto 0..max.
func Rescale(v uint16, max int) int {
	return max * int(v) / ParameterMax
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
