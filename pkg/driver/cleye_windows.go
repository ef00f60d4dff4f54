//go:build windows

package driver

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"gocv.io/x/gocv"
	"golang.org/x/sys/windows"

	"github.com/teslashibe/go-psmove/pkg/colorspace"
)

var (
	cleyeDLL = windows.NewLazyDLL("CLEyeMulticam.dll")

	procGetCameraCount     = cleyeDLL.NewProc("CLEyeGetCameraCount")
	procGetCameraUUID      = cleyeDLL.NewProc("CLEyeGetCameraUUID")
	procCreateCamera       = cleyeDLL.NewProc("CLEyeCreateCamera")
	procDestroyCamera      = cleyeDLL.NewProc("CLEyeDestroyCamera")
	procCameraStart        = cleyeDLL.NewProc("CLEyeCameraStart")
	procCameraStop         = cleyeDLL.NewProc("CLEyeCameraStop")
	procCameraGetFrame     = cleyeDLL.NewProc("CLEyeCameraGetFrame")
	procGetFrameDimensions = cleyeDLL.NewProc("CLEyeCameraGetFrameDimensions")
	procSetCameraParameter = cleyeDLL.NewProc("CLEyeSetCameraParameter")
)

const (
	cleyeColorProcessed = 1
	cleyeQVGA           = 0
	cleyeVGA            = 1

	cleyeTimeoutMillis = 2000
)

// CLEye camera parameters.
const (
	cleyeAutoGain         = 0
	cleyeGain             = 1
	cleyeAutoExposure     = 2
	cleyeExposure         = 3
	cleyeAutoWhiteBalance = 4
	cleyeWhiteBalanceRed  = 5
	cleyeWhiteBalanceGrn  = 6
	cleyeWhiteBalanceBlue = 7
)

// Native CLEye ranges.
const (
	cleyeGainMax     = 79
	cleyeExposureMax = 511
	cleyeBalanceMax  = 255
)

// CLEye captures through the CL-Eye Platform SDK.
type CLEye struct{}

// Name implements Driver.
func (d *CLEye) Name() string { return "cleye" }

// Count implements Driver.
func (d *CLEye) Count() (int, error) {
	if err := cleyeDLL.Load(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, _, _ := procGetCameraCount.Call()
	return int(int32(n)), nil
}

// Open implements Driver. The SDK supports 640x480 and 320x240 only.
func (d *CLEye) Open(index int, mode Mode) (Device, error) {
	if err := cleyeDLL.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// A 16-byte GUID is returned and passed by reference on the x64 ABI.
	var guid windows.GUID
	procGetCameraUUID.Call(uintptr(unsafe.Pointer(&guid)), uintptr(index))

	res := uintptr(cleyeVGA)
	if mode.Width > 0 && mode.Width <= 320 {
		res = cleyeQVGA
	}
	fps := uintptr(math.Float32bits(float32(mode.Framerate)))
	handle, _, _ := procCreateCamera.Call(uintptr(unsafe.Pointer(&guid)), cleyeColorProcessed, res, fps)
	if handle == 0 {
		return nil, fmt.Errorf("%w: cleye index %d", ErrNoDevice, index)
	}

	var w, h int32
	procGetFrameDimensions.Call(handle, uintptr(unsafe.Pointer(&w)), uintptr(unsafe.Pointer(&h)))
	if w <= 0 || h <= 0 {
		procDestroyCamera.Call(handle)
		return nil, fmt.Errorf("%w: cleye index %d reported no frame size", ErrNoDevice, index)
	}
	if ok, _, _ := procCameraStart.Call(handle); ok == 0 {
		procDestroyCamera.Call(handle)
		return nil, fmt.Errorf("%w: cleye index %d failed to start", ErrNoDevice, index)
	}

	return &cleyeDevice{
		handle: handle,
		mode:   Mode{Width: int(w), Height: int(h), Framerate: mode.Framerate},
		buf:    make([]byte, int(w)*int(h)*4),
		frame:  gocv.NewMatWithSize(int(h), int(w), gocv.MatTypeCV8UC3),
	}, nil
}

type cleyeDevice struct {
	mu     sync.Mutex
	handle uintptr
	mode   Mode
	buf    []byte
	frame  gocv.Mat
	closed bool
}

func (d *cleyeDevice) Mode() Mode { return d.mode }

func (d *cleyeDevice) Read() (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Frame{}, ErrClosed
	}

	ok, _, _ := procCameraGetFrame.Call(d.handle, uintptr(unsafe.Pointer(&d.buf[0])), cleyeTimeoutMillis)
	if ok == 0 {
		return Frame{Image: &d.frame}, nil
	}

	dst, err := d.frame.DataPtrUint8()
	if err != nil {
		return Frame{}, err
	}
	if err := colorspace.BGRAToBGR(d.buf, d.mode.Width*4, dst, d.mode.Width, d.mode.Height); err != nil {
		return Frame{}, err
	}
	return Frame{Image: &d.frame, New: true}, nil
}

func (d *cleyeDevice) SetParameters(p Parameters) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	d.set(cleyeAutoExposure, boolInt(p.AutoExposure))
	d.set(cleyeAutoGain, boolInt(p.AutoGain))
	d.set(cleyeAutoWhiteBalance, boolInt(p.AutoWhiteBalance))
	d.set(cleyeExposure, Rescale(p.Exposure, cleyeExposureMax))
	d.set(cleyeGain, Rescale(p.Gain, cleyeGainMax))
	d.set(cleyeWhiteBalanceRed, Rescale(p.WhiteBalanceRed, cleyeBalanceMax))
	d.set(cleyeWhiteBalanceGrn, Rescale(p.WhiteBalanceGrn, cleyeBalanceMax))
	d.set(cleyeWhiteBalanceBlue, Rescale(p.WhiteBalanceBlue, cleyeBalanceMax))
	return nil
}

func (d *cleyeDevice) set(param, value int) {
	procSetCameraParameter.Call(d.handle, uintptr(param), uintptr(int32(value)))
}

func (d *cleyeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	procCameraStop.Call(d.handle)
	procDestroyCamera.Call(d.handle)
	d.frame.Close()
	return nil
}
