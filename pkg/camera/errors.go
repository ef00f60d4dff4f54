package camera

import (
	"errors"
	"fmt"
)

// ErrorCode classifies Open failures.
type ErrorCode int

const (
	// CodeCameraNotFound means the index is beyond the connected camera count.
	CodeCameraNotFound ErrorCode = iota + 1

	// CodeDeviceOpenFailure means the driver failed to open the device.
	CodeDeviceOpenFailure
)

func (c ErrorCode) String() string {
	switch c {
	case CodeCameraNotFound:
		return "camera not found"
	case CodeDeviceOpenFailure:
		return "device open failure"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

var (
	// ErrCameraNotFound matches OpenErrors with CodeCameraNotFound.
	ErrCameraNotFound = errors.New("camera: camera not found")

	// ErrDeviceOpen matches OpenErrors with CodeDeviceOpenFailure.
	ErrDeviceOpen = errors.New("camera: device open failure")

	// ErrClosed is returned by operations on a closed camera.
	ErrClosed = errors.New("camera: closed")
)

// OpenError is returned by Open.
type OpenError struct {
	Code   ErrorCode
	Index  int
	Driver string
	Err    error
}

func (e *OpenError) Error() string {
	msg := fmt.Sprintf("open camera %d (%s): %s", e.Index, e.Driver, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpenError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Code.
func (e *OpenError) Is(target error) bool {
	switch target {
	case ErrCameraNotFound:
		return e.Code == CodeCameraNotFound
	case ErrDeviceOpen:
		return e.Code == CodeDeviceOpenFailure
	}
	return false
}
