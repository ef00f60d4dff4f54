// Package camera opens a tracking camera and conditions its frames.
//
// A Camera wraps one driver.Device. Every Acquire reads a frame, optionally
// deinterlaces it and, once a lens calibration is loaded, undistorts it. The
// returned image stays owned by the Camera and is overwritten by the next
// Acquire. A Camera is not safe for concurrent use.
package camera

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-psmove/internal/config"
	"github.com/teslashibe/go-psmove/internal/log"
	"github.com/teslashibe/go-psmove/pkg/debug"
	"github.com/teslashibe/go-psmove/pkg/driver"
)

// Frame is the result of Acquire. Image is owned by the Camera.
type Frame = driver.Frame

// Camera is an opened tracking camera.
type Camera struct {
	id      uuid.UUID
	index   int
	variant Variant
	drv     driver.Driver
	dev     driver.Device
	mode    driver.Mode
	logger  *slog.Logger

	deinterlace bool
	maps        *undistortMaps
	undistorted *gocv.Mat
	calibPaths  [2]string

	focalX, focalY float64

	closed bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	drv driver.Driver
	cfg *config.Config
}

// WithDriver opens the camera through d instead of the configured driver.
func WithDriver(d driver.Driver) Option {
	return func(o *options) { o.drv = d }
}

// WithConfig uses cfg instead of loading defaults and environment overrides.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = &cfg }
}

// Open opens camera index.
//
// Non-positive width or height fall back to the configured resolution; a
// non-positive framerate falls back to the configured framerate. Failures are
// reported as *OpenError and release everything acquired so far.
func Open(index, width, height, framerate int, variant Variant, opts ...Option) (*Camera, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.Default()
	if o.cfg != nil {
		cfg = *o.cfg
	} else if loaded, err := config.Load(""); err == nil {
		cfg = loaded
	} else {
		log.Warn("camera config from environment ignored", "error", err)
	}

	if width <= 0 || height <= 0 {
		width, height = cfg.Metrics()
	}
	if framerate <= 0 {
		framerate = cfg.FPS()
	}

	drv := o.drv
	if drv == nil {
		d, err := driver.Lookup(cfg.Driver, driver.Options{Filename: cfg.Filename})
		if err != nil {
			return nil, &OpenError{Code: CodeDeviceOpenFailure, Index: index, Driver: cfg.Driver, Err: err}
		}
		drv = d
	}

	if index < 0 {
		return nil, &OpenError{Code: CodeCameraNotFound, Index: index, Driver: drv.Name()}
	}
	count, err := drv.Count()
	switch {
	case err == nil:
		debug.Log("Found %d camera(s) with driver %s\n", count, drv.Name())
		if index >= count {
			return nil, &OpenError{Code: CodeCameraNotFound, Index: index, Driver: drv.Name()}
		}
	case errors.Is(err, driver.ErrCountUnsupported):
	case errors.Is(err, driver.ErrUnavailable):
		log.Warn("camera driver unavailable", "index", index, "driver", drv.Name(), "error", err)
		return nil, &OpenError{Code: CodeDeviceOpenFailure, Index: index, Driver: drv.Name(), Err: err}
	default:
		return nil, &OpenError{Code: CodeCameraNotFound, Index: index, Driver: drv.Name(), Err: err}
	}

	debug.Log("Opening camera %d with %dx%d @ %d fps\n", index, width, height, framerate)
	dev, err := drv.Open(index, driver.Mode{Width: width, Height: height, Framerate: framerate})
	if err != nil {
		log.Warn("failed to open camera", "index", index, "driver", drv.Name(), "error", err)
		return nil, &OpenError{Code: CodeDeviceOpenFailure, Index: index, Driver: drv.Name(), Err: err}
	}

	focal := variant.FocalLength()
	c := &Camera{
		id:      uuid.New(),
		index:   index,
		variant: variant,
		drv:     drv,
		dev:     dev,
		mode:    dev.Mode(),
		focalX:  focal,
		focalY:  focal,
	}
	c.logger = log.With("camera_id", c.id.String(), "index", index, "driver", drv.Name())
	c.logger.Info("camera opened",
		"width", c.mode.Width,
		"height", c.mode.Height,
		"fps", c.mode.Framerate,
		"variant", variant.String(),
	)
	return c, nil
}

// Acquire reads the next frame and conditions it.
//
// When the driver times out, New is false and the image holds the previous
// frame, conditioned with the current settings.
func (c *Camera) Acquire() (Frame, error) {
	if c == nil || c.closed {
		return Frame{}, ErrClosed
	}

	f, err := c.dev.Read()
	if err != nil {
		return Frame{}, fmt.Errorf("acquire from camera %d: %w", c.index, err)
	}
	if !f.New {
		debug.FrameLog("camera %d: no new frame\n", c.index)
	}

	img, err := c.condition(f.Image)
	if err != nil {
		return Frame{}, fmt.Errorf("condition frame from camera %d: %w", c.index, err)
	}
	f.Image = img
	return f, nil
}

// SetDeinterlace enables or disables deinterlacing. Safe on a nil Camera.
func (c *Camera) SetDeinterlace(enabled bool) {
	if c == nil {
		return
	}
	c.deinterlace = enabled
}

// SetParameters applies sensor settings on a best-effort basis.
func (c *Camera) SetParameters(p driver.Parameters) error {
	if c == nil || c.closed {
		return ErrClosed
	}
	if err := c.dev.SetParameters(p); err != nil {
		return fmt.Errorf("set parameters on camera %d: %w", c.index, err)
	}
	c.logger.Debug("camera parameters applied",
		"auto_exposure", p.AutoExposure,
		"auto_gain", p.AutoGain,
		"auto_wb", p.AutoWhiteBalance,
		"exposure", p.Exposure,
		"gain", p.Gain,
	)
	return nil
}

// Close releases the device and all buffers. Safe to call more than once and
// on a nil Camera.
func (c *Camera) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true

	c.maps.Close()
	c.maps = nil
	if c.undistorted != nil {
		c.undistorted.Close()
		c.undistorted = nil
	}
	err := c.dev.Close()
	c.logger.Info("camera closed")
	return err
}

// ID returns the unique ID assigned when the camera was opened.
func (c *Camera) ID() uuid.UUID { return c.id }

// Index returns the driver index of the camera.
func (c *Camera) Index() int { return c.index }

// Width returns the negotiated frame width.
func (c *Camera) Width() int { return c.mode.Width }

// Height returns the negotiated frame height.
func (c *Camera) Height() int { return c.mode.Height }

// Framerate returns the negotiated framerate.
func (c *Camera) Framerate() int { return c.mode.Framerate }

// FocalLength returns the horizontal and vertical focal lengths in pixels.
func (c *Camera) FocalLength() (x, y float64) { return c.focalX, c.focalY }

// Variant returns the lens variant given to Open.
func (c *Camera) Variant() Variant { return c.variant }

// Deinterlace reports whether deinterlacing is enabled.
func (c *Camera) Deinterlace() bool { return c != nil && c.deinterlace }

// Calibrated reports whether undistortion maps are loaded.
func (c *Camera) Calibrated() bool { return c != nil && c.maps != nil }

// DriverName returns the name of the driver the camera was opened with.
func (c *Camera) DriverName() string { return c.drv.Name() }
