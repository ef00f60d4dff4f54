package driver

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// OpenCV captures through gocv.VideoCapture, either from a device index or
// from a recorded video file.
type OpenCV struct {
	// Filename, when set, replaces live capture with a video file.
	Filename string
}

// Native ranges used when forwarding parameters to the capture backend.
const (
	opencvExposureMax   = 255
	opencvGainMax       = 63
	opencvBalanceMax    = 255
	opencvContrastMax   = 255
	opencvBrightnessMax = 255
)

// Name implements Driver.
func (d *OpenCV) Name() string { return "opencv" }

// Count implements Driver. A video file counts as a single camera; OpenCV
// cannot enumerate live devices.
func (d *OpenCV) Count() (int, error) {
	if d.Filename != "" {
		return 1, nil
	}
	return 0, ErrCountUnsupported
}

// Open implements Driver. The requested mode is ignored for video files.
func (d *OpenCV) Open(index int, mode Mode) (Device, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if d.Filename != "" {
		capture, err = gocv.VideoCaptureFile(d.Filename)
	} else {
		capture, err = gocv.VideoCaptureDevice(index)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opencv index %d: %v", ErrNoDevice, index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: opencv index %d", ErrNoDevice, index)
	}

	if d.Filename == "" {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(mode.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(mode.Height))
		capture.Set(gocv.VideoCaptureFPS, float64(mode.Framerate))
	}

	negotiated := Mode{
		Width:     int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:    int(capture.Get(gocv.VideoCaptureFrameHeight)),
		Framerate: int(capture.Get(gocv.VideoCaptureFPS)),
	}
	if negotiated.Width <= 0 || negotiated.Height <= 0 {
		negotiated.Width, negotiated.Height = mode.Width, mode.Height
	}
	if negotiated.Framerate <= 0 {
		negotiated.Framerate = mode.Framerate
	}

	return &opencvDevice{
		capture: capture,
		mode:    negotiated,
		frame:   gocv.NewMatWithSize(negotiated.Height, negotiated.Width, gocv.MatTypeCV8UC3),
		raw:     gocv.NewMat(),
	}, nil
}

type opencvDevice struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	mode    Mode
	frame   gocv.Mat
	raw     gocv.Mat
	closed  bool
}

func (d *opencvDevice) Mode() Mode { return d.mode }

func (d *opencvDevice) Read() (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Frame{}, ErrClosed
	}

	grabbed := time.Now()
	if ok := d.capture.Read(&d.raw); !ok || d.raw.Empty() {
		return Frame{Image: &d.frame}, nil
	}
	retrieved := time.Now()

	switch d.raw.Channels() {
	case 4:
		gocv.CvtColor(d.raw, &d.frame, gocv.ColorBGRAToBGR)
	case 1:
		gocv.CvtColor(d.raw, &d.frame, gocv.ColorGrayToBGR)
	default:
		d.raw.CopyTo(&d.frame)
	}

	return Frame{Image: &d.frame, New: true, GrabbedAt: grabbed, RetrievedAt: retrieved}, nil
}

func (d *opencvDevice) SetParameters(p Parameters) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	c := d.capture
	c.Set(gocv.VideoCaptureAutoExposure, float64(boolInt(p.AutoExposure)))
	c.Set(gocv.VideoCaptureAutoWB, float64(boolInt(p.AutoWhiteBalance)))
	c.Set(gocv.VideoCaptureExposure, float64(Rescale(p.Exposure, opencvExposureMax)))
	if !p.AutoGain {
		c.Set(gocv.VideoCaptureGain, float64(Rescale(p.Gain, opencvGainMax)))
	}
	c.Set(gocv.VideoCaptureWhiteBalanceRedV, float64(Rescale(p.WhiteBalanceRed, opencvBalanceMax)))
	c.Set(gocv.VideoCaptureWhiteBalanceBlueU, float64(Rescale(p.WhiteBalanceBlue, opencvBalanceMax)))
	c.Set(gocv.VideoCaptureContrast, float64(Rescale(p.Contrast, opencvContrastMax)))
	c.Set(gocv.VideoCaptureBrightness, float64(Rescale(p.Brightness, opencvBrightnessMax)))
	return nil
}

func (d *opencvDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.raw.Close()
	d.frame.Close()
	return d.capture.Close()
}
