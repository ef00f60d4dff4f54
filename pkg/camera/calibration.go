package camera

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-psmove/pkg/calibration"
)

// LoadCalibration reads lens calibration files and enables undistortion.
//
// The maps are built at the negotiated resolution and the focal lengths are
// taken from the camera matrix. On failure the previous calibration stays in
// effect and the error is logged and returned.
func (c *Camera) LoadCalibration(intrinsicsPath, distortionPath string) error {
	if c == nil || c.closed {
		return ErrClosed
	}

	cal, maps, err := c.prepareCalibrationFiles(intrinsicsPath, distortionPath)
	if err != nil {
		return err
	}
	c.commitCalibration(cal, maps, [2]string{intrinsicsPath, distortionPath})
	return nil
}

// ApplyCalibration enables undistortion with an already parsed calibration.
func (c *Camera) ApplyCalibration(cal *calibration.Calibration) error {
	if c == nil || c.closed {
		return ErrClosed
	}

	maps, err := c.prepareCalibration(cal)
	if err != nil {
		return err
	}
	c.commitCalibration(cal, maps, [2]string{})
	return nil
}

// prepareCalibrationFiles parses the files and builds their maps without
// touching the camera.
func (c *Camera) prepareCalibrationFiles(intrinsicsPath, distortionPath string) (*calibration.Calibration, *undistortMaps, error) {
	cal, err := calibration.Load(intrinsicsPath, distortionPath)
	if err != nil {
		c.logger.Warn("no usable lens calibration", "intrinsics", intrinsicsPath, "distortion", distortionPath, "error", err)
		return nil, nil, err
	}
	maps, err := c.prepareCalibration(cal)
	if err != nil {
		return nil, nil, err
	}
	return cal, maps, nil
}

func (c *Camera) prepareCalibration(cal *calibration.Calibration) (*undistortMaps, error) {
	if err := cal.Validate(); err != nil {
		c.logger.Warn("lens calibration rejected", "error", err)
		return nil, err
	}

	maps, err := newUndistortMaps(cal, c.mode.Width, c.mode.Height)
	if err != nil {
		c.logger.Warn("lens calibration rejected", "error", err)
		return nil, fmt.Errorf("camera %d: %w", c.index, err)
	}
	return maps, nil
}

// commitCalibration swaps in maps and releases the previous tables.
func (c *Camera) commitCalibration(cal *calibration.Calibration, maps *undistortMaps, paths [2]string) {
	if c.undistorted == nil {
		m := gocv.NewMatWithSize(c.mode.Height, c.mode.Width, gocv.MatTypeCV8UC3)
		c.undistorted = &m
	}
	c.maps.Close()
	c.maps = maps
	c.calibPaths = paths
	c.focalX, c.focalY = cal.FocalLength()

	c.logger.Info("lens calibration loaded", "fx", c.focalX, "fy", c.focalY)
}

// ResetCalibration disables undistortion. Calling it again has no effect.
// The focal lengths keep their last calibrated values.
func (c *Camera) ResetCalibration() {
	if c == nil || c.maps == nil {
		return
	}
	c.maps.Close()
	c.maps = nil
	c.calibPaths = [2]string{}
	c.logger.Info("lens calibration reset")
}
