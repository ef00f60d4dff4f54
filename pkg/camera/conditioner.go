package camera

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-psmove/pkg/calibration"
	"github.com/teslashibe/go-psmove/pkg/frame"
)

// undistortMaps holds the remap tables. Both maps always exist together.
type undistortMaps struct {
	x, y gocv.Mat
}

// newUndistortMaps builds CV_32FC1 remap tables of the given size.
func newUndistortMaps(c *calibration.Calibration, width, height int) (*undistortMaps, error) {
	k := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer k.Close()
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			k.SetDoubleAt(r, col, c.Camera.At(r, col))
		}
	}

	d := gocv.NewMatWithSize(1, len(c.Distortion), gocv.MatTypeCV64F)
	defer d.Close()
	for i, v := range c.Distortion {
		d.SetDoubleAt(0, i, v)
	}

	rect := gocv.NewMat()
	defer rect.Close()

	m := &undistortMaps{x: gocv.NewMat(), y: gocv.NewMat()}
	gocv.InitUndistortRectifyMap(k, d, rect, k, image.Pt(width, height), int(gocv.MatTypeCV32F), m.x, m.y)
	if m.x.Empty() || m.y.Empty() {
		m.Close()
		return nil, fmt.Errorf("build undistortion maps: empty result for %dx%d", width, height)
	}
	return m, nil
}

// Close is safe on a nil receiver.
func (m *undistortMaps) Close() {
	if m == nil {
		return
	}
	m.x.Close()
	m.y.Close()
}

// condition runs deinterlacing and undistortion on img in place and returns
// the image to hand out.
func (c *Camera) condition(img *gocv.Mat) (*gocv.Mat, error) {
	if c.deinterlace {
		if err := deinterlace(img); err != nil {
			return nil, err
		}
	}
	if c.maps != nil {
		gocv.Remap(*img, c.undistorted, &c.maps.x, &c.maps.y,
			gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
		return c.undistorted, nil
	}
	return img, nil
}

// deinterlace replaces img with its odd rows, each doubled to restore the
// full height. Frames shorter than two rows are left alone.
func deinterlace(img *gocv.Mat) error {
	rows := img.Rows()
	if rows < 2 {
		return nil
	}

	dup := img.Clone()
	defer dup.Close()

	src, err := dup.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("deinterlace: %w", err)
	}
	dst, err := img.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("deinterlace: %w", err)
	}

	pitch := img.Step()
	view, err := frame.OddRows(src, pitch, rows, img.Cols()*img.Channels())
	if err != nil {
		return fmt.Errorf("deinterlace: %w", err)
	}
	return frame.UpsampleNearest(view, dst, pitch, rows)
}
