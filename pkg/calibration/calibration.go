// Package calibration loads lens calibration data stored in OpenCV's
// persistence formats (XML written by cvSave, or OpenCV YAML).
//
// A calibration is a 3x3 camera matrix
//
//	| fx  0 cx |
//	|  0 fy cy |
//	|  0  0  1 |
//
// plus 4, 5, 8, 12 or 14 distortion coefficients (k1 k2 p1 p2 [k3 ...]).
package calibration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrMissing is returned when a calibration file does not exist.
	ErrMissing = errors.New("calibration: file not found")

	// ErrMalformed is returned when a calibration file cannot be parsed
	// or holds a matrix of the wrong shape.
	ErrMalformed = errors.New("calibration: malformed file")
)

// Matrix is a dense row-major matrix read from an OpenCV storage file.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// At returns element (r, c).
func (m Matrix) At(r, c int) float64 {
	return m.Data[r*m.Cols+c]
}

func (m Matrix) validate() error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("%w: matrix is %dx%d", ErrMalformed, m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%w: %dx%d matrix has %d values", ErrMalformed, m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

// Calibration holds the camera intrinsics and lens distortion coefficients.
type Calibration struct {
	Camera     Matrix
	Distortion []float64
}

// FocalLength returns (fx, fy) from the camera matrix diagonal.
func (c *Calibration) FocalLength() (fx, fy float64) {
	return c.Camera.At(0, 0), c.Camera.At(1, 1)
}

// PrincipalPoint returns (cx, cy).
func (c *Calibration) PrincipalPoint() (cx, cy float64) {
	return c.Camera.At(0, 2), c.Camera.At(1, 2)
}

// Load reads the camera matrix and distortion coefficients from two files.
// Both must parse for the calibration to be returned.
func Load(intrinsicsPath, distortionPath string) (*Calibration, error) {
	camera, err := ReadMatrix(intrinsicsPath)
	if err != nil {
		return nil, fmt.Errorf("intrinsics: %w", err)
	}
	if err := validateCamera(camera); err != nil {
		return nil, fmt.Errorf("intrinsics: %w", err)
	}

	dist, err := ReadMatrix(distortionPath)
	if err != nil {
		return nil, fmt.Errorf("distortion: %w", err)
	}
	if dist.Rows != 1 && dist.Cols != 1 {
		return nil, fmt.Errorf("distortion: %w: coefficients must be a vector, got %dx%d",
			ErrMalformed, dist.Rows, dist.Cols)
	}
	if err := validateDistortion(dist.Data); err != nil {
		return nil, fmt.Errorf("distortion: %w", err)
	}

	return &Calibration{Camera: camera, Distortion: dist.Data}, nil
}

// Validate checks the matrix shape and the coefficient count.
func (c *Calibration) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: no calibration", ErrMalformed)
	}
	if err := c.Camera.validate(); err != nil {
		return err
	}
	if err := validateCamera(c.Camera); err != nil {
		return err
	}
	return validateDistortion(c.Distortion)
}

func validateCamera(m Matrix) error {
	if m.Rows != 3 || m.Cols != 3 {
		return fmt.Errorf("%w: camera matrix must be 3x3, got %dx%d", ErrMalformed, m.Rows, m.Cols)
	}
	return nil
}

func validateDistortion(d []float64) error {
	switch len(d) {
	case 4, 5, 8, 12, 14:
		return nil
	}
	return fmt.Errorf("%w: %d distortion coefficients", ErrMalformed, len(d))
}

// ReadMatrix reads the first matrix stored in an OpenCV XML or YAML file.
func ReadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Matrix{}, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return Matrix{}, fmt.Errorf("read %s: %w", path, err)
	}

	var m Matrix
	switch detectFormat(path, data) {
	case formatXML:
		m, err = parseXML(data)
	case formatYAML:
		m, err = parseYAML(data)
	default:
		return Matrix{}, fmt.Errorf("%w: %s: unknown storage format", ErrMalformed, path)
	}
	if err != nil {
		return Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Save writes c as two OpenCV XML files.
func Save(intrinsicsPath, distortionPath string, c *Calibration) error {
	if err := WriteMatrix(intrinsicsPath, "intrinsics", c.Camera); err != nil {
		return err
	}
	dist := Matrix{Rows: len(c.Distortion), Cols: 1, Data: c.Distortion}
	return WriteMatrix(distortionPath, "distortion", dist)
}

// WriteMatrix writes m under the given node name in OpenCV XML layout.
func WriteMatrix(path, name string, m Matrix) error {
	if err := m.validate(); err != nil {
		return err
	}
	data, err := encodeXML(name, m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
