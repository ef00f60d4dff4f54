//go:build !linux

package driver

// PS3Eye is only available on Linux.
type PS3Eye struct {
	Nodes func() ([]string, error)
}

// NewPS3Eye returns the PS3 Eye driver.
func NewPS3Eye() *PS3Eye { return &PS3Eye{} }

// Name implements Driver.
func (d *PS3Eye) Name() string { return "ps3eye" }

// Count implements Driver.
func (d *PS3Eye) Count() (int, error) {
	cams, err := ListPS3Eye()
	return len(cams), err
}

// Open implements Driver.
func (d *PS3Eye) Open(index int, mode Mode) (Device, error) {
	return nil, ErrUnavailable
}
