//go:build !windows

package driver

// CLEye is only available on Windows.
type CLEye struct{}

// Name implements Driver.
func (d *CLEye) Name() string { return "cleye" }

// Count implements Driver.
func (d *CLEye) Count() (int, error) { return 0, nil }

// Open implements Driver.
func (d *CLEye) Open(index int, mode Mode) (Device, error) {
	return nil, ErrUnavailable
}
