//go:build !windows

package driver

import (
	"errors"
	"testing"
)

func TestCLEye_Unavailable(t *testing.T) {
	d := &CLEye{}
	n, err := d.Count()
	if err != nil || n != 0 {
		t.Errorf("Count() = %d, %v; want 0, nil", n, err)
	}
	if _, err := d.Open(0, Mode{Width: 640, Height: 480}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open() error = %v, want ErrUnavailable", err)
	}
}
