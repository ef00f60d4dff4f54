//go:build linux

package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYUYVStride(t *testing.T) {
	tests := []struct {
		name          string
		n, w, h       int
		want          int
		wantAvailable bool
	}{
		{"exact", 2 * 640 * 480, 640, 480, 1280, true},
		{"padded rows", 1344 * 480, 640, 480, 1344, true},
		{"truncated transfer", 2*640*480 - 1, 640, 480, 0, false},
		{"half frame", 640 * 480, 640, 480, 0, false},
		{"empty", 0, 640, 480, 0, false},
		{"zero height", 16, 4, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := yuyvStride(tt.n, tt.w, tt.h)
			assert.Equal(t, tt.wantAvailable, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
