package camera

import (
	"fmt"
	"strings"
)

// Variant identifies the lens fitted to a PS3 Eye.
type Variant int

const (
	// Unknown is treated like PS3EyeBlueDot.
	Unknown Variant = iota

	// PS3EyeBlueDot is the 75 degree lens setting.
	PS3EyeBlueDot

	// PS3EyeRedDot is the 56 degree lens setting.
	PS3EyeRedDot
)

// Focal lengths in pixels at 640x480.
const (
	FocalLengthBlueDot = 554.2563
	FocalLengthRedDot  = 776.3782
)

// FocalLength returns the nominal focal length of the lens.
func (v Variant) FocalLength() float64 {
	if v == PS3EyeRedDot {
		return FocalLengthRedDot
	}
	return FocalLengthBlueDot
}

func (v Variant) String() string {
	switch v {
	case PS3EyeBlueDot:
		return "blue"
	case PS3EyeRedDot:
		return "red"
	default:
		return "unknown"
	}
}

// ParseVariant accepts "blue", "red" or "unknown".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blue", "bluedot", "blue-dot":
		return PS3EyeBlueDot, nil
	case "red", "reddot", "red-dot":
		return PS3EyeRedDot, nil
	case "", "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown camera variant %q", s)
}
