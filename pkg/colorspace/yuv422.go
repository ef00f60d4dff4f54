// Package colorspace converts raw camera buffers into packed BGR frames.
//
// The YUV 4:2:2 kernel reproduces the fixed-point ITU-R BT.601 conversion used by
// the PS3 Eye driver bit for bit, so frames decoded here match frames decoded by
// OpenCV's own YUYV path.
package colorspace

import (
	"errors"
	"fmt"
)

// ITU-R BT.601 fixed-point coefficients, scaled by 1<<bt601Shift.
const (
	bt601CY    = 1220542
	bt601CUB   = 2116026
	bt601CUG   = -409993
	bt601CVG   = -852492
	bt601CVR   = 1673527
	bt601Shift = 20

	roundBias = 1 << (bt601Shift - 1)
)

// Byte offsets inside one YUYV macro-pixel (Y0 U Y1 V).
const (
	yuyvY0 = 0
	yuyvU  = 1
	yuyvY1 = 2
	yuyvV  = 3
)

var (
	// ErrOddWidth is returned when a YUV 4:2:2 frame has an odd width.
	// Two luma samples share one chroma pair, so odd widths are rejected.
	ErrOddWidth = errors.New("colorspace: width must be even")

	// ErrInvalidSize is returned for non-positive frame dimensions.
	ErrInvalidSize = errors.New("colorspace: invalid frame size")

	// ErrShortBuffer is returned when a stride or buffer cannot hold the frame.
	ErrShortBuffer = errors.New("colorspace: buffer too small")
)

// YUV422ToBGR converts a packed YUYV buffer into packed BGR24.
//
// src rows are stride bytes apart (stride may include padding past 2*width).
// dst must hold width*height*3 bytes and is written with rows packed.
// src and dst must not alias.
func YUV422ToBGR(src []byte, stride int, dst []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if width%2 != 0 {
		return fmt.Errorf("%w: %d", ErrOddWidth, width)
	}
	rowBytes := 2 * width
	if stride < rowBytes {
		return fmt.Errorf("%w: stride %d < %d", ErrShortBuffer, stride, rowBytes)
	}
	if need := stride*(height-1) + rowBytes; len(src) < need {
		return fmt.Errorf("%w: source has %d bytes, need %d", ErrShortBuffer, len(src), need)
	}
	if need := width * height * 3; len(dst) < need {
		return fmt.Errorf("%w: destination has %d bytes, need %d", ErrShortBuffer, len(dst), need)
	}

	dstRow := width * 3
	for j := 0; j < height; j++ {
		in := src[j*stride : j*stride+rowBytes]
		out := dst[j*dstRow : (j+1)*dstRow]

		for i, o := 0, 0; i < rowBytes; i, o = i+4, o+6 {
			u := int(in[i+yuyvU]) - 128
			v := int(in[i+yuyvV]) - 128

			ruv := roundBias + bt601CVR*v
			guv := roundBias + bt601CVG*v + bt601CUG*u
			buv := roundBias + bt601CUB*u

			y00 := max(0, int(in[i+yuyvY0])-16) * bt601CY
			out[o+0] = saturate((y00 + buv) >> bt601Shift)
			out[o+1] = saturate((y00 + guv) >> bt601Shift)
			out[o+2] = saturate((y00 + ruv) >> bt601Shift)

			y01 := max(0, int(in[i+yuyvY1])-16) * bt601CY
			out[o+3] = saturate((y01 + buv) >> bt601Shift)
			out[o+4] = saturate((y01 + guv) >> bt601Shift)
			out[o+5] = saturate((y01 + ruv) >> bt601Shift)
		}
	}
	return nil
}

// ConvertPixel converts one YUYV macro-pixel into two BGR pixels.
func ConvertPixel(y0, u, y1, v byte) (bgr0, bgr1 [3]byte) {
	var out [6]byte
	// A 2x1 frame cannot fail validation.
	_ = YUV422ToBGR([]byte{y0, u, y1, v}, 4, out[:], 2, 1)
	copy(bgr0[:], out[0:3])
	copy(bgr1[:], out[3:6])
	return bgr0, bgr1
}

// saturate clamps v to [0, 255].
func saturate(v int) byte {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	default:
		return byte(v)
	}
}
