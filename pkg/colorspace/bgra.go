package colorspace

import "fmt"

// BGRAToBGR drops the alpha channel of a packed BGRA buffer.
//
// Channels 0, 1 and 2 are copied to the same positions in dst; src rows are
// srcStride bytes apart and dst rows are packed (width*3).
func BGRAToBGR(src []byte, srcStride int, dst []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	rowBytes := 4 * width
	if srcStride < rowBytes {
		return fmt.Errorf("%w: stride %d < %d", ErrShortBuffer, srcStride, rowBytes)
	}
	if need := srcStride*(height-1) + rowBytes; len(src) < need {
		return fmt.Errorf("%w: source has %d bytes, need %d", ErrShortBuffer, len(src), need)
	}
	if need := width * height * 3; len(dst) < need {
		return fmt.Errorf("%w: destination has %d bytes, need %d", ErrShortBuffer, len(dst), need)
	}

	dstRow := width * 3
	for j := 0; j < height; j++ {
		in := src[j*srcStride : j*srcStride+rowBytes]
		out := dst[j*dstRow : (j+1)*dstRow]
		for i, o := 0, 0; i < rowBytes; i, o = i+4, o+3 {
			out[o+0] = in[i+0]
			out[o+1] = in[i+1]
			out[o+2] = in[i+2]
		}
	}
	return nil
}
