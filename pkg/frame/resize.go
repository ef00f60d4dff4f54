package frame

import "fmt"

// UpsampleNearest resizes src vertically to dstRows rows using nearest
// neighbour sampling and writes them into dst, dstStride bytes apart.
//
// Destination row y takes source row floor(y*src.Rows/dstRows). Rows are
// duplicated, never blended, so edges keep their full contrast.
func UpsampleNearest(src RowView, dst []byte, dstStride, dstRows int) error {
	if src.Rows <= 0 || dstRows <= 0 {
		return fmt.Errorf("%w: %d source rows, %d destination rows", ErrBounds, src.Rows, dstRows)
	}
	if dstStride < src.RowBytes || (dstRows-1)*dstStride+src.RowBytes > len(dst) {
		return fmt.Errorf("%w: destination of %d bytes cannot hold %d rows at stride %d",
			ErrBounds, len(dst), dstRows, dstStride)
	}

	for y := 0; y < dstRows; y++ {
		sy := y * src.Rows / dstRows
		if sy >= src.Rows {
			sy = src.Rows - 1
		}
		copy(dst[y*dstStride:y*dstStride+src.RowBytes], src.Row(sy))
	}
	return nil
}
