// Package frame provides strided views and resampling over packed pixel buffers.
package frame

import (
	"errors"
	"fmt"
)

// ErrBounds is returned when a view or destination does not fit its buffer.
var ErrBounds = errors.New("frame: view out of bounds")

// RowView is a read-only view of rows inside a packed pixel buffer.
// Row i starts at Offset + i*Stride and is RowBytes long.
type RowView struct {
	data     []byte
	Offset   int
	Stride   int
	Rows     int
	RowBytes int
}

// NewRowView creates a view and checks that every row lies inside data.
func NewRowView(data []byte, offset, stride, rows, rowBytes int) (RowView, error) {
	v := RowView{data: data, Offset: offset, Stride: stride, Rows: rows, RowBytes: rowBytes}
	if offset < 0 || stride < rowBytes || rows < 0 || rowBytes < 0 {
		return RowView{}, fmt.Errorf("%w: offset=%d stride=%d rows=%d row=%d", ErrBounds, offset, stride, rows, rowBytes)
	}
	if rows > 0 && offset+(rows-1)*stride+rowBytes > len(data) {
		return RowView{}, fmt.Errorf("%w: %d rows of %d bytes at stride %d exceed %d bytes",
			ErrBounds, rows, rowBytes, stride, len(data))
	}
	return v, nil
}

// Row returns row i. The returned slice aliases the underlying buffer and must
// not be written.
func (v RowView) Row(i int) []byte {
	start := v.Offset + i*v.Stride
	return v.data[start : start+v.RowBytes : start+v.RowBytes]
}

// OddRows views rows 1, 3, 5, ... of a frame with the given row pitch.
// The result has height/2 rows; the frame itself is left untouched.
func OddRows(data []byte, pitch, height, rowBytes int) (RowView, error) {
	return NewRowView(data, pitch, 2*pitch, height/2, rowBytes)
}
