package frame

import (
	"bytes"
	"errors"
	"testing"
)

// stripes builds a packed frame whose rows alternate between even and odd.
func stripes(width, height, channels int, even, odd byte) []byte {
	pitch := width * channels
	buf := make([]byte, pitch*height)
	for y := 0; y < height; y++ {
		fill := even
		if y%2 == 1 {
			fill = odd
		}
		for i := 0; i < pitch; i++ {
			buf[y*pitch+i] = fill
		}
	}
	return buf
}

func TestOddRows(t *testing.T) {
	const width, height, channels = 4, 6, 3
	pitch := width * channels
	buf := stripes(width, height, channels, 255, 0)
	orig := append([]byte(nil), buf...)

	view, err := OddRows(buf, pitch, height, pitch)
	if err != nil {
		t.Fatalf("OddRows: %v", err)
	}
	if view.Rows != height/2 {
		t.Errorf("Rows: got %d, want %d", view.Rows, height/2)
	}
	for i := 0; i < view.Rows; i++ {
		for _, b := range view.Row(i) {
			if b != 0 {
				t.Fatalf("row %d is not an odd (black) row", i)
			}
		}
	}
	if !bytes.Equal(buf, orig) {
		t.Error("OddRows modified the frame")
	}
}

func TestOddRows_OddHeight(t *testing.T) {
	view, err := OddRows(make([]byte, 5*4), 4, 5, 4)
	if err != nil {
		t.Fatalf("OddRows: %v", err)
	}
	if view.Rows != 2 {
		t.Errorf("Rows: got %d, want 2", view.Rows)
	}
}

func TestNewRowView_Bounds(t *testing.T) {
	tests := []struct {
		name                          string
		size                          int
		offset, stride, rows, rowSize int
	}{
		{name: "past end", size: 10, offset: 0, stride: 4, rows: 3, rowSize: 4},
		{name: "negative offset", size: 10, offset: -1, stride: 4, rows: 1, rowSize: 4},
		{name: "stride below row", size: 10, offset: 0, stride: 2, rows: 1, rowSize: 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRowView(make([]byte, tc.size), tc.offset, tc.stride, tc.rows, tc.rowSize)
			if !errors.Is(err, ErrBounds) {
				t.Errorf("got %v, want ErrBounds", err)
			}
		})
	}
}

func TestUpsampleNearest_Deinterlace(t *testing.T) {
	tests := []struct {
		name      string
		even, odd byte
		want      byte
	}{
		{name: "odd rows black", even: 255, odd: 0, want: 0},
		{name: "odd rows white", even: 0, odd: 255, want: 255},
	}

	const width, height, channels = 8, 6, 3
	pitch := width * channels

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := stripes(width, height, channels, tc.even, tc.odd)
			dup := append([]byte(nil), src...)

			view, err := OddRows(dup, pitch, height, pitch)
			if err != nil {
				t.Fatalf("OddRows: %v", err)
			}
			if err := UpsampleNearest(view, src, pitch, height); err != nil {
				t.Fatalf("UpsampleNearest: %v", err)
			}

			if len(src) != pitch*height {
				t.Fatalf("frame size changed: %d", len(src))
			}
			for i, b := range src {
				if b != tc.want {
					t.Fatalf("byte %d (row %d): got %d, want %d", i, i/pitch, b, tc.want)
				}
			}
		})
	}
}

func TestUpsampleNearest_DuplicatesRows(t *testing.T) {
	src := []byte{1, 1, 2, 2, 3, 3}
	view, err := NewRowView(src, 0, 2, 3, 2)
	if err != nil {
		t.Fatalf("NewRowView: %v", err)
	}

	dst := make([]byte, 12)
	if err := UpsampleNearest(view, dst, 2, 6); err != nil {
		t.Fatalf("UpsampleNearest: %v", err)
	}

	want := []byte{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}
	if !bytes.Equal(dst, want) {
		t.Errorf("got %v, want %v", dst, want)
	}
}

func TestUpsampleNearest_Errors(t *testing.T) {
	view, _ := NewRowView(make([]byte, 8), 0, 4, 2, 4)

	if err := UpsampleNearest(view, make([]byte, 8), 4, 4); !errors.Is(err, ErrBounds) {
		t.Errorf("short destination: got %v, want ErrBounds", err)
	}
	if err := UpsampleNearest(RowView{}, make([]byte, 8), 4, 2); !errors.Is(err, ErrBounds) {
		t.Errorf("empty view: got %v, want ErrBounds", err)
	}
}
