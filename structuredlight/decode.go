package structuredlight

import (
	"github.com/pkg/errors"

	"go.viam.com/lightscan/rimage"
)

// Invalid marks a camera pixel without a projector correspondence.
const Invalid = -1

// ErrSequenceLength is returned when a capture does not hold one frame per projected image.
var ErrSequenceLength = errors.New("captured sequence does not match the gray codes")

// Correspondence maps every camera pixel, in row-major order, to the projector column and row
// lighting it. Pixels outside Mask hold Invalid in both maps.
type Correspondence struct {
	Width, Height int
	Cols, Rows    []int
	Mask          []bool
}

// At returns the projector column and row seen at camera pixel (x, y).
func (c *Correspondence) At(x, y int) (col, row int, ok bool) {
	i := y*c.Width + x
	return c.Cols[i], c.Rows[i], c.Mask[i]
}

// ValidCount returns the number of pixels with a correspondence.
func (c *Correspondence) ValidCount() int {
	return countTrue(c.Mask)
}

// DecodeGrayCodes recovers the projector column and row seen by every camera pixel from a
// captured sequence: frames[2k] was lit by codes.Patterns[k] and frames[2k+1] by its inverse.
// A pixel is kept only when every bit plane shows at least params.Thresh of contrast and the
// decoded values fall on the projector.
func DecodeGrayCodes(frames []*rimage.GrayBuffer, codes *GrayCodes, params Params) (*Correspondence, error) {
	if len(frames) != codes.SequenceLength() {
		return nil, errors.Wrapf(ErrSequenceLength, "got %d frames, want %d", len(frames), codes.SequenceLength())
	}
	for _, f := range frames[1:] {
		if !f.SameSize(frames[0]) {
			return nil, errors.Wrap(rimage.ErrDimensionMismatch, "captured frames differ in size")
		}
	}
	width, height := frames[0].Width, frames[0].Height
	corr := &Correspondence{
		Width:  width,
		Height: height,
		Cols:   make([]int, width*height),
		Rows:   make([]int, width*height),
		Mask:   make([]bool, width*height),
	}
	for i := range corr.Mask {
		corr.Mask[i] = true
	}

	decodePlanes(frames, 1, codes.NCols, params.Thresh, corr.Cols, corr.Mask)
	decodePlanes(frames, 1+codes.NCols, codes.NRows, params.Thresh, corr.Rows, corr.Mask)

	for i := range corr.Mask {
		corr.Cols[i] -= codes.ColShift
		corr.Rows[i] -= codes.RowShift
		if corr.Cols[i] < 0 || corr.Cols[i] >= codes.Width || corr.Rows[i] < 0 || corr.Rows[i] >= codes.Height {
			corr.Mask[i] = false
		}
		if !corr.Mask[i] {
			corr.Cols[i] = Invalid
			corr.Rows[i] = Invalid
		}
	}
	return corr, nil
}

// decodePlanes accumulates n Gray-coded bit planes, starting at pattern first, into values.
func decodePlanes(frames []*rimage.GrayBuffer, first, n, thresh int, values []int, mask []bool) {
	width := frames[0].Width
	// the running binary bit, undoing the Gray code one plane at a time
	bit := make([]bool, len(values))
	for i := 0; i < n; i++ {
		code, inverse := frames[2*(first+i)], frames[2*(first+i)+1]
		weight := 1 << (n - i - 1)
		for y := 0; y < code.Height; y++ {
			a, b := code.Row(y), inverse.Row(y)
			for x := 0; x < width; x++ {
				idx := y*width + x
				va, vb := int(a[x]), int(b[x])
				if abs(va-vb) < thresh {
					mask[idx] = false
				}
				bit[idx] = bit[idx] != (va >= vb)
				if bit[idx] {
					values[idx] += weight
				}
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
