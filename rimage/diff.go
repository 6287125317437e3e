package rimage

import "github.com/pkg/errors"

// DefaultDiffOffset is added to every temporal difference so that small negative values wrap
// to large ones and stand out to the laser locator.
const DefaultDiffOffset uint8 = 10

// TemporalDiff computes the shadow difference of two successive grayscale frames. Each output
// pixel is cur minus the midpoint of the pair's dynamic range, truncated to an integer, plus
// offset, wrapped modulo 256.
func TemporalDiff(cur, prev *GrayBuffer, offset uint8) (*GrayBuffer, error) {
	return temporalDiffInto(nil, cur, prev, offset)
}

func temporalDiffInto(dst, cur, prev *GrayBuffer, offset uint8) (*GrayBuffer, error) {
	if !cur.SameSize(prev) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "current frame is %dx%d, previous is %dx%d",
			cur.Width, cur.Height, prev.Width, prev.Height)
	}
	if dst == nil || !dst.SameSize(cur) {
		dst = NewGrayBuffer(cur.Width, cur.Height)
	}
	for y := 0; y < cur.Height; y++ {
		c, p, out := cur.Row(y), prev.Row(y), dst.Row(y)
		for x := range out {
			lo, hi := c[x], p[x]
			if lo > hi {
				lo, hi = hi, lo
			}
			avg := (float32(lo) + float32(hi)) / 2
			diff := int(float32(c[x]) - avg)
			out[x] = uint8((diff + int(offset)) & 0xFF)
		}
	}
	return dst, nil
}
