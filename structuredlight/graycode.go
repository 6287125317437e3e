package structuredlight

import (
	"math/bits"

	"github.com/pkg/errors"

	"go.viam.com/lightscan/rimage"
)

// GrayCodes are the patterns shown by the projector. Patterns[0] is all white, followed by NCols
// column bit planes (most significant first) and NRows row bit planes. Columns and rows are
// offset by ColShift and RowShift so that the code range is centered on the projector.
type GrayCodes struct {
	Width, Height      int
	NCols, NRows       int
	ColShift, RowShift int
	Patterns           []*rimage.GrayBuffer
}

// GenerateGrayCodes returns the column and row codes of a width x height projector.
func GenerateGrayCodes(width, height int) (*GrayCodes, error) {
	return generateGrayCodes(width, height, true, true)
}

// GrayCodes returns the codes of the projector, limited to the scanned directions.
func (p Params) GrayCodes() (*GrayCodes, error) {
	return generateGrayCodes(p.ProjWidth, p.ProjHeight, p.ScanCols, p.ScanRows)
}

// codeBits returns the number of bits needed for size values and the shift centering them.
func codeBits(size int) (int, int) {
	n := bits.Len(uint(size - 1))
	return n, ((1 << n) - size) / 2
}

func generateGrayCodes(width, height int, cols, rows bool) (*GrayCodes, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid projector size %dx%d", width, height)
	}
	codes := &GrayCodes{Width: width, Height: height}
	if cols {
		codes.NCols, codes.ColShift = codeBits(width)
	}
	if rows {
		codes.NRows, codes.RowShift = codeBits(height)
	}

	white := rimage.NewGrayBuffer(width, height)
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	codes.Patterns = append(codes.Patterns, white)

	for i := 0; i < codes.NCols; i++ {
		img := rimage.NewGrayBuffer(width, height)
		for x := 0; x < width; x++ {
			v := grayBit(x+codes.ColShift, codes.NCols, i)
			for y := 0; y < height; y++ {
				img.Set(x, y, v)
			}
		}
		codes.Patterns = append(codes.Patterns, img)
	}
	for i := 0; i < codes.NRows; i++ {
		img := rimage.NewGrayBuffer(width, height)
		for y := 0; y < height; y++ {
			v := grayBit(y+codes.RowShift, codes.NRows, i)
			row := img.Row(y)
			for x := range row {
				row[x] = v
			}
		}
		codes.Patterns = append(codes.Patterns, img)
	}
	return codes, nil
}

// grayBit returns 255 when bit i (counted from the most significant of n bits) of the Gray code
// of v is set.
func grayBit(v, n, i int) uint8 {
	gray := v ^ (v >> 1)
	if (gray>>(n-i-1))&1 == 1 {
		return 255
	}
	return 0
}

// SequenceLength is the number of frames a capture of these codes contains: every pattern
// followed by its inverse.
func (g *GrayCodes) SequenceLength() int {
	return 2 * len(g.Patterns)
}

// Sequence returns the images to project in capture order, each pattern followed by its inverse.
func (g *GrayCodes) Sequence() []*rimage.GrayBuffer {
	seq := make([]*rimage.GrayBuffer, 0, g.SequenceLength())
	for _, p := range g.Patterns {
		inv := rimage.NewGrayBuffer(p.Width, p.Height)
		for i, v := range p.Pix {
			inv.Pix[i] = 255 - v
		}
		seq = append(seq, p, inv)
	}
	return seq
}
