package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// ColorizeDepth renders a row-major depth map as a blue to green ramp, nearest in blue. Pixels
// that are NaN or not positive are left black. The ramp spans the valid depths in the map.
func ColorizeDepth(depth []float64, width, height int) (*image.NRGBA, error) {
	if len(depth) != width*height {
		return nil, errors.Wrapf(ErrDimensionMismatch, "depth map has %d values for %dx%d", len(depth), width, height)
	}
	minDepth, maxDepth := math.Inf(1), math.Inf(-1)
	for _, z := range depth {
		if !validDepth(z) {
			continue
		}
		minDepth = math.Min(minDepth, z)
		maxDepth = math.Max(maxDepth, z)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	span := maxDepth - minDepth
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			z := depth[y*width+x]
			if !validDepth(z) {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
				continue
			}
			ratio := 0.0
			if span > 0 {
				ratio = (z - minDepth) / span
			}
			r, g, b := colorful.Hsv(240-90*ratio, 1, 1).RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}

func validDepth(z float64) bool {
	return !math.IsNaN(z) && z > 0
}
