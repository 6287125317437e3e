package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	cannyEdge        = 255
	tan22_5          = 0.4142135623730950
	tan67_5          = 2.4142135623730950
	minCannyAperture = 3
	maxCannyAperture = 7
)

// Canny returns a binary edge map of img: 255 on edges, 0 elsewhere. When sigma > 0 the image is
// first smoothed with a gaussian of that sigma. Gradients come from Sobel kernels of the given
// aperture (3, 5 or 7) with an L1 magnitude. Pixels pass non-maximum suppression when they peak
// along the gradient direction, are kept outright above high, and are kept above low when
// connected to a kept pixel. The thresholds may be given in either order.
func Canny(img *GrayBuffer, low, high float64, aperture int, sigma float64) (*GrayBuffer, error) {
	if aperture < minCannyAperture || aperture > maxCannyAperture || aperture%2 == 0 {
		return nil, errors.Errorf("canny aperture must be 3, 5 or 7, got %d", aperture)
	}
	if low > high {
		low, high = high, low
	}
	if img.Width == 0 || img.Height == 0 {
		return NewGrayBuffer(img.Width, img.Height), nil
	}

	if sigma > 0 {
		img = GaussianSmooth(img, sigma)
	}
	dx, dy := SobelGradients(img, aperture)
	w, h := img.Width, img.Height

	mag := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mag.Set(y, x, math.Abs(dx.At(y, x))+math.Abs(dy.At(y, x)))
		}
	}

	// 0: not an edge, 1: weak candidate, 2: strong edge
	state := make([]uint8, w*h)
	var stack []int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := mag.At(y, x)
			if m <= low {
				continue
			}
			gx, gy := dx.At(y, x), dy.At(y, x)
			ax, ay := math.Abs(gx), math.Abs(gy)

			var m1, m2 float64
			switch {
			case ay <= ax*tan22_5:
				m1, m2 = mag.At(y, x-1), mag.At(y, x+1)
			case ay >= ax*tan67_5:
				m1, m2 = mag.At(y-1, x), mag.At(y+1, x)
			case gx*gy > 0:
				m1, m2 = mag.At(y-1, x-1), mag.At(y+1, x+1)
			default:
				m1, m2 = mag.At(y-1, x+1), mag.At(y+1, x-1)
			}
			if m <= m1 || m < m2 {
				continue
			}
			idx := y*w + x
			if m > high {
				state[idx] = 2
				stack = append(stack, idx)
			} else {
				state[idx] = 1
			}
		}
	}

	// hysteresis
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%w, idx/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				n := ny*w + nx
				if state[n] == 1 {
					state[n] = 2
					stack = append(stack, n)
				}
			}
		}
	}

	out := NewGrayBuffer(w, h)
	for i, s := range state {
		if s == 2 {
			out.Pix[i] = cannyEdge
		}
	}
	return out, nil
}

// SobelGradients returns the horizontal and vertical Sobel derivatives of img as height x width
// matrices. Borders are reflected without repeating the edge pixel. The aperture must be 3, 5
// or 7 and the image must not be empty.
func SobelGradients(img *GrayBuffer, aperture int) (dx, dy *mat.Dense) {
	deriv, smooth := sobelKernels(aperture)
	w, h := img.Width, img.Height

	src := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x, v := range img.Row(y) {
			src.Set(y, x, float64(v))
		}
	}
	dx = convolveSeparable(src, deriv, smooth)
	dy = convolveSeparable(src, smooth, deriv)
	return dx, dy
}

// sobelKernels returns the 1D derivative and smoothing factors of a Sobel kernel.
func sobelKernels(aperture int) (deriv, smooth []float64) {
	smooth = binomial(aperture)
	base := binomial(aperture - 2)
	deriv = make([]float64, aperture)
	// convolve base with [-1, 0, 1]
	for i, b := range base {
		deriv[i] -= b
		deriv[i+2] += b
	}
	return deriv, smooth
}

// binomial returns row n-1 of Pascal's triangle.
func binomial(n int) []float64 {
	row := []float64{1}
	for len(row) < n {
		next := make([]float64, len(row)+1)
		for i, v := range row {
			next[i] += v
			next[i+1] += v
		}
		row = next
	}
	return row
}

// convolveSeparable applies the horizontal kernel kx then the vertical kernel ky.
func convolveSeparable(src *mat.Dense, kx, ky []float64) *mat.Dense {
	h, w := src.Dims()
	rx, ry := len(kx)/2, len(ky)/2

	tmp := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, c := range kx {
				sum += c * src.At(y, reflect101(x+k-rx, w))
			}
			tmp.Set(y, x, sum)
		}
	}

	out := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, c := range ky {
				sum += c * tmp.At(reflect101(y+k-ry, h), x)
			}
			out.Set(y, x, sum)
		}
	}
	return out
}

// reflect101 maps an out of range index back inside [0, n): -1 maps to 1, n maps to n-2.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
