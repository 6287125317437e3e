package rimage

import (
	"testing"

	"go.viam.com/test"
)

func TestSobelKernels(t *testing.T) {
	deriv, smooth := sobelKernels(3)
	test.That(t, deriv, test.ShouldResemble, []float64{-1, 0, 1})
	test.That(t, smooth, test.ShouldResemble, []float64{1, 2, 1})

	deriv, smooth = sobelKernels(5)
	test.That(t, deriv, test.ShouldResemble, []float64{-1, -2, 0, 2, 1})
	test.That(t, smooth, test.ShouldResemble, []float64{1, 4, 6, 4, 1})

	deriv, smooth = sobelKernels(7)
	test.That(t, deriv, test.ShouldResemble, []float64{-1, -4, -5, 0, 5, 4, 1})
	test.That(t, smooth, test.ShouldResemble, []float64{1, 6, 15, 20, 15, 6, 1})
}

func TestReflect101(t *testing.T) {
	test.That(t, reflect101(-1, 5), test.ShouldEqual, 1)
	test.That(t, reflect101(-2, 5), test.ShouldEqual, 2)
	test.That(t, reflect101(5, 5), test.ShouldEqual, 3)
	test.That(t, reflect101(6, 5), test.ShouldEqual, 2)
	test.That(t, reflect101(2, 5), test.ShouldEqual, 2)
	test.That(t, reflect101(3, 1), test.ShouldEqual, 0)
}

// stepImage is dark left of column edge and bright from it on.
func stepImage(width, height, edge int) *GrayBuffer {
	g := NewGrayBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := edge; x < width; x++ {
			g.Set(x, y, 200)
		}
	}
	return g
}

func TestCanny(t *testing.T) {
	t.Run("vertical step", func(t *testing.T) {
		img := stepImage(20, 12, 10)
		dx, dy := SobelGradients(img, 3)
		test.That(t, dx.At(5, 9), test.ShouldEqual, 800)
		test.That(t, dx.At(5, 10), test.ShouldEqual, 800)
		test.That(t, dy.At(5, 9), test.ShouldEqual, 0)

		edges, err := Canny(img, 50, 100, 3, 0)
		test.That(t, err, test.ShouldBeNil)
		count := 0
		for y := 0; y < edges.Height; y++ {
			for x := 0; x < edges.Width; x++ {
				if edges.At(x, y) == 0 {
					continue
				}
				count++
				// ties along the gradient keep the first pixel
				test.That(t, x, test.ShouldEqual, 9)
			}
		}
		test.That(t, count, test.ShouldEqual, edges.Height-2)
	})

	t.Run("threshold order does not matter", func(t *testing.T) {
		img := stepImage(16, 8, 8)
		a, err := Canny(img, 100, 50, 5, 0)
		test.That(t, err, test.ShouldBeNil)
		b, err := Canny(img, 50, 100, 5, 0)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, a.Pix, test.ShouldResemble, b.Pix)
	})

	t.Run("weak edges need a strong neighbour", func(t *testing.T) {
		img := stepImage(20, 12, 10)
		// dx magnitude is 800 everywhere along the step
		edges, err := Canny(img, 500, 900, 3, 0)
		test.That(t, err, test.ShouldBeNil)
		for _, v := range edges.Pix {
			test.That(t, v, test.ShouldEqual, 0)
		}
	})

	t.Run("flat image", func(t *testing.T) {
		edges, err := Canny(grayOf(10, 10, 128), 10, 100, 7, 0)
		test.That(t, err, test.ShouldBeNil)
		for _, v := range edges.Pix {
			test.That(t, v, test.ShouldEqual, 0)
		}
	})

	t.Run("smoothing removes isolated noise", func(t *testing.T) {
		img := grayOf(20, 20, 0)
		img.Set(10, 10, 60)
		edges, err := Canny(img, 10, 100, 3, 0)
		test.That(t, err, test.ShouldBeNil)
		count := 0
		for _, v := range edges.Pix {
			if v != 0 {
				count++
			}
		}
		test.That(t, count, test.ShouldBeGreaterThan, 0)

		edges, err = Canny(img, 10, 100, 3, 2)
		test.That(t, err, test.ShouldBeNil)
		for _, v := range edges.Pix {
			test.That(t, v, test.ShouldEqual, 0)
		}
	})

	t.Run("bad aperture", func(t *testing.T) {
		for _, aperture := range []int{1, 4, 9} {
			_, err := Canny(grayOf(10, 10, 0), 10, 100, aperture, 0)
			test.That(t, err, test.ShouldNotBeNil)
		}
	})
}

func TestGaussianSmooth(t *testing.T) {
	img := grayOf(6, 6, 90)
	same := GaussianSmooth(img, 0)
	test.That(t, same.Pix, test.ShouldResemble, img.Pix)
	same.Set(0, 0, 1)
	test.That(t, img.At(0, 0), test.ShouldEqual, 90)

	blurred := GaussianSmooth(stepImage(10, 4, 5), 1.5)
	test.That(t, blurred.Width, test.ShouldEqual, 10)
	test.That(t, blurred.At(4, 2), test.ShouldBeGreaterThan, 0)
	test.That(t, blurred.At(5, 2), test.ShouldBeLessThan, 200)
}
