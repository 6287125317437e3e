package spatialmath

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestFitLine(t *testing.T) {
	for _, tc := range []struct {
		name  string
		noise float64
		tol   float64
	}{
		{"exact", 0, 1e-9},
		{"small noise", 0.01, 0.05},
		{"tiny noise", 1e-6, 1e-5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rnd := rand.New(rand.NewSource(1))
			var pts []r2.Point
			for x := 0.0; x < 50; x++ {
				pts = append(pts, r2.Point{X: x, Y: 2*x + 3 + tc.noise*rnd.NormFloat64()})
			}
			line, err := FitLine(pts)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, line.Slope, test.ShouldAlmostEqual, 2, tc.tol)
			test.That(t, line.Intercept, test.ShouldAlmostEqual, 3, tc.tol*10)
			test.That(t, line.At(10), test.ShouldAlmostEqual, 23, tc.tol*20)
		})
	}

	t.Run("vertical", func(t *testing.T) {
		_, err := FitLine([]r2.Point{{X: 5, Y: 0}, {X: 5, Y: 1}, {X: 5, Y: 2}})
		test.That(t, err, test.ShouldBeError, ErrDegenerateLine)
	})

	t.Run("too few", func(t *testing.T) {
		_, err := FitLine([]r2.Point{{X: 5, Y: 0}})
		test.That(t, err, test.ShouldWrap, ErrDegenerateLine)
		_, err = FitLine(nil)
		test.That(t, err, test.ShouldWrap, ErrDegenerateLine)
	})
}
