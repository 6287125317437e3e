package spatialmath

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrDegenerateLine is returned when a least-squares line cannot be fit, either because there are
// fewer than two samples or because every sample shares the same x.
var ErrDegenerateLine = errors.New("points do not define a non-vertical line")

// Line2D is the line y = Slope*x + Intercept.
type Line2D struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (l Line2D) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// FitLine fits y = m*x + b to the points by minimizing the squared vertical error.
func FitLine(points []r2.Point) (Line2D, error) {
	if len(points) < 2 {
		return Line2D{}, errors.Wrapf(ErrDegenerateLine, "need at least 2 points, got %d", len(points))
	}
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}
	n := float64(len(points))
	denom := sumX*sumX - n*sumXX
	if denom == 0 {
		return Line2D{}, ErrDegenerateLine
	}
	slope := (sumX*sumY - n*sumXY) / denom
	return Line2D{Slope: slope, Intercept: (sumY - slope*sumX) / n}, nil
}
