// Package spatialmath defines the geometry primitives used to triangulate scan points: planes,
// homogeneous transforms, ray intersections and least-squares fits.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDegeneratePlane is returned when a set of points does not span a plane.
var ErrDegeneratePlane = errors.New("points do not define a plane")

// Plane is the set of points satisfying A*x + B*y + C*z + D = 0. Planes built by this package
// have a unit normal (A, B, C).
type Plane struct {
	A, B, C, D float64
}

// NewPlaneFromNormalOffset returns the plane with the given normal passing through the point
// normal*offset/|normal|^2, i.e. the plane n.x = offset.
func NewPlaneFromNormalOffset(normal r3.Vector, offset float64) (Plane, error) {
	n := normal.Norm()
	if n == 0 {
		return Plane{}, ErrDegeneratePlane
	}
	unit := normal.Mul(1 / n)
	return Plane{unit.X, unit.Y, unit.Z, -offset / n}, nil
}

// PlaneFromPolygon computes the plane through a closed polygon with Newell's method. The vertices
// are treated as a loop, so the last one connects back to the first. At least three vertices are
// required.
func PlaneFromPolygon(vertices []r3.Vector) (Plane, error) {
	if len(vertices) < 3 {
		return Plane{}, errors.Wrapf(ErrDegeneratePlane, "need at least 3 vertices, got %d", len(vertices))
	}
	var norm, ref r3.Vector
	for i, v1 := range vertices {
		v2 := vertices[(i+1)%len(vertices)]
		norm.X += (v1.Y - v2.Y) * (v1.Z + v2.Z)
		norm.Y += (v1.Z - v2.Z) * (v1.X + v2.X)
		norm.Z += (v1.X - v2.X) * (v1.Y + v2.Y)
		ref = ref.Add(v1)
	}
	length := norm.Norm()
	if length == 0 {
		return Plane{}, ErrDegeneratePlane
	}
	return Plane{
		A: norm.X / length,
		B: norm.Y / length,
		C: norm.Z / length,
		D: -ref.Dot(norm) / (length * float64(len(vertices))),
	}, nil
}

// FitPlane returns the least-squares plane through the points. The normal is the right singular
// vector of the centered point matrix with the smallest singular value.
func FitPlane(points []r3.Vector) (Plane, error) {
	if len(points) < 3 {
		return Plane{}, errors.Wrapf(ErrDegeneratePlane, "need at least 3 points, got %d", len(points))
	}
	raw := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		raw.SetRow(i, []float64{p.X, p.Y, p.Z})
	}

	// center each coordinate column on its mean
	var mean [3]float64
	centered := mat.NewDense(len(points), 3, nil)
	for j := 0; j < 3; j++ {
		col := mat.Col(nil, j, raw)
		mean[j] = floats.Sum(col) / float64(len(col))
		floats.AddConst(-mean[j], col)
		centered.SetCol(j, col)
	}
	centroid := r3.Vector{X: mean[0], Y: mean[1], Z: mean[2]}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return Plane{}, errors.New("plane fit: singular value decomposition failed")
	}
	values := svd.Values(nil)
	if values[1] <= degenerateTolerance*values[0] {
		// every point lies on a single line
		return Plane{}, ErrDegeneratePlane
	}
	var v mat.Dense
	svd.VTo(&v)
	normal := r3.Vector{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)}
	return NewPlaneFromNormalOffset(normal, normal.Dot(centroid))
}

// Normal returns the plane normal (A, B, C).
func (p Plane) Normal() r3.Vector {
	return r3.Vector{X: p.A, Y: p.B, Z: p.C}
}

// Offset returns w such that the plane is Normal().Dot(x) = w.
func (p Plane) Offset() float64 {
	return -p.D
}

// Distance returns the signed distance from pt to the plane.
func (p Plane) Distance(pt r3.Vector) float64 {
	n := p.Normal().Norm()
	if n == 0 {
		return math.NaN()
	}
	return (p.Normal().Dot(pt) + p.D) / n
}

// Equation returns the coefficients in A, B, C, D order.
func (p Plane) Equation() []float64 {
	return []float64{p.A, p.B, p.C, p.D}
}

func (p Plane) String() string {
	return fmt.Sprintf("%.4fx + %.4fy + %.4fz + %.4f = 0", p.A, p.B, p.C, p.D)
}
