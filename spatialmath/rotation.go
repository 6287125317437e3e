package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// RotationMatrixFromVector converts an axis-angle rotation vector (axis scaled by the angle in
// radians) into a 3x3 rotation matrix using the Rodrigues formula.
func RotationMatrixFromVector(rv r3.Vector) *mat.Dense {
	theta := rv.Norm()
	if theta == 0 {
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	k := rv.Mul(1 / theta)
	skew := mat.NewDense(3, 3, []float64{
		0, -k.Z, k.Y,
		k.Z, 0, -k.X,
		-k.Y, k.X, 0,
	})
	var skew2 mat.Dense
	skew2.Mul(skew, skew)

	rot := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	var term mat.Dense
	term.Scale(math.Sin(theta), skew)
	rot.Add(rot, &term)
	term.Scale(1-math.Cos(theta), &skew2)
	rot.Add(rot, &term)
	return rot
}

// RotateVector returns rot*v.
func RotateVector(rot mat.Matrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rot.At(0, 0)*v.X + rot.At(0, 1)*v.Y + rot.At(0, 2)*v.Z,
		Y: rot.At(1, 0)*v.X + rot.At(1, 1)*v.Y + rot.At(1, 2)*v.Z,
		Z: rot.At(2, 0)*v.X + rot.At(2, 1)*v.Y + rot.At(2, 2)*v.Z,
	}
}

// RotateAboutZ rotates v counterclockwise about the z axis by deg degrees.
func RotateAboutZ(v r3.Vector, deg float64) r3.Vector {
	s, c := math.Sincos(deg * math.Pi / 180)
	return r3.Vector{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y, Z: v.Z}
}
