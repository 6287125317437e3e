package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrSingularMatrix is returned when a transform has no inverse.
var ErrSingularMatrix = errors.New("matrix is singular")

// Matrix4 is a homogeneous 4x4 transform using the row-vector convention: a point p maps to p*M,
// so translation lives in the bottom row and composing with Merge applies the new transform last.
type Matrix4 [4][4]float64

// NewIdentityMatrix returns the identity transform.
func NewIdentityMatrix() Matrix4 {
	return Matrix4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Identity resets m to the identity transform.
func (m *Matrix4) Identity() {
	*m = NewIdentityMatrix()
}

// Mul returns m*n.
func (m Matrix4) Mul(n Matrix4) Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j] + m[i][3]*n[3][j]
		}
	}
	return out
}

// Merge right-multiplies m by n, so n is applied after the existing transform.
func (m *Matrix4) Merge(n Matrix4) {
	*m = m.Mul(n)
}

// Premerge left-multiplies m by n, so n is applied before the existing transform.
func (m *Matrix4) Premerge(n Matrix4) {
	*m = n.Mul(*m)
}

// Translate appends a translation.
func (m *Matrix4) Translate(x, y, z float64) {
	t := NewIdentityMatrix()
	t[3][0], t[3][1], t[3][2] = x, y, z
	m.Merge(t)
}

// Scale appends an axis-aligned scale.
func (m *Matrix4) Scale(x, y, z float64) {
	s := NewIdentityMatrix()
	s[0][0], s[1][1], s[2][2] = x, y, z
	m.Merge(s)
}

// Shear appends a shear of z by x and y.
func (m *Matrix4) Shear(xs, ys float64) {
	s := NewIdentityMatrix()
	s[0][2], s[1][2] = xs, ys
	m.Merge(s)
}

// Rotate appends a rotation given in degrees about each axis. The combined rotation is built as
// Ry*Rx*Rz, so under the row-vector convention a point is rotated about Y first, then X, then Z.
func (m *Matrix4) Rotate(xDeg, yDeg, zDeg float64) {
	sx, cx := math.Sincos(xDeg * math.Pi / 180)
	sy, cy := math.Sincos(yDeg * math.Pi / 180)
	sz, cz := math.Sincos(zDeg * math.Pi / 180)

	rot := NewIdentityMatrix()
	rot.Premerge(Matrix4{
		{cz, sz, 0, 0},
		{-sz, cz, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
	rot.Premerge(Matrix4{
		{1, 0, 0, 0},
		{0, cx, sx, 0},
		{0, -sx, cx, 0},
		{0, 0, 0, 1},
	})
	rot.Premerge(Matrix4{
		{cy, 0, -sy, 0},
		{0, 1, 0, 0},
		{sy, 0, cy, 0},
		{0, 0, 0, 1},
	})
	m.Merge(rot)
}

// SetPosition rewrites the translation row so that pos maps to the origin, keeping the linear
// part of the transform. Afterwards Position returns pos.
func (m *Matrix4) SetPosition(pos r3.Vector) {
	m[3][0], m[3][1], m[3][2] = 0, 0, 0
	moved := m.Transform(pos)
	m[3][0], m[3][1], m[3][2] = -moved.X, -moved.Y, -moved.Z
}

// Position returns the point that the transform maps to the origin.
func (m Matrix4) Position() (r3.Vector, error) {
	return m.Untransform(r3.Vector{})
}

// Transform maps p through the matrix.
func (m Matrix4) Transform(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.X*m[0][0] + p.Y*m[1][0] + p.Z*m[2][0] + m[3][0],
		Y: p.X*m[0][1] + p.Y*m[1][1] + p.Z*m[2][1] + m[3][1],
		Z: p.X*m[0][2] + p.Y*m[1][2] + p.Z*m[2][2] + m[3][2],
	}
}

// Untransform maps p through the inverse of the matrix.
func (m Matrix4) Untransform(p r3.Vector) (r3.Vector, error) {
	inv, err := m.Inverse()
	if err != nil {
		return r3.Vector{}, err
	}
	return inv.Transform(p), nil
}

// Inverse computes the inverse with Gauss-Jordan elimination and partial pivoting.
func (m Matrix4) Inverse() (Matrix4, error) {
	a := m
	inv := NewIdentityMatrix()
	for col := 0; col < 4; col++ {
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) <= degenerateTolerance {
			return Matrix4{}, ErrSingularMatrix
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		scale := 1 / a[col][col]
		for j := 0; j < 4; j++ {
			a[col][j] *= scale
			inv[col][j] *= scale
		}
		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			factor := a[row][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 4; j++ {
				a[row][j] -= factor * a[col][j]
				inv[row][j] -= factor * inv[col][j]
			}
		}
	}
	return inv, nil
}

// Row returns the first three entries of row i.
func (m Matrix4) Row(i int) r3.Vector {
	return r3.Vector{X: m[i][0], Y: m[i][1], Z: m[i][2]}
}

// Column returns the first three entries of column j.
func (m Matrix4) Column(j int) r3.Vector {
	return r3.Vector{X: m[0][j], Y: m[1][j], Z: m[2][j]}
}

// SetColumn writes v into the first three entries of column j.
func (m *Matrix4) SetColumn(j int, v r3.Vector) {
	m[0][j], m[1][j], m[2][j] = v.X, v.Y, v.Z
}

// Float32s flattens the matrix in row-major order.
func (m Matrix4) Float32s() [16]float32 {
	var out [16]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = float32(m[i][j])
		}
	}
	return out
}

// Matrix4FromFloat32s is the inverse of Float32s.
func Matrix4FromFloat32s(vals [16]float32) Matrix4 {
	var m Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i][j] = float64(vals[i*4+j])
		}
	}
	return m
}
