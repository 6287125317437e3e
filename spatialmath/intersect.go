package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const degenerateTolerance = 1e-12

// ErrParallel is returned when a ray or line never meets the plane or line it is intersected with.
var ErrParallel = errors.New("ray is parallel to the target")

// Ray is a half line starting at Origin travelling along Direction.
type Ray struct {
	Origin    r3.Vector
	Direction r3.Vector
}

// NewRayThrough returns the ray from origin through target with a unit direction.
func NewRayThrough(origin, target r3.Vector) Ray {
	return Ray{Origin: origin, Direction: target.Sub(origin).Normalize()}
}

// At returns the point origin + t*direction.
func (r Ray) At(t float64) r3.Vector {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectPlane returns the point where the line through the ray meets the plane, along with the
// ray parameter of that point. Only an exactly parallel ray fails; the parameter may be negative.
func (r Ray) IntersectPlane(p Plane) (r3.Vector, float64, error) {
	denom := p.Normal().Dot(r.Direction)
	if denom == 0 {
		return r3.Vector{}, 0, ErrParallel
	}
	t := -(p.Normal().Dot(r.Origin) + p.D) / denom
	return r.At(t), t, nil
}

// IntersectLineWithPlane intersects the line q + t*v with the plane n.x = w and returns the point
// and the depth t. This is the form used for projector column and row planes.
func IntersectLineWithPlane(q, v, n r3.Vector, w float64) (r3.Vector, float64, error) {
	denom := n.Dot(v)
	if denom == 0 {
		return r3.Vector{}, 0, ErrParallel
	}
	depth := (w - n.Dot(q)) / denom
	return q.Add(v.Mul(depth)), depth, nil
}

// ClosestPointBetweenLines returns the midpoint of the shortest segment joining the lines
// q1 + s*v1 and q2 + t*v2.
func ClosestPointBetweenLines(q1, v1, q2, v2 r3.Vector) (r3.Vector, error) {
	q12 := q1.Sub(q2)
	v1dotv1 := v1.Dot(v1)
	v2dotv2 := v2.Dot(v2)
	v1dotv2 := v1.Dot(v2)
	q12dotv1 := q12.Dot(v1)
	q12dotv2 := q12.Dot(v2)

	denom := v1dotv1*v2dotv2 - v1dotv2*v1dotv2
	if math.Abs(denom) <= degenerateTolerance*v1dotv1*v2dotv2 {
		return r3.Vector{}, ErrParallel
	}
	s := (v1dotv2/denom)*q12dotv2 - (v2dotv2/denom)*q12dotv1
	t := -(v1dotv2/denom)*q12dotv1 + (v1dotv1/denom)*q12dotv2

	p1 := q1.Add(v1.Mul(s))
	p2 := q2.Add(v2.Mul(t))
	return p1.Add(p2).Mul(0.5), nil
}
