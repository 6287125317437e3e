// Package transform maps between image pixels and world space: the posed scanner camera and
// the pinhole intrinsics of calibrated cameras and projectors.
package transform

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/lightscan/spatialmath"
)

// ErrDegenerateView is returned by LookAt when the camera sits on its target or the up vector
// is parallel to the viewing direction.
var ErrDegenerateView = errors.New("camera view direction is undefined")

// Camera is a world-to-camera transform plus the viewing distance, in pixels, of the image plane
// from the center of projection. The camera looks down its +z axis.
type Camera struct {
	pose spatialmath.Matrix4

	// ViewDistance scales camera space to pixels.
	ViewDistance float64
}

// NewCamera returns a camera at the origin looking down +z.
func NewCamera(viewDistance float64) *Camera {
	return &Camera{pose: spatialmath.NewIdentityMatrix(), ViewDistance: viewDistance}
}

// NewCameraFromMatrix returns a camera with the given world-to-camera transform.
func NewCameraFromMatrix(pose spatialmath.Matrix4, viewDistance float64) *Camera {
	return &Camera{pose: pose, ViewDistance: viewDistance}
}

// Matrix returns the world-to-camera transform.
func (c *Camera) Matrix() spatialmath.Matrix4 {
	return c.pose
}

// SetPosition moves the camera to pos in world coordinates without turning it.
func (c *Camera) SetPosition(pos r3.Vector) {
	c.pose.SetPosition(pos)
}

// Translate appends a translation to the camera transform.
func (c *Camera) Translate(x, y, z float64) {
	c.pose.Translate(x, y, z)
}

// Rotate appends a rotation, in degrees, to the camera transform.
func (c *Camera) Rotate(xDeg, yDeg, zDeg float64) {
	c.pose.Rotate(xDeg, yDeg, zDeg)
}

// Position returns the center of projection in world coordinates.
func (c *Camera) Position() (r3.Vector, error) {
	return c.pose.Position()
}

// LookAt keeps the camera where it is and turns it so +z points at target and -y is as close to
// up as possible.
func (c *Camera) LookAt(target, up r3.Vector) error {
	pos, err := c.Position()
	if err != nil {
		return err
	}
	forward := target.Sub(pos)
	if forward.Norm() == 0 || up.Norm() == 0 {
		return ErrDegenerateView
	}
	forward = forward.Normalize()
	side := forward.Cross(up.Normalize())
	if side.Norm() < 1e-12 {
		return ErrDegenerateView
	}
	side = side.Normalize()
	trueUp := side.Cross(forward).Mul(-1)

	rot := spatialmath.NewIdentityMatrix()
	rot.SetColumn(0, side)
	rot.SetColumn(1, trueUp)
	rot.SetColumn(2, forward)

	move := spatialmath.NewIdentityMatrix()
	move.SetPosition(pos)
	rot.Premerge(move)
	c.pose = rot
	return nil
}

// Orbit places the camera dist away from center on the horizontal circle through it, at angle
// degrees counterclockwise from +x, and aims it at center with +z up.
func (c *Camera) Orbit(center r3.Vector, dist, angleDeg float64) error {
	rad := angleDeg * math.Pi / 180
	c.SetPosition(r3.Vector{
		X: center.X + dist*math.Cos(rad),
		Y: center.Y + dist*math.Sin(rad),
		Z: center.Z,
	})
	return c.LookAt(center, r3.Vector{Z: 1})
}

// ToCamera maps a world point into camera space.
func (c *Camera) ToCamera(world r3.Vector) r3.Vector {
	return c.pose.Transform(world)
}

// Ray returns the ray from the center of projection through pixel (x, y) of a width x height
// image, in world coordinates.
func (c *Camera) Ray(x, y float64, width, height int) (spatialmath.Ray, error) {
	origin, err := c.Position()
	if err != nil {
		return spatialmath.Ray{}, err
	}
	// a point on the image plane at camera z = 1
	const cz = 1.0
	vd := c.ViewDistance / cz
	onImage := r3.Vector{
		X: x/vd - (float64(width)/2)/vd,
		Y: y/vd - (float64(height)/2)/vd,
		Z: cz,
	}
	world, err := c.pose.Untransform(onImage)
	if err != nil {
		return spatialmath.Ray{}, err
	}
	return spatialmath.NewRayThrough(origin, world), nil
}

// Project returns the pixel of a width x height image that world projects to. ok is false for
// points at or behind the center of projection.
func (c *Camera) Project(world r3.Vector, width, height int) (x, y float64, ok bool) {
	p := c.ToCamera(world)
	if p.Z <= 0 {
		return 0, 0, false
	}
	x = p.X/p.Z*c.ViewDistance + float64(width)/2
	y = p.Y/p.Z*c.ViewDistance + float64(height)/2
	return x, y, true
}
