package scanner

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"go.viam.com/lightscan/pointcloud"
	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/rimage/transform"
	"go.viam.com/lightscan/spatialmath"
)

// PlaneIntersect reconstructs the world point seen at pixel px of a width x height image, given
// the plane it lies on. The returned point is tagged with px. It fails only when the camera ray
// through px is parallel to plane.
func PlaneIntersect(
	cam *transform.Camera,
	plane spatialmath.Plane,
	px image.Point,
	width, height int,
) (pointcloud.Point3D, error) {
	ray, err := cam.Ray(float64(px.X), float64(px.Y), width, height)
	if err != nil {
		return pointcloud.Point3D{}, err
	}
	world, _, err := ray.IntersectPlane(plane)
	if err != nil {
		return pointcloud.Point3D{}, errors.Wrapf(err, "pixel (%d, %d)", px.X, px.Y)
	}
	return pointcloud.NewPoint(world, cam.ToCamera(world)).WithPixel(px), nil
}

// GetColor samples the BGR frame at px. ok is false when px is outside the frame.
func GetColor(frame *rimage.ColorBuffer, px image.Point) (c color.NRGBA, ok bool) {
	if frame == nil || !px.In(frame.Bounds()) {
		return color.NRGBA{}, false
	}
	return frame.NRGBAAt(px.X, px.Y), true
}
