// Package pointcloud holds reconstructed scan points, the frames they are grouped in, and the
// file formats they are written to.
package pointcloud

import (
	"image"
	"image/color"

	"github.com/golang/geo/r3"
)

// Point3D is a single reconstructed surface point.
type Point3D struct {
	World  r3.Vector
	Camera r3.Vector

	Pixel    image.Point
	HasPixel bool

	Color    color.NRGBA
	HasColor bool
}

// NewPoint returns a point at world with camera coordinates cam and no pixel or color.
func NewPoint(world, cam r3.Vector) Point3D {
	return Point3D{World: world, Camera: cam}
}

// WithPixel returns a copy of p tagged with the image pixel it was reconstructed from.
func (p Point3D) WithPixel(px image.Point) Point3D {
	p.Pixel = px
	p.HasPixel = true
	return p
}

// WithColor returns a copy of p tagged with c.
func (p Point3D) WithColor(c color.NRGBA) Point3D {
	p.Color = c
	p.HasColor = true
	return p
}

// RGB255 returns the color of the point, or white when it has none.
func (p Point3D) RGB255() (uint8, uint8, uint8) {
	if !p.HasColor {
		return 255, 255, 255
	}
	return p.Color.R, p.Color.G, p.Color.B
}

// Depth is the distance of the point along the camera's viewing axis.
func (p Point3D) Depth() float64 {
	return p.Camera.Z
}

// MetaData summarizes what a set of points carries.
type MetaData struct {
	HasColor bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData computes MetaData over points.
func NewMetaData(points []Point3D) MetaData {
	var meta MetaData
	for i, p := range points {
		if p.HasColor {
			meta.HasColor = true
		}
		w := p.World
		if i == 0 {
			meta.MinX, meta.MaxX = w.X, w.X
			meta.MinY, meta.MaxY = w.Y, w.Y
			meta.MinZ, meta.MaxZ = w.Z, w.Z
			continue
		}
		meta.MinX, meta.MaxX = min(meta.MinX, w.X), max(meta.MaxX, w.X)
		meta.MinY, meta.MaxY = min(meta.MinY, w.Y), max(meta.MaxY, w.Y)
		meta.MinZ, meta.MaxZ = min(meta.MinZ, w.Z), max(meta.MaxZ, w.Z)
	}
	return meta
}
