package structuredlight

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/lightscan/pointcloud"
	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/spatialmath"
)

// Reconstruction is the result of triangulating a correspondence. All maps are row-major over
// the camera image; Depth is 0 and Points the origin wherever Mask is false.
type Reconstruction struct {
	Width, Height int
	Points        []r3.Vector
	Colors        []color.NRGBA
	Depth         []float64
	Mask          []bool
}

func newReconstruction(width, height int) *Reconstruction {
	n := width * height
	return &Reconstruction{
		Width:  width,
		Height: height,
		Points: make([]r3.Vector, n),
		Colors: make([]color.NRGBA, n),
		Depth:  make([]float64, n),
		Mask:   make([]bool, n),
	}
}

// ValidCount returns the number of reconstructed pixels.
func (r *Reconstruction) ValidCount() int {
	return countTrue(r.Mask)
}

// PointCloud returns the reconstructed pixels as points. The camera frame is the world frame of a
// structured-light scan.
func (r *Reconstruction) PointCloud() []pointcloud.Point3D {
	points := make([]pointcloud.Point3D, 0, r.ValidCount())
	for i, ok := range r.Mask {
		if !ok {
			continue
		}
		p := pointcloud.NewPoint(r.Points[i], r.Points[i]).
			WithPixel(image.Pt(i%r.Width, i/r.Width)).
			WithColor(r.Colors[i])
		points = append(points, p)
	}
	return points
}

// DepthPreview renders the depth map with nearer surfaces in blue.
func (r *Reconstruction) DepthPreview() (*image.NRGBA, error) {
	return rimage.ColorizeDepth(r.Depth, r.Width, r.Height)
}

// Background is an object-free reconstruction used to drop points that lie on the background.
type Background struct {
	Texture *rimage.ColorBuffer
	Depth   []float64
	Mask    []bool
}

// Reconstruct triangulates every pixel of corr with the geometry. Points are colored from texture,
// the frame lit by the white pattern, when it is given. Points at most
// params.BackgroundDepthThresh in front of a reconstructed background pixel are dropped.
func Reconstruct(
	corr *Correspondence,
	geom *Geometry,
	texture *rimage.ColorBuffer,
	background *Background,
	params Params,
) (*Reconstruction, error) {
	if corr.Width != geom.CamWidth || corr.Height != geom.CamHeight {
		return nil, errors.Wrapf(rimage.ErrDimensionMismatch,
			"correspondence is %dx%d, camera calibration is %dx%d", corr.Width, corr.Height, geom.CamWidth, geom.CamHeight)
	}
	if texture != nil && (texture.Width != corr.Width || texture.Height != corr.Height) {
		return nil, errors.Wrapf(rimage.ErrDimensionMismatch,
			"texture is %dx%d, correspondence is %dx%d", texture.Width, texture.Height, corr.Width, corr.Height)
	}
	if background != nil && (len(background.Depth) != len(corr.Mask) || len(background.Mask) != len(corr.Mask)) {
		return nil, errors.Wrap(rimage.ErrDimensionMismatch, "background does not match the correspondence")
	}
	if params.Mode != RayPlane && params.Mode != RayRay {
		return nil, errors.Errorf("unknown reconstruction mode %d", int(params.Mode))
	}

	rec := newReconstruction(corr.Width, corr.Height)
	for i, ok := range corr.Mask {
		if !ok || corr.Cols[i] >= geom.ProjWidth || corr.Rows[i] >= geom.ProjHeight {
			continue
		}
		var point r3.Vector
		var depth float64
		if params.Mode == RayPlane {
			point, depth, ok = triangulatePlanes(geom, corr.Cols[i], corr.Rows[i], geom.CamRays[i], params)
		} else {
			point, depth, ok = triangulateRays(geom, corr.Cols[i], corr.Rows[i], geom.CamRays[i])
		}
		if !ok || depth < params.DistRange[0] || depth > params.DistRange[1] {
			continue
		}
		if background != nil && background.Mask[i] && background.Depth[i]-depth < params.BackgroundDepthThresh {
			continue
		}
		rec.Points[i] = point
		rec.Depth[i] = depth
		rec.Mask[i] = true
		if texture != nil {
			rec.Colors[i] = texture.NRGBAAt(i%corr.Width, i/corr.Width)
		} else {
			rec.Colors[i] = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
	}
	return rec, nil
}

// triangulatePlanes intersects the camera ray with the planes of the scanned projector column and
// row. With both, the two depths must agree within params.DistReject and are averaged.
func triangulatePlanes(geom *Geometry, col, row int, ray r3.Vector, params Params) (r3.Vector, float64, bool) {
	var colPoint, rowPoint r3.Vector
	var colDepth, rowDepth float64
	var err error
	if params.ScanCols {
		plane := geom.ColumnPlanes[col]
		colPoint, colDepth, err = spatialmath.IntersectLineWithPlane(geom.CamCenter, ray, plane.Normal(), -plane.D)
		if err != nil {
			return r3.Vector{}, 0, false
		}
	}
	if params.ScanRows {
		plane := geom.RowPlanes[row]
		rowPoint, rowDepth, err = spatialmath.IntersectLineWithPlane(geom.CamCenter, ray, plane.Normal(), -plane.D)
		if err != nil {
			return r3.Vector{}, 0, false
		}
	}
	switch {
	case params.ScanCols && params.ScanRows:
		if math.Abs(colDepth-rowDepth) >= params.DistReject {
			return r3.Vector{}, 0, false
		}
		return colPoint.Add(rowPoint).Mul(0.5), (colDepth + rowDepth) / 2, true
	case params.ScanCols:
		return colPoint, colDepth, true
	case params.ScanRows:
		return rowPoint, rowDepth, true
	default:
		return r3.Vector{}, 0, false
	}
}

// triangulateRays returns the midpoint of the closest approach of the camera ray and the ray of
// projector pixel (col, row). The depth is measured along the camera ray.
func triangulateRays(geom *Geometry, col, row int, ray r3.Vector) (r3.Vector, float64, bool) {
	point, err := spatialmath.ClosestPointBetweenLines(geom.CamCenter, ray, geom.ProjCenter, geom.ProjRay(col, row))
	if err != nil {
		return r3.Vector{}, 0, false
	}
	return point, ray.Dot(point.Sub(geom.CamCenter)), true
}
