package structuredlight

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lightscan/spatialmath"
)

// Geometry holds the optical rays and projector planes of a calibrated projector-camera pair,
// all in the camera frame. Ray tables are indexed y*width+x.
type Geometry struct {
	CamWidth, CamHeight   int
	ProjWidth, ProjHeight int

	CamCenter  r3.Vector
	ProjCenter r3.Vector
	CamRays    []r3.Vector
	ProjRays   []r3.Vector

	// ColumnPlanes[c] contains the projector center and every ray of column c; RowPlanes likewise.
	ColumnPlanes []spatialmath.Plane
	RowPlanes    []spatialmath.Plane
}

// EvaluateProCamGeometry computes the ray tables and projector planes of a calibration.
func EvaluateProCamGeometry(calib *Calibration) (*Geometry, error) {
	if err := calib.Validate(); err != nil {
		return nil, err
	}
	camRot := spatialmath.RotationMatrixFromVector(calib.CameraExtrinsics.RotationVector())
	projRot := spatialmath.RotationMatrixFromVector(calib.ProjectorExtrinsics.RotationVector())

	// projector center in target coordinates, then moved into the camera frame
	projCenter := spatialmath.RotateVector(projRot.T(), calib.ProjectorExtrinsics.TranslationVector().Mul(-1))
	projCenter = spatialmath.RotateVector(camRot, projCenter).Add(calib.CameraExtrinsics.TranslationVector())

	var projToCam mat.Dense
	projToCam.Mul(camRot, projRot.T())

	g := &Geometry{
		CamWidth:   calib.Camera.Width,
		CamHeight:  calib.Camera.Height,
		ProjWidth:  calib.Projector.Width,
		ProjHeight: calib.Projector.Height,
		ProjCenter: projCenter,
		CamRays:    calib.Camera.Rays(),
		ProjRays:   calib.Projector.Rays(),
	}
	for i, ray := range g.ProjRays {
		g.ProjRays[i] = spatialmath.RotateVector(&projToCam, ray)
	}

	// plane fit points are spread about as far from the center as the baseline is long
	scale := projCenter.Norm()
	if scale == 0 {
		scale = 1
	}
	g.ColumnPlanes = make([]spatialmath.Plane, g.ProjWidth)
	points := make([]r3.Vector, 0, max(g.ProjWidth, g.ProjHeight)+1)
	for c := range g.ColumnPlanes {
		points = points[:0]
		for r := 0; r < g.ProjHeight; r++ {
			points = append(points, projCenter.Add(g.ProjRays[r*g.ProjWidth+c].Mul(scale)))
		}
		plane, err := spatialmath.FitPlane(append(points, projCenter))
		if err != nil {
			return nil, errors.Wrapf(err, "projector column %d", c)
		}
		g.ColumnPlanes[c] = plane
	}
	g.RowPlanes = make([]spatialmath.Plane, g.ProjHeight)
	for r := range g.RowPlanes {
		points = points[:0]
		for c := 0; c < g.ProjWidth; c++ {
			points = append(points, projCenter.Add(g.ProjRays[r*g.ProjWidth+c].Mul(scale)))
		}
		plane, err := spatialmath.FitPlane(append(points, projCenter))
		if err != nil {
			return nil, errors.Wrapf(err, "projector row %d", r)
		}
		g.RowPlanes[r] = plane
	}
	return g, nil
}

// ProjRay returns the ray of projector pixel (col, row).
func (g *Geometry) ProjRay(col, row int) r3.Vector {
	return g.ProjRays[row*g.ProjWidth+col]
}
