package pointcloud

import (
	"github.com/samber/lo"

	"go.viam.com/lightscan/spatialmath"
)

// ScannerFrame is the set of points reconstructed from one video frame, along with the turntable
// rotation, in degrees, the frame was captured at.
type ScannerFrame struct {
	Rotation float64
	Points   []Point3D
}

// FrameList is the ordered list of frames collected during a scan.
type FrameList []ScannerFrame

// Size is the total number of points across all frames.
func (fl FrameList) Size() int {
	return lo.SumBy(fl, func(f ScannerFrame) int { return len(f.Points) })
}

// Composite flattens every frame into one list of points, in frame order.
func (fl FrameList) Composite() []Point3D {
	return lo.FlatMap(fl, func(f ScannerFrame, _ int) []Point3D {
		return f.Points
	})
}

// Merge rotates the world coordinates of each frame's points about Z by the frame rotation and
// flattens the result, bringing a turntable scan into one object-fixed coordinate system.
func (fl FrameList) Merge() []Point3D {
	return lo.FlatMap(fl, func(f ScannerFrame, _ int) []Point3D {
		return lo.Map(f.Points, func(p Point3D, _ int) Point3D {
			p.World = spatialmath.RotateAboutZ(p.World, f.Rotation)
			return p
		})
	})
}

// NonEmpty returns the frames that carry at least one point.
func (fl FrameList) NonEmpty() FrameList {
	return lo.Filter(fl, func(f ScannerFrame, _ int) bool { return len(f.Points) > 0 })
}
