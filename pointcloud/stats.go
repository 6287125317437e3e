package pointcloud

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrEmpty is returned when summarizing a set with no points.
var ErrEmpty = errors.New("no points")

// Summary describes the depth distribution of a set of points.
type Summary struct {
	Frames int
	Points int

	MeanDepth   float64
	StdDevDepth float64
	MinDepth    float64
	MaxDepth    float64
	MedianDepth float64
	P95Depth    float64

	// MeanPointsPerFrame is only meaningful when summarizing a FrameList.
	MeanPointsPerFrame float64
}

// Summarize computes depth statistics over points.
func Summarize(points []Point3D) (Summary, error) {
	if len(points) == 0 {
		return Summary{}, ErrEmpty
	}
	depths := stats.Float64Data(lo.Map(points, func(p Point3D, _ int) float64 { return p.Depth() }))

	s := Summary{Points: len(points)}
	var errs [6]error
	s.MeanDepth, errs[0] = depths.Mean()
	s.StdDevDepth, errs[1] = depths.StandardDeviation()
	s.MinDepth, errs[2] = depths.Min()
	s.MaxDepth, errs[3] = depths.Max()
	s.MedianDepth, errs[4] = depths.Median()
	s.P95Depth, errs[5] = depths.Percentile(95)
	for _, err := range errs {
		if err != nil {
			return Summary{}, errors.Wrap(err, "summarizing depth")
		}
	}
	return s, nil
}

// Summarize computes depth statistics over every point of the list, plus the mean frame size.
func (fl FrameList) Summarize() (Summary, error) {
	s, err := Summarize(fl.Composite())
	if err != nil {
		return s, err
	}
	counts := stats.LoadRawData(lo.Map(fl, func(f ScannerFrame, _ int) int { return len(f.Points) }))
	s.Frames = len(fl)
	s.MeanPointsPerFrame, err = counts.Mean()
	if err != nil {
		return Summary{}, errors.Wrap(err, "summarizing frames")
	}
	return s, nil
}
