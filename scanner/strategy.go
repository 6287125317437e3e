package scanner

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/spatialmath"
)

// ErrInsufficientDetections is returned when too little of the laser line is visible to fit its
// plane.
var ErrInsufficientDetections = errors.New("not enough laser detections")

// Strategy turns a difference image into the plane of laser light and says which scan lines of
// the image are reconstructed against it.
type Strategy interface {
	Config() Config

	// FindLaser returns the position of the laser along scan line index, or NotFound.
	FindLaser(img *rimage.GrayBuffer, index int) int

	// FindLaserPlane estimates the plane of laser light from the reference geometry.
	FindLaserPlane(img *rimage.GrayBuffer) (spatialmath.Plane, error)

	// ScanLines is the range [start, end) of scan lines reconstructed in a width x height image.
	ScanLines(width, height int) (start, end int)

	// Pixel maps position pos along scan line index to image coordinates.
	Pixel(index, pos int) image.Point
}

// NewStrategy returns the strategy for cfg.
func NewStrategy(cfg Config) (Strategy, error) {
	switch c := cfg.(type) {
	case *CornerConfig:
		return NewCornerStrategy(c), nil
	case *SingleConfig:
		return NewSingleBackplaneStrategy(c), nil
	default:
		return nil, errors.Wrapf(ErrUnknownScanType, "%T", cfg)
	}
}

const (
	// Inset is the width of the bands at the left and right edges of the image that the corner
	// strategy fits the laser line in.
	Inset = 50

	// cornerSampleSpan is the horizontal distance between the two points sampled on each fitted
	// band line.
	cornerSampleSpan = 100

	// SingleBand is the number of rows at the top of the image that the single strategy measures
	// the laser in.
	SingleBand = 25

	// verticalOffset is how far below the top detection the second sample is placed when the
	// laser is assumed vertical.
	verticalOffset = 10
)

// CornerStrategy scans image columns. The laser is a roughly horizontal line crossing both
// walls; its image in each edge band is intersected with that band's wall.
type CornerStrategy struct {
	cfg *CornerConfig
}

// NewCornerStrategy returns a corner strategy reading cfg.
func NewCornerStrategy(cfg *CornerConfig) *CornerStrategy {
	return &CornerStrategy{cfg: cfg}
}

// Config returns the configuration in use.
func (s *CornerStrategy) Config() Config { return s.cfg }

// FindLaser returns the row of the laser in column x.
func (s *CornerStrategy) FindLaser(img *rimage.GrayBuffer, x int) int {
	return NewLocator(&s.cfg.BaseConfig).InColumn(img, x)
}

// bandSamples locates the laser in the Inset columns starting at x0.
func (s *CornerStrategy) bandSamples(img *rimage.GrayBuffer, x0 int) []r2.Point {
	var pts []r2.Point
	for x := x0; x < x0+Inset; x++ {
		if y := s.FindLaser(img, x); y != NotFound {
			pts = append(pts, r2.Point{X: float64(x), Y: float64(y)})
		}
	}
	return pts
}

func (s *CornerStrategy) bandLine(img *rimage.GrayBuffer, x0 int, side string) (spatialmath.Line2D, error) {
	pts := s.bandSamples(img, x0)
	if len(pts) < Inset/2 {
		return spatialmath.Line2D{}, errors.Wrapf(ErrInsufficientDetections,
			"%s band has %d of %d columns", side, len(pts), Inset)
	}
	line, err := spatialmath.FitLine(pts)
	if err != nil {
		return spatialmath.Line2D{}, errors.Wrapf(err, "%s band", side)
	}
	return line, nil
}

// FindLaserPlane fits a line to the laser in each edge band, intersects two points of each line
// with that band's wall and returns the plane through the four world points.
func (s *CornerStrategy) FindLaserPlane(img *rimage.GrayBuffer) (spatialmath.Plane, error) {
	w, h := img.Width, img.Height
	if w < 2*Inset {
		return spatialmath.Plane{}, errors.Wrapf(ErrInsufficientDetections, "image is only %d pixels wide", w)
	}
	left, err := s.bandLine(img, 0, "left")
	if err != nil {
		return spatialmath.Plane{}, err
	}
	right, err := s.bandLine(img, w-Inset, "right")
	if err != nil {
		return spatialmath.Plane{}, err
	}

	sample := func(line spatialmath.Line2D, x int) image.Point {
		return image.Pt(x, int(line.At(float64(x))))
	}
	samples := []struct {
		px    image.Point
		plane spatialmath.Plane
	}{
		{sample(left, 0), s.cfg.LeftPlane},
		{sample(left, cornerSampleSpan), s.cfg.LeftPlane},
		{sample(right, w-cornerSampleSpan), s.cfg.RightPlane},
		{sample(right, w), s.cfg.RightPlane},
	}
	vertices := make([]r3.Vector, 0, len(samples))
	for _, sm := range samples {
		p, err := PlaneIntersect(s.cfg.Camera, sm.plane, sm.px, w, h)
		if err != nil {
			return spatialmath.Plane{}, err
		}
		vertices = append(vertices, p.World)
	}
	return spatialmath.PlaneFromPolygon(vertices)
}

// ScanLines returns the columns between the two bands.
func (s *CornerStrategy) ScanLines(width, _ int) (int, int) {
	return Inset, width - Inset
}

// Pixel maps row pos of column index to a pixel.
func (s *CornerStrategy) Pixel(index, pos int) image.Point {
	return image.Pt(index, pos)
}

// SingleBackplaneStrategy scans image rows. The laser is a roughly vertical line; its image near
// the top edge is intersected with the back wall and joined with the laser position.
type SingleBackplaneStrategy struct {
	cfg *SingleConfig
}

// NewSingleBackplaneStrategy returns a single wall strategy reading cfg.
func NewSingleBackplaneStrategy(cfg *SingleConfig) *SingleBackplaneStrategy {
	return &SingleBackplaneStrategy{cfg: cfg}
}

// Config returns the configuration in use.
func (s *SingleBackplaneStrategy) Config() Config { return s.cfg }

// FindLaser returns the column of the laser in row y.
func (s *SingleBackplaneStrategy) FindLaser(img *rimage.GrayBuffer, y int) int {
	return NewLocator(&s.cfg.BaseConfig).InRow(img, y)
}

// FindLaserPlane returns the plane through the laser position and the back wall points seen at
// the first and last detections among the top SingleBand rows.
func (s *SingleBackplaneStrategy) FindLaserPlane(img *rimage.GrayBuffer) (spatialmath.Plane, error) {
	var top, bottom image.Point
	found := false
	for y := 0; y < SingleBand && y < img.Height; y++ {
		x := s.FindLaser(img, y)
		if x == NotFound {
			continue
		}
		if !found {
			top = image.Pt(x, y)
			found = true
		}
		bottom = image.Pt(x, y)
	}
	if !found {
		return spatialmath.Plane{}, errors.Wrapf(ErrInsufficientDetections, "no laser in the top %d rows", SingleBand)
	}
	if s.cfg.AssumeVertical {
		bottom = image.Pt(top.X, top.Y+verticalOffset)
	}

	lower, err := PlaneIntersect(s.cfg.Camera, s.cfg.ReferencePlane, bottom, img.Width, img.Height)
	if err != nil {
		return spatialmath.Plane{}, err
	}
	upper, err := PlaneIntersect(s.cfg.Camera, s.cfg.ReferencePlane, top, img.Width, img.Height)
	if err != nil {
		return spatialmath.Plane{}, err
	}
	return spatialmath.PlaneFromPolygon([]r3.Vector{lower.World, upper.World, s.cfg.LaserPosition})
}

// ScanLines returns the rows below the measuring band.
func (s *SingleBackplaneStrategy) ScanLines(_, height int) (int, int) {
	return SingleBand, height
}

// Pixel maps column pos of row index to a pixel.
func (s *SingleBackplaneStrategy) Pixel(index, pos int) image.Point {
	return image.Pt(pos, index)
}
