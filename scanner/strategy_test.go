package scanner

import (
	"errors"
	"image"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/spatialmath"
)

const (
	imgWidth  = 640
	imgHeight = 480

	// difference value of pixels the laser did not touch
	background = 10
	laser      = 200
)

// vShape is a laser line rising with slope 1 from (0, 100) to the image center and falling
// back to (639, 100).
func vShape(x int) int {
	if x < imgWidth/2 {
		return x + 100
	}
	return 739 - x
}

func diffImage(line func(x int) int) *rimage.GrayBuffer {
	img := rimage.NewGrayBuffer(imgWidth, imgHeight)
	for i := range img.Pix {
		img.Pix[i] = background
	}
	if line == nil {
		return img
	}
	for x := 0; x < imgWidth; x++ {
		if y := line(x); y >= 0 && y < imgHeight {
			img.Set(x, y, laser)
		}
	}
	return img
}

// cornerTestConfig is the default corner camera with its walls swapped: left wall x=0 and right
// wall y=0, where the defaults put y=0 on the left and x=0 on the right.
func cornerTestConfig(t *testing.T) *CornerConfig {
	t.Helper()
	cfg, err := NewCornerConfig()
	test.That(t, err, test.ShouldBeNil)
	cfg.LeftPlane = spatialmath.Plane{A: 1}
	cfg.RightPlane = spatialmath.Plane{B: 1}
	return cfg
}

func planeAlmostEqual(t *testing.T, got, want spatialmath.Plane) {
	t.Helper()
	for i, v := range want.Equation() {
		test.That(t, got.Equation()[i], test.ShouldAlmostEqual, v, 1e-9)
	}
}

func expectedCornerPlane(t *testing.T, cfg *CornerConfig, l1, l2, r1, r2 image.Point) spatialmath.Plane {
	t.Helper()
	var vertices []r3.Vector
	for i, px := range []image.Point{l1, l2, r1, r2} {
		plane := cfg.LeftPlane
		if i >= 2 {
			plane = cfg.RightPlane
		}
		p, err := PlaneIntersect(cfg.Camera, plane, px, imgWidth, imgHeight)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, plane.Distance(p.World), test.ShouldAlmostEqual, 0, 1e-6)
		vertices = append(vertices, p.World)
	}
	plane, err := spatialmath.PlaneFromPolygon(vertices)
	test.That(t, err, test.ShouldBeNil)
	return plane
}

func TestCornerStrategyFlatLine(t *testing.T) {
	cfg := cornerTestConfig(t)
	s := NewCornerStrategy(cfg)

	img := diffImage(func(int) int { return 200 })
	test.That(t, s.FindLaser(img, 10), test.ShouldEqual, 200)

	plane, err := s.FindLaserPlane(img)
	test.That(t, err, test.ShouldBeNil)
	want := expectedCornerPlane(t, cfg,
		image.Pt(0, 200), image.Pt(100, 200), image.Pt(540, 200), image.Pt(640, 200))
	planeAlmostEqual(t, plane, want)

	// an image row seen through a pinhole is a plane through the center of projection
	center, err := cfg.Camera.Position()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.Distance(center), test.ShouldAlmostEqual, 0, 1e-6)
}

func TestCornerStrategyTiltedLines(t *testing.T) {
	cfg := cornerTestConfig(t)
	s := NewCornerStrategy(cfg)

	plane, err := s.FindLaserPlane(diffImage(vShape))
	test.That(t, err, test.ShouldBeNil)
	// left band fits y = x + 100, right band y = 739 - x
	want := expectedCornerPlane(t, cfg,
		image.Pt(0, 100), image.Pt(100, 200), image.Pt(540, 199), image.Pt(640, 99))
	planeAlmostEqual(t, plane, want)
	test.That(t, plane.Normal().Norm(), test.ShouldAlmostEqual, 1)

	start, end := s.ScanLines(imgWidth, imgHeight)
	test.That(t, start, test.ShouldEqual, 50)
	test.That(t, end, test.ShouldEqual, 590)
	test.That(t, s.Pixel(60, 160), test.ShouldResemble, image.Pt(60, 160))
}

func TestCornerStrategyInsufficient(t *testing.T) {
	s := NewCornerStrategy(cornerTestConfig(t))

	_, err := s.FindLaserPlane(diffImage(nil))
	test.That(t, errors.Is(err, ErrInsufficientDetections), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "left band")

	// 24 of 50 columns in the right band is not enough
	img := diffImage(func(x int) int {
		if x >= imgWidth-Inset && (x%2 == 0 || x == imgWidth-1) {
			return -1
		}
		return 300
	})
	_, err = s.FindLaserPlane(img)
	test.That(t, errors.Is(err, ErrInsufficientDetections), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "right band has 24 of 50")

	_, err = s.FindLaserPlane(rimage.NewGrayBuffer(80, 10))
	test.That(t, errors.Is(err, ErrInsufficientDetections), test.ShouldBeTrue)
}

func singleTestImage(top, bottom int) *rimage.GrayBuffer {
	img := diffImage(nil)
	img.Set(top, 0, laser)
	img.Set(bottom, SingleBand-1, laser)
	// below the band the laser is ignored by the plane fit
	for y := SingleBand; y < imgHeight; y++ {
		img.Set(250, y, laser)
	}
	return img
}

func TestSingleBackplaneStrategy(t *testing.T) {
	cfg, err := NewSingleConfig()
	test.That(t, err, test.ShouldBeNil)
	s := NewSingleBackplaneStrategy(cfg)

	img := singleTestImage(300, 310)
	test.That(t, s.FindLaser(img, 0), test.ShouldEqual, 300)
	test.That(t, s.FindLaser(img, 5), test.ShouldEqual, NotFound)

	plane, err := s.FindLaserPlane(img)
	test.That(t, err, test.ShouldBeNil)

	top, err := PlaneIntersect(cfg.Camera, cfg.ReferencePlane, image.Pt(300, 0), imgWidth, imgHeight)
	test.That(t, err, test.ShouldBeNil)
	bottom, err := PlaneIntersect(cfg.Camera, cfg.ReferencePlane, image.Pt(310, 24), imgWidth, imgHeight)
	test.That(t, err, test.ShouldBeNil)
	// both detections land on the wall y=300
	test.That(t, top.World.Y, test.ShouldAlmostEqual, 300, 1e-9)
	test.That(t, bottom.World.Y, test.ShouldAlmostEqual, 300, 1e-9)

	for _, p := range []r3.Vector{top.World, bottom.World, cfg.LaserPosition} {
		test.That(t, plane.Distance(p), test.ShouldAlmostEqual, 0, 1e-9)
	}

	start, end := s.ScanLines(imgWidth, imgHeight)
	test.That(t, start, test.ShouldEqual, 25)
	test.That(t, end, test.ShouldEqual, imgHeight)
	test.That(t, s.Pixel(60, 160), test.ShouldResemble, image.Pt(160, 60))
}

func TestSingleBackplaneAssumeVertical(t *testing.T) {
	cfg, err := NewSingleConfig()
	test.That(t, err, test.ShouldBeNil)
	cfg.AssumeVertical = true
	s := NewSingleBackplaneStrategy(cfg)

	// only the top row is detected; the second sample is made up below it
	img := diffImage(nil)
	img.Set(300, 3, laser)
	plane, err := s.FindLaserPlane(img)
	test.That(t, err, test.ShouldBeNil)

	below, err := PlaneIntersect(cfg.Camera, cfg.ReferencePlane, image.Pt(300, 13), imgWidth, imgHeight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.Distance(below.World), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, plane.Distance(cfg.LaserPosition), test.ShouldAlmostEqual, 0, 1e-9)

	// without the assumption a single detection cannot define a plane
	cfg.AssumeVertical = false
	_, err = s.FindLaserPlane(img)
	test.That(t, errors.Is(err, spatialmath.ErrDegeneratePlane), test.ShouldBeTrue)

	_, err = s.FindLaserPlane(diffImage(nil))
	test.That(t, errors.Is(err, ErrInsufficientDetections), test.ShouldBeTrue)
}

func TestPlaneIntersect(t *testing.T) {
	cfg := cornerTestConfig(t)
	plane := spatialmath.Plane{A: 0.2, B: 0.3, C: -0.9, D: 40}
	center, err := cfg.Camera.Position()
	test.That(t, err, test.ShouldBeNil)

	for _, px := range []image.Point{{0, 0}, {320, 240}, {600, 17}, {5, 470}} {
		p, err := PlaneIntersect(cfg.Camera, plane, px, imgWidth, imgHeight)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, plane.Distance(p.World), test.ShouldAlmostEqual, 0, 1e-9)
		test.That(t, p.HasPixel, test.ShouldBeTrue)
		test.That(t, p.Pixel, test.ShouldResemble, px)

		// the point is on the camera ray through px
		ray, err := cfg.Camera.Ray(float64(px.X), float64(px.Y), imgWidth, imgHeight)
		test.That(t, err, test.ShouldBeNil)
		offset := p.World.Sub(center)
		test.That(t, offset.Cross(ray.Direction).Norm(), test.ShouldAlmostEqual, 0, 1e-9)

		x, y, ok := cfg.Camera.Project(p.World, imgWidth, imgHeight)
		if ok {
			test.That(t, x, test.ShouldAlmostEqual, px.X, 1e-6)
			test.That(t, y, test.ShouldAlmostEqual, px.Y, 1e-6)
		}
		test.That(t, p.Camera, test.ShouldResemble, cfg.Camera.ToCamera(p.World))
	}
}

func TestGetColor(t *testing.T) {
	frame := rimage.NewColorBuffer(4, 3)
	frame.SetBGR(2, 1, 10, 20, 30)
	c, ok := GetColor(frame, image.Pt(2, 1))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, []uint8{c.R, c.G, c.B, c.A}, test.ShouldResemble, []uint8{30, 20, 10, 255})

	_, ok = GetColor(frame, image.Pt(4, 1))
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = GetColor(nil, image.Pt(0, 0))
	test.That(t, ok, test.ShouldBeFalse)
}
