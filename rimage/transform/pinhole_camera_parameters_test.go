package transform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPinholeCameraIntrinsicsCheckValid(t *testing.T) {
	var nilIntrinsics *PinholeCameraIntrinsics
	test.That(t, errors.Is(nilIntrinsics.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)

	good := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 600, Fy: 600, Ppx: 320, Ppy: 240}
	test.That(t, good.CheckValid(), test.ShouldBeNil)

	for _, bad := range []PinholeCameraIntrinsics{
		{Width: 0, Height: 480, Fx: 600, Fy: 600},
		{Width: 640, Height: 480, Fx: 0, Fy: 600},
		{Width: 640, Height: 480, Fx: 600, Fy: -1},
		{Width: 640, Height: 480, Fx: 600, Fy: 600, Ppx: -1},
		{Width: 640, Height: 480, Fx: 600, Fy: 600, Ppy: -1},
	} {
		bad := bad
		err := bad.CheckValid()
		test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
	}
}

func TestPinholeCameraIntrinsicsFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.json")
	test.That(t, os.WriteFile(path, []byte(`{"width_px": 4, "height_px": 2, "fx": 2, "fy": 2, "ppx": 2, "ppy": 1}`), 0o600),
		test.ShouldBeNil)

	intrinsics, err := NewPinholeCameraIntrinsicsFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *intrinsics, test.ShouldResemble, PinholeCameraIntrinsics{Width: 4, Height: 2, Fx: 2, Fy: 2, Ppx: 2, Ppy: 1})

	_, err = NewPinholeCameraIntrinsicsFromJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPinholeProjection(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 4, Height: 2, Fx: 2, Fy: 2, Ppx: 2, Ppy: 1}

	x, y, z := intrinsics.PixelToPoint(4, 1, 10)
	test.That(t, []float64{x, y, z}, test.ShouldResemble, []float64{10, 0, 10})
	px, py := intrinsics.PointToPixel(x, y, z)
	test.That(t, px, test.ShouldEqual, 4)
	test.That(t, py, test.ShouldEqual, 1)
	px, py = intrinsics.PointToPixel(1, 1, 0)
	test.That(t, []float64{px, py}, test.ShouldResemble, []float64{-1, -1})

	ray := intrinsics.PixelRay(2, 1)
	vecAlmostEqual(t, ray, r3.Vector{Z: 1})

	rays := intrinsics.Rays()
	test.That(t, len(rays), test.ShouldEqual, 8)
	vecAlmostEqual(t, rays[1*4+2], r3.Vector{Z: 1})
	test.That(t, rays[0].Norm(), test.ShouldAlmostEqual, 1)

	k := intrinsics.Matrix()
	test.That(t, k.At(0, 0), test.ShouldEqual, 2)
	test.That(t, k.At(0, 2), test.ShouldEqual, 2)
	test.That(t, k.At(2, 2), test.ShouldEqual, 1)
}
