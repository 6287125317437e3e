package structuredlight

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/lightscan/rimage"
)

func TestParams(t *testing.T) {
	params := DefaultParams()
	test.That(t, params.Validate(), test.ShouldBeNil)
	test.That(t, params.Delay(), test.ShouldEqual, 200*time.Millisecond)
	test.That(t, params.Mode.String(), test.ShouldEqual, "ray-ray")
	test.That(t, RayPlane.String(), test.ShouldEqual, "ray-plane")
	mode, err := ParseMode(" Ray-Plane")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, RayPlane)
	_, err = ParseMode("stereo")
	test.That(t, err, test.ShouldNotBeNil)

	params.ScanRows = false
	params.Normalize()
	test.That(t, params.ScanRows, test.ShouldBeTrue)
	params.Mode = RayPlane
	params.ScanCols = false
	params.Normalize()
	test.That(t, params.ScanCols, test.ShouldBeFalse)

	err = Params{Mode: Mode(9), DistRange: [2]float64{5, 1}}.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	// every problem is reported
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 5)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown reconstruction mode 9")
}

func TestExportPatterns(t *testing.T) {
	codes, err := GenerateGrayCodes(100, 6)
	test.That(t, err, test.ShouldBeNil)
	params := DefaultParams()

	dir := t.TempDir()
	paths, err := ExportPatterns(codes, dir, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(paths), test.ShouldEqual, codes.SequenceLength())
	test.That(t, paths[1], test.ShouldEqual, filepath.Join(dir, "01.png"))

	white, err := rimage.LoadGrayBuffer(paths[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, white.At(50, 3), test.ShouldEqual, 255)
	black, err := rimage.LoadGrayBuffer(paths[1])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, black.At(50, 3), test.ShouldEqual, 0)

	// half gain halves the projected brightness
	params.ProjGain = 25
	images := ProjectorImages(codes, params)
	test.That(t, rimage.GrayBufferFromImage(images[0]).At(0, 0), test.ShouldEqual, 128)

	// the most significant column plane is dark on the left; inverted, the left is lit
	params.ProjGain = 50
	images = ProjectorImages(codes, params)
	test.That(t, rimage.GrayBufferFromImage(images[2]).At(0, 0), test.ShouldEqual, 0)
	params.ProjInvert = true
	images = ProjectorImages(codes, params)
	test.That(t, rimage.GrayBufferFromImage(images[2]).At(0, 0), test.ShouldEqual, 255)
}
