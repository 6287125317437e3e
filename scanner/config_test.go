package scanner

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/lightscan/logging"
	"go.viam.com/lightscan/spatialmath"
)

func TestScanType(t *testing.T) {
	for _, st := range []ScanType{CornerScan, SingleScan} {
		parsed, err := ParseScanType(st.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, st)
	}
	test.That(t, CornerScan.FileName(), test.ShouldEqual, "Corner.cfg")
	test.That(t, SingleScan.FileName(), test.ShouldEqual, "Single.cfg")

	parsed, err := ParseScanType(" Corner ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, CornerScan)

	_, err = ParseScanType("triple")
	test.That(t, errors.Is(err, ErrUnknownScanType), test.ShouldBeTrue)
	_, err = CreateDefaultConfiguration(ScanType(7))
	test.That(t, errors.Is(err, ErrUnknownScanType), test.ShouldBeTrue)
}

func TestDefaultConfigurations(t *testing.T) {
	cfg, err := CreateDefaultConfiguration(CornerScan)
	test.That(t, err, test.ShouldBeNil)
	corner, ok := cfg.(*CornerConfig)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, corner.Type(), test.ShouldEqual, CornerScan)
	test.That(t, corner.LeftPlane, test.ShouldResemble, spatialmath.Plane{B: 1})
	test.That(t, corner.RightPlane, test.ShouldResemble, spatialmath.Plane{A: 1})
	test.That(t, corner.BrightnessThreshold, test.ShouldEqual, 128)
	test.That(t, corner.UseCanny, test.ShouldBeFalse)
	test.That(t, corner.CannyAperture, test.ShouldEqual, 3)
	test.That(t, corner.CannySigma, test.ShouldEqual, 1.0)
	pos, err := corner.Camera.Position()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.X, test.ShouldAlmostEqual, 200)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 200)
	test.That(t, pos.Z, test.ShouldAlmostEqual, 0)

	cfg, err = CreateDefaultConfiguration(SingleScan)
	test.That(t, err, test.ShouldBeNil)
	single, ok := cfg.(*SingleConfig)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, single.Base().Camera.ViewDistance, test.ShouldEqual, 500)
	test.That(t, single.ReferencePlane, test.ShouldResemble, spatialmath.Plane{B: -1, D: 300})
	test.That(t, single.LaserPosition, test.ShouldResemble, r3.Vector{X: 200})
	test.That(t, single.AssumeVertical, test.ShouldBeFalse)
}

func customSingleConfig(t *testing.T) *SingleConfig {
	t.Helper()
	cfg, err := NewSingleConfig()
	test.That(t, err, test.ShouldBeNil)
	cfg.BrightnessThreshold = 77
	cfg.UseCanny = true
	cfg.CannyLow = 12.5
	cfg.CannyHigh = 99.125
	cfg.CannyAperture = 5
	cfg.ReferencePlane = spatialmath.Plane{A: 0.1, B: -0.9, C: 0.3, D: 301.7}
	cfg.LaserPosition = r3.Vector{X: 201.3, Y: -4.1, Z: 0.7}
	cfg.AssumeVertical = true
	cfg.Camera.Translate(1.1, 2.2, 3.3)
	return cfg
}

func TestConfigurationRoundTrip(t *testing.T) {
	corner, err := NewCornerConfig()
	test.That(t, err, test.ShouldBeNil)
	corner.LeftPlane = spatialmath.Plane{A: 1, D: -0.3}
	corner.RightPlane = spatialmath.Plane{B: 1, C: 0.2}

	for _, tc := range []struct {
		cfg  Config
		size int
	}{
		{corner, 122},
		{customSingleConfig(t), 119},
	} {
		t.Run(tc.cfg.Type().String(), func(t *testing.T) {
			dir := t.TempDir()
			test.That(t, SaveConfiguration(tc.cfg, dir), test.ShouldBeNil)
			first, err := os.ReadFile(filepath.Join(dir, tc.cfg.Type().FileName()))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, len(first), test.ShouldEqual, tc.size)

			loaded, err := LoadConfiguration(tc.cfg.Type(), dir)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, loaded.Type(), test.ShouldEqual, tc.cfg.Type())

			second, err := MarshalBinary(loaded)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, bytes.Equal(first, second), test.ShouldBeTrue)

			want, got := tc.cfg.Base(), loaded.Base()
			test.That(t, got.Camera.Matrix().Float32s(), test.ShouldResemble, want.Camera.Matrix().Float32s())
			test.That(t, got.Camera.ViewDistance, test.ShouldEqual, float64(float32(want.Camera.ViewDistance)))
			test.That(t, got.BrightnessThreshold, test.ShouldEqual, want.BrightnessThreshold)
			test.That(t, got.UseCanny, test.ShouldEqual, want.UseCanny)
			test.That(t, got.CannyLow, test.ShouldEqual, want.CannyLow)
			test.That(t, got.CannyHigh, test.ShouldEqual, want.CannyHigh)
			test.That(t, got.CannyAperture, test.ShouldEqual, want.CannyAperture)
			test.That(t, got.CannySigma, test.ShouldEqual, DefaultCannySigma)
		})
	}
}

func TestSingleConfigurationFields(t *testing.T) {
	want := customSingleConfig(t)
	data, err := MarshalBinary(want)
	test.That(t, err, test.ShouldBeNil)
	cfg, err := UnmarshalBinary(SingleScan, data)
	test.That(t, err, test.ShouldBeNil)
	got, ok := cfg.(*SingleConfig)
	test.That(t, ok, test.ShouldBeTrue)

	test.That(t, got.ReferencePlane.A, test.ShouldEqual, float64(float32(0.1)))
	test.That(t, got.ReferencePlane.D, test.ShouldEqual, float64(float32(301.7)))
	test.That(t, got.LaserPosition.X, test.ShouldEqual, float64(float32(201.3)))
	test.That(t, got.LaserPosition.Z, test.ShouldEqual, float64(float32(0.7)))
	test.That(t, got.AssumeVertical, test.ShouldBeTrue)

	_, err = UnmarshalBinary(SingleScan, data[:len(data)-1])
	test.That(t, err, test.ShouldNotBeNil)
	_, err = UnmarshalBinary(SingleScan, append(data, 0))
	test.That(t, err, test.ShouldNotBeNil)
	// a single record is too short for a corner one
	_, err = UnmarshalBinary(CornerScan, data)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadOrCreateConfiguration(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfiguration(CornerScan, dir)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)

	logger, logs := logging.NewObservedTestLogger(t)
	cfg, err := LoadOrCreateConfiguration(CornerScan, dir, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Type(), test.ShouldEqual, CornerScan)
	test.That(t, logs.FilterMessage("using default scan configuration").Len(), test.ShouldEqual, 1)

	_, err = os.Stat(filepath.Join(dir, "Corner.cfg"))
	test.That(t, err, test.ShouldBeNil)

	// the saved default is loaded the second time
	_, err = LoadOrCreateConfiguration(CornerScan, dir, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logs.FilterMessage("using default scan configuration").Len(), test.ShouldEqual, 1)

	// a corrupt file is replaced
	test.That(t, os.WriteFile(filepath.Join(dir, "Single.cfg"), []byte{1, 2, 3}, 0o600), test.ShouldBeNil)
	cfg, err = LoadOrCreateConfiguration(SingleScan, dir, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Type(), test.ShouldEqual, SingleScan)
	_, err = LoadConfiguration(SingleScan, dir)
	test.That(t, err, test.ShouldBeNil)

	_, err = LoadOrCreateConfiguration(ScanType(9), dir, logger)
	test.That(t, errors.Is(err, ErrUnknownScanType), test.ShouldBeTrue)
}
