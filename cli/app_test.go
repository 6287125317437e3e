package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.viam.com/test"

	"go.viam.com/lightscan/logging"
	"go.viam.com/lightscan/pointcloud"
	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/scanner"
	"go.viam.com/lightscan/structuredlight"
)

// newTestContext returns a context for a command with the given flags, parsed from args.
func newTestContext(t *testing.T, flags func(*flag.FlagSet), args ...string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	app := &cli.App{Writer: out, ErrWriter: &bytes.Buffer{}}
	set := flag.NewFlagSet("test", 0)
	set.String(flagConfig, "", "")
	if flags != nil {
		flags(set)
	}
	test.That(t, set.Parse(args), test.ShouldBeNil)
	return cli.NewContext(app, set, nil), out
}

func scanFlags(set *flag.FlagSet) {
	for _, name := range []string{flagFrames, flagScanType, flagConfigDir, flagOutput, flagFormat} {
		set.String(name, "", "")
	}
	set.Bool(flagWatch, false, "")
	set.Bool(flagMerge, false, "")
}

func writeFrames(t *testing.T, frames ...*rimage.ColorBuffer) string {
	t.Helper()
	dir := t.TempDir()
	for i, f := range frames {
		test.That(t, rimage.SaveImage(f.ToImage(), filepath.Join(dir, fmt.Sprintf("%03d.png", i))), test.ShouldBeNil)
	}
	return dir
}

func TestScanAction(t *testing.T) {
	configDir := t.TempDir()
	test.That(t, scanner.SaveConfiguration(testCornerConfig(t), configDir), test.ShouldBeNil)
	frames := writeFrames(t, laserFrame(false), laserFrame(false), laserFrame(true))
	output := filepath.Join(t.TempDir(), "scan.ply")

	c, out := newTestContext(t, scanFlags,
		"--frames", frames, "--config-dir", configDir, "--output", output)
	test.That(t, ScanAction(c), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring,
		fmt.Sprintf("wrote %d points from 1 frames", frameWidth-2*scanner.Inset))

	points, err := pointcloud.ReadPLYFile(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(points), test.ShouldEqual, frameWidth-2*scanner.Inset)
	test.That(t, points[0].HasColor, test.ShouldBeTrue)
}

func TestScanActionWatchUntilDone(t *testing.T) {
	configDir := t.TempDir()
	test.That(t, scanner.SaveConfiguration(testCornerConfig(t), configDir), test.ShouldBeNil)
	frames := writeFrames(t, laserFrame(false), laserFrame(false), laserFrame(true))
	output := filepath.Join(t.TempDir(), "watched.ply")

	c, out := newTestContext(t, scanFlags,
		"--frames", frames, "--config-dir", configDir, "--output", output, "--watch")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Context = ctx

	// the watched directory never runs dry; the deadline ends the run and the scan is still written
	test.That(t, ScanAction(c), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring,
		fmt.Sprintf("wrote %d points from 1 frames", frameWidth-2*scanner.Inset))

	points, err := pointcloud.ReadPLYFile(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(points), test.ShouldEqual, frameWidth-2*scanner.Inset)
}

func TestScanActionErrors(t *testing.T) {
	c, _ := newTestContext(t, scanFlags)
	err := ScanAction(c)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no frame directory")

	c, _ = newTestContext(t, scanFlags, "--frames", t.TempDir(), "--type", "spiral")
	test.That(t, ScanAction(c), test.ShouldNotBeNil)

	// a dark sequence reconstructs nothing
	configDir := t.TempDir()
	frames := writeFrames(t, laserFrame(false), laserFrame(false), laserFrame(false))
	c, _ = newTestContext(t, scanFlags, "--frames", frames, "--config-dir", configDir,
		"--output", filepath.Join(t.TempDir(), "scan.ply"))
	err = ScanAction(c)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no points reconstructed")
	// the missing configuration was created on the way
	_, err = os.Stat(filepath.Join(configDir, "Corner.cfg"))
	test.That(t, err, test.ShouldBeNil)
}

func TestConfigActions(t *testing.T) {
	configFlags := func(set *flag.FlagSet) {
		set.String(flagScanType, "", "")
		set.String(flagConfigDir, "", "")
	}
	dir := t.TempDir()
	c, out := newTestContext(t, configFlags, "--type", "single", "--config-dir", dir)
	test.That(t, ConfigDefaultAction(c), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, filepath.Join(dir, "Single.cfg"))

	cfg, err := scanner.LoadConfiguration(scanner.SingleScan, dir)
	test.That(t, err, test.ShouldBeNil)
	single := cfg.(*scanner.SingleConfig)
	single.LaserPosition = r3.Vector{X: 150}
	single.AssumeVertical = true
	test.That(t, scanner.SaveConfiguration(single, dir), test.ShouldBeNil)

	c, out = newTestContext(t, configFlags, "--type", "single", "--config-dir", dir)
	test.That(t, ConfigShowAction(c), test.ShouldBeNil)
	var view configView
	test.That(t, json.Unmarshal(out.Bytes(), &view), test.ShouldBeNil)
	test.That(t, view.Type, test.ShouldEqual, "single")
	test.That(t, view.LaserPosition.X, test.ShouldAlmostEqual, 150)
	test.That(t, *view.AssumeVertical, test.ShouldBeTrue)
	test.That(t, view.LeftPlane, test.ShouldBeNil)
}

func TestSchemaAction(t *testing.T) {
	c, out := newTestContext(t, nil)
	test.That(t, SchemaAction(c), test.ShouldBeNil)
	var schemas map[string]any
	test.That(t, json.Unmarshal(out.Bytes(), &schemas), test.ShouldBeNil)
	test.That(t, schemas, test.ShouldContainKey, "settings")
	test.That(t, schemas, test.ShouldContainKey, "calibration")
	test.That(t, out.String(), test.ShouldContainSubstring, "structured_light")
	test.That(t, out.String(), test.ShouldContainSubstring, "projector_extrinsics")
}

func TestSettingsAction(t *testing.T) {
	fn := writeSettingsFile(t, `{"scan_type": "single"}`)
	c, out := newTestContext(t, func(set *flag.FlagSet) {
		set.Var(cli.NewStringSlice(), flagSet, "")
	}, "--config", fn, "--set", "structured_light.thresh=64")
	test.That(t, SettingsAction(c), test.ShouldBeNil)

	var settings Settings
	test.That(t, json.Unmarshal(out.Bytes(), &settings), test.ShouldBeNil)
	test.That(t, settings.ScanType, test.ShouldEqual, "single")
	test.That(t, settings.StructuredLight.Thresh, test.ShouldEqual, 64)
}

func TestStructuredLightPatternsAction(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "patterns")
	c, out := newTestContext(t, func(set *flag.FlagSet) {
		set.String(flagDir, "", "")
		set.Var(cli.NewStringSlice(), flagSet, "")
	}, "--dir", dir,
		"--set", "structured_light.proj_width=100",
		"--set", "structured_light.proj_height=6")
	test.That(t, StructuredLightPatternsAction(c), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "wrote 22 patterns (7 column and 3 row bit planes)")

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 22)
}

func TestStructuredLightReconstructActionErrors(t *testing.T) {
	slFlags := func(set *flag.FlagSet) {
		for _, name := range []string{flagFrames, flagCalib, flagBackground, flagOutput, flagFormat, flagPreview} {
			set.String(name, "", "")
		}
	}
	c, _ := newTestContext(t, slFlags, "--frames", t.TempDir())
	err := StructuredLightReconstructAction(c)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no calibration")

	// the calibration must match the configured camera and projector
	calib := filepath.Join(t.TempDir(), "calibration.json")
	test.That(t, structuredlight.SaveCalibration(&structuredlight.Calibration{}, calib), test.ShouldBeNil)
	c, _ = newTestContext(t, slFlags, "--frames", t.TempDir(), "--calibration", calib)
	test.That(t, StructuredLightReconstructAction(c), test.ShouldNotBeNil)
}

func TestMergeAction(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.ply")
	second := filepath.Join(dir, "second.pcd")
	test.That(t, pointcloud.WritePLYFile([]pointcloud.Point3D{
		pointcloud.NewPoint(r3.Vector{X: 100}, r3.Vector{Z: 100}),
	}, first), test.ShouldBeNil)
	f, err := os.Create(second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.WritePCD([]pointcloud.Point3D{
		pointcloud.NewPoint(r3.Vector{X: 200}, r3.Vector{Z: 200}),
	}, f, pointcloud.PCDAscii), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	output := filepath.Join(dir, "merged.ply")
	c, out := newTestContext(t, func(set *flag.FlagSet) {
		set.String(flagOutput, "", "")
		set.String(flagFormat, "", "")
		set.Var(cli.NewFloat64Slice(), flagRotations, "")
	}, "--output", output, "--rotations", "0", "--rotations", "90", first, second)
	test.That(t, MergeAction(c), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "wrote 2 points from 2 frames")

	points, err := pointcloud.ReadFile(output, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(points), test.ShouldEqual, 2)
	test.That(t, points[0].World.X, test.ShouldAlmostEqual, 100, 1e-3)
	// a quarter turn about z takes +x to +y
	test.That(t, points[1].World.X, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, points[1].World.Y, test.ShouldAlmostEqual, 200, 1e-3)

	c, _ = newTestContext(t, func(set *flag.FlagSet) {
		set.String(flagOutput, "", "")
		set.Var(cli.NewFloat64Slice(), flagRotations, "")
	}, "--output", output, "--rotations", "0", first, second)
	test.That(t, MergeAction(c), test.ShouldNotBeNil)
}

func TestAppDebugFlag(t *testing.T) {
	defer logging.GlobalLogLevel.SetLevel(zap.InfoLevel)
	out := &bytes.Buffer{}
	app := NewApp(out, &bytes.Buffer{})
	test.That(t, app.Run([]string{"lightscan", "--debug", "schema"}), test.ShouldBeNil)
	test.That(t, logging.GlobalLogLevel.Level(), test.ShouldEqual, zap.DebugLevel)
	test.That(t, out.String(), test.ShouldContainSubstring, "settings")
}
