package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lightscan/pointcloud"
)

// MergeAction reads point cloud files taken at known turntable angles and writes them as one
// cloud in the coordinates of the first.
func MergeAction(c *cli.Context) error {
	settings, logger, err := runSettings(c)
	if err != nil {
		return err
	}
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return errors.New("no input files given")
	}
	rotations := c.Float64Slice(flagRotations)
	if len(rotations) != 0 && len(rotations) != len(inputs) {
		return errors.Errorf("got %d rotations for %d input files", len(rotations), len(inputs))
	}

	frames := make(pointcloud.FrameList, 0, len(inputs))
	for i, fn := range inputs {
		points, err := pointcloud.ReadFile(fn, logger)
		if err != nil {
			return errors.Wrapf(err, "reading %q", fn)
		}
		frame := pointcloud.ScannerFrame{Points: points}
		if len(rotations) != 0 {
			frame.Rotation = rotations[i]
		}
		logger.Debugw("read point cloud", "file", fn, "points", len(points), "rotation", frame.Rotation)
		frames = append(frames, frame)
	}
	frames = frames.NonEmpty()
	if len(frames) == 0 {
		return errors.New("input files hold no points")
	}

	if err := writePoints(frames.Merge(), settings.Output, settings.OutputFormat()); err != nil {
		return err
	}
	summary, err := frames.Summarize()
	if err != nil {
		return err
	}
	printSummary(c, summary, settings.Output)
	return nil
}
