package cli

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/lightscan/pointcloud"
	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/scanner"
)

// ScanAction reconstructs a laser line scan. The first frame of the directory is the reference
// image taken without the laser; every later frame is differenced against its predecessor and
// reconstructed at the next turntable rotation.
func ScanAction(c *cli.Context) (err error) {
	settings, logger, err := runSettings(c)
	if err != nil {
		return err
	}
	if settings.FrameDir == "" {
		return errors.New("no frame directory given, use --frames or frame_dir")
	}
	scanType, err := scanner.ParseScanType(settings.ScanType)
	if err != nil {
		return err
	}
	cfg, err := scanner.LoadOrCreateConfiguration(scanType, settings.ConfigDir, logger.Sublogger("config"))
	if err != nil {
		return err
	}
	strategy, err := scanner.NewStrategy(cfg)
	if err != nil {
		return err
	}

	var source rimage.FrameSource
	if settings.Watch {
		source, err = rimage.WatchDirectorySource(settings.FrameDir)
	} else {
		source, err = rimage.NewDirectorySource(settings.FrameDir)
	}
	if err != nil {
		return err
	}
	processor := rimage.NewProcessor(source, logger.Sublogger("processor"))
	defer func() {
		err = multierr.Combine(err, processor.Close())
	}()
	if err := processor.SetReference(c.Context); err != nil {
		return err
	}

	session := scanner.NewSession(strategy, processor, logger.Sublogger("session"))
	if err := session.StartScan(); err != nil {
		return err
	}
	runner := NewRunner(session, processor, clock.New(), settings.FrameInterval(), settings.DegreesPerFrame,
		logger.Sublogger("runner"))
	stats, runErr := runner.Run(c.Context)
	session.EndScan()
	if runErr != nil {
		return runErr
	}

	frames := session.Frames()
	logger.Infow("scan finished", "frames_read", stats.Frames, "frames_added", stats.Added, "frames_dropped", stats.Dropped)
	if frames.Size() == 0 {
		return errors.Errorf("no points reconstructed from %d frames", stats.Frames)
	}
	points := frames.Composite()
	if settings.Merge {
		points = frames.Merge()
	}
	if err := writePoints(points, settings.Output, settings.OutputFormat()); err != nil {
		return err
	}

	summary, err := frames.Summarize()
	if err != nil {
		return err
	}
	printSummary(c, summary, settings.Output)
	return nil
}

func printSummary(c *cli.Context, s pointcloud.Summary, output string) {
	fmt.Fprintf(c.App.Writer, "wrote %d points", s.Points)
	if s.Frames > 0 {
		fmt.Fprintf(c.App.Writer, " from %d frames (%.1f per frame)", s.Frames, s.MeanPointsPerFrame)
	}
	fmt.Fprintf(c.App.Writer, " to %s\n", output)
	fmt.Fprintf(c.App.Writer, "depth: mean %.2f, stddev %.2f, min %.2f, median %.2f, p95 %.2f, max %.2f\n",
		s.MeanDepth, s.StdDevDepth, s.MinDepth, s.MedianDepth, s.P95Depth, s.MaxDepth)
}
