package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/lightscan/pointcloud"
	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/structuredlight"
)

// StructuredLightReconstructAction decodes and triangulates a captured Gray-code sequence,
// optionally segmenting it against a background sequence of the empty scene.
func StructuredLightReconstructAction(c *cli.Context) error {
	settings, logger, err := runSettings(c)
	if err != nil {
		return err
	}
	switch {
	case settings.FrameDir == "":
		return errors.New("no frame directory given, use --frames or frame_dir")
	case settings.Calibration == "":
		return errors.New("no calibration given, use --calibration or calibration")
	}
	calib, err := structuredlight.LoadCalibration(settings.Calibration)
	if err != nil {
		return err
	}
	sc, err := structuredlight.NewScanner(settings.StructuredLight, calib, logger.Sublogger("structured_light"))
	if err != nil {
		return err
	}

	if settings.BackgroundDir != "" {
		if err := scanDirectory(c.Context, settings.BackgroundDir, func(ctx context.Context, src rimage.FrameSource) error {
			_, err := sc.CaptureBackground(ctx, src)
			return err
		}); err != nil {
			return errors.Wrap(err, "background")
		}
	}

	var rec *structuredlight.Reconstruction
	if err := scanDirectory(c.Context, settings.FrameDir, func(ctx context.Context, src rimage.FrameSource) error {
		var err error
		rec, err = sc.Scan(ctx, src)
		return err
	}); err != nil {
		return err
	}

	if settings.DepthPreview != "" {
		if err := structuredlight.SaveDepthPreview(rec, settings.DepthPreview); err != nil {
			return err
		}
	}
	points := rec.PointCloud()
	if len(points) == 0 {
		return errors.New("no points reconstructed")
	}
	if err := writePoints(points, settings.Output, settings.OutputFormat()); err != nil {
		return err
	}
	summary, err := pointcloud.Summarize(points)
	if err != nil {
		return err
	}
	printSummary(c, summary, settings.Output)
	return nil
}

// scanDirectory runs fn on a frame source reading the images in dir, closing the source after.
func scanDirectory(ctx context.Context, dir string, fn func(context.Context, rimage.FrameSource) error) error {
	src, err := rimage.NewDirectorySource(dir)
	if err != nil {
		return err
	}
	return multierr.Combine(fn(ctx, src), src.Close())
}

// StructuredLightPatternsAction writes the images the projector must show, in order.
func StructuredLightPatternsAction(c *cli.Context) error {
	settings, _, err := runSettings(c)
	if err != nil {
		return err
	}
	params := settings.StructuredLight
	params.Normalize()
	codes, err := params.GrayCodes()
	if err != nil {
		return err
	}
	dir := c.String(flagDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	paths, err := structuredlight.ExportPatterns(codes, dir, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d patterns (%d column and %d row bit planes) to %s\n",
		len(paths), codes.NCols, codes.NRows, dir)
	return nil
}
