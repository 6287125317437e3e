package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lightscan/logging"
)

// runSettings loads the settings named by the global flags, lets the command flags that are
// set take precedence and validates the result. It also returns a logger writing to the app's
// error stream, with the settings' level patterns applied.
func runSettings(c *cli.Context) (*Settings, logging.Logger, error) {
	settings, err := LoadSettings(c.String(flagConfig), c.StringSlice(flagSet))
	if err != nil {
		return nil, nil, err
	}
	if c.IsSet(flagFrames) {
		settings.FrameDir = c.String(flagFrames)
	}
	if c.IsSet(flagScanType) {
		settings.ScanType = c.String(flagScanType)
	}
	if c.IsSet(flagConfigDir) {
		settings.ConfigDir = c.String(flagConfigDir)
	}
	if c.IsSet(flagOutput) {
		settings.Output = c.String(flagOutput)
	}
	if c.IsSet(flagFormat) {
		settings.Format = c.String(flagFormat)
	}
	if c.IsSet(flagWatch) {
		settings.Watch = c.Bool(flagWatch)
	}
	if c.IsSet(flagMerge) {
		settings.Merge = c.Bool(flagMerge)
	}
	if c.IsSet(flagCalib) {
		settings.Calibration = c.String(flagCalib)
	}
	if c.IsSet(flagBackground) {
		settings.BackgroundDir = c.String(flagBackground)
	}
	if c.IsSet(flagPreview) {
		settings.DepthPreview = c.String(flagPreview)
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid settings")
	}

	logger := logging.NewLogger("lightscan", c.App.ErrWriter)
	if len(settings.Log) > 0 {
		if err := logging.UpdateLoggerLevels(settings.Log, logger); err != nil {
			return nil, nil, err
		}
	}
	return settings, logger, nil
}
