// Package cli contains the lightscan command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"go.viam.com/lightscan/logging"
)

const (
	// Global flags.
	flagDebug  = "debug"
	flagConfig = "config"
	flagSet    = "set"

	// Command flags.
	flagFrames     = "frames"
	flagOutput     = "output"
	flagFormat     = "format"
	flagWatch      = "watch"
	flagMerge      = "merge"
	flagScanType   = "type"
	flagConfigDir  = "config-dir"
	flagCalib      = "calibration"
	flagBackground = "background"
	flagPreview    = "depth-preview"
	flagDir        = "dir"
	flagRotations  = "rotations"
)

var app = &cli.App{
	Name:            "lightscan",
	Usage:           "reconstruct 3D point clouds from laser line and structured light scans",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load run settings from `FILE`",
		},
		&cli.StringSliceFlag{
			Name:  flagSet,
			Usage: "override one run setting, as in structured_light.thresh=40",
		},
	},
	Before: func(c *cli.Context) error {
		if c.Bool(flagDebug) {
			logging.GlobalLogLevel.SetLevel(zap.DebugLevel)
			c.Context = logging.EnableDebugMode(c.Context, "")
		}
		return nil
	},
	Commands: []*cli.Command{
		{
			Name:      "scan",
			Usage:     "reconstruct a laser line scan from a directory of frames",
			UsageText: "lightscan scan --frames DIR [--output FILE]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagFrames,
					Usage: "directory of captured frames; the first is the reference image",
				},
				&cli.StringFlag{
					Name:  flagScanType,
					Usage: "scan type, corner or single",
				},
				&cli.StringFlag{
					Name:  flagConfigDir,
					Usage: "directory holding the scanner configuration files",
				},
				&cli.StringFlag{
					Name:    flagOutput,
					Aliases: []string{"o"},
					Usage:   "write the point cloud to `FILE`",
				},
				&cli.StringFlag{
					Name:  flagFormat,
					Usage: "point cloud format: ply, pcd, pcd_binary, las or vrml",
				},
				&cli.BoolFlag{
					Name:  flagWatch,
					Usage: "keep waiting for new frames until interrupted",
				},
				&cli.BoolFlag{
					Name:  flagMerge,
					Usage: "rotate every frame by its turntable angle before export",
				},
			},
			Action: ScanAction,
		},
		{
			Name:            "structured-light",
			Aliases:         []string{"sl"},
			Usage:           "work with Gray-code structured light scans",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:      "reconstruct",
					Usage:     "triangulate a captured Gray-code sequence",
					UsageText: "lightscan structured-light reconstruct --frames DIR --calibration FILE",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  flagFrames,
							Usage: "directory of the captured sequence in projection order",
						},
						&cli.StringFlag{
							Name:  flagCalib,
							Usage: "projector-camera calibration JSON `FILE`",
						},
						&cli.StringFlag{
							Name:  flagBackground,
							Usage: "directory of a sequence captured without the object",
						},
						&cli.StringFlag{
							Name:    flagOutput,
							Aliases: []string{"o"},
							Usage:   "write the point cloud to `FILE`",
						},
						&cli.StringFlag{
							Name:  flagFormat,
							Usage: "point cloud format: ply, pcd, pcd_binary, las or vrml",
						},
						&cli.StringFlag{
							Name:  flagPreview,
							Usage: "write a colorized depth map to `FILE`",
						},
					},
					Action: StructuredLightReconstructAction,
				},
				{
					Name:      "patterns",
					Usage:     "write the projected pattern sequence as numbered PNG files",
					UsageText: "lightscan structured-light patterns --dir DIR",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     flagDir,
							Usage:    "output directory",
							Required: true,
						},
					},
					Action: StructuredLightPatternsAction,
				},
			},
		},
		{
			Name:            "config",
			Usage:           "manage scanner configuration files",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:  "default",
					Usage: "write the default configuration of a scan type",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: flagScanType, Usage: "scan type, corner or single"},
						&cli.StringFlag{Name: flagConfigDir, Usage: "directory to write the configuration to"},
					},
					Action: ConfigDefaultAction,
				},
				{
					Name:  "show",
					Usage: "print a configuration as JSON, falling back to the default",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: flagScanType, Usage: "scan type, corner or single"},
						&cli.StringFlag{Name: flagConfigDir, Usage: "directory holding the configuration"},
					},
					Action: ConfigShowAction,
				},
			},
		},
		{
			Name:   "settings",
			Usage:  "print the effective run settings as JSON",
			Action: SettingsAction,
		},
		{
			Name:   "schema",
			Usage:  "print the JSON schema of the run settings and the calibration file",
			Action: SchemaAction,
		},
		{
			Name:      "merge",
			Usage:     "combine point cloud files captured at known turntable angles",
			UsageText: "lightscan merge --output FILE [--rotations 0,90,...] FILE...",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagOutput,
					Aliases:  []string{"o"},
					Usage:    "write the merged cloud to `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagFormat,
					Usage: "point cloud format: ply, pcd, pcd_binary, las or vrml",
				},
				&cli.Float64SliceFlag{
					Name:  flagRotations,
					Usage: "turntable angle in degrees of each input, in order",
				},
			},
			Action: MergeAction,
		},
	},
}

// NewApp returns the lightscan application writing to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
