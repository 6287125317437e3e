package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lightscan/scanner"
	"go.viam.com/lightscan/spatialmath"
)

// ConfigDefaultAction writes the default configuration of a scan type, replacing any saved one.
func ConfigDefaultAction(c *cli.Context) error {
	settings, logger, err := runSettings(c)
	if err != nil {
		return err
	}
	scanType, err := scanner.ParseScanType(settings.ScanType)
	if err != nil {
		return err
	}
	cfg, err := scanner.CreateDefaultConfiguration(scanType)
	if err != nil {
		return err
	}
	if err := scanner.SaveConfiguration(cfg, settings.ConfigDir); err != nil {
		return err
	}
	path := filepath.Join(settings.ConfigDir, scanType.FileName())
	logger.Debugw("default configuration written", "type", scanType.String(), "path", path)
	fmt.Fprintf(c.App.Writer, "wrote default %s configuration to %s\n", scanType, path)
	return nil
}

// ConfigShowAction prints a saved configuration as JSON. A missing or unreadable file falls back
// to the default configuration, which is then saved.
func ConfigShowAction(c *cli.Context) error {
	settings, logger, err := runSettings(c)
	if err != nil {
		return err
	}
	scanType, err := scanner.ParseScanType(settings.ScanType)
	if err != nil {
		return err
	}
	cfg, err := scanner.LoadOrCreateConfiguration(scanType, settings.ConfigDir, logger.Sublogger("config"))
	if err != nil {
		return err
	}
	view, err := newConfigView(cfg)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

type cameraView struct {
	Position     r3.Vector           `json:"position"`
	ViewDistance float64             `json:"view_distance"`
	Matrix       spatialmath.Matrix4 `json:"matrix"`
}

type configView struct {
	Type                string     `json:"type"`
	Camera              cameraView `json:"camera"`
	BrightnessThreshold uint8      `json:"brightness_threshold"`
	UseCanny            bool       `json:"use_canny"`
	CannyLow            float64    `json:"canny_low"`
	CannyHigh           float64    `json:"canny_high"`
	CannyAperture       int        `json:"canny_aperture"`
	CannySigma          float64    `json:"canny_sigma"`

	LeftPlane      *spatialmath.Plane `json:"left_plane,omitempty"`
	RightPlane     *spatialmath.Plane `json:"right_plane,omitempty"`
	ReferencePlane *spatialmath.Plane `json:"reference_plane,omitempty"`
	LaserPosition  *r3.Vector         `json:"laser_position,omitempty"`
	AssumeVertical *bool              `json:"assume_vertical,omitempty"`
}

func newConfigView(cfg scanner.Config) (*configView, error) {
	base := cfg.Base()
	pos, err := base.Camera.Position()
	if err != nil {
		return nil, err
	}
	view := &configView{
		Type: cfg.Type().String(),
		Camera: cameraView{
			Position:     pos,
			ViewDistance: base.Camera.ViewDistance,
			Matrix:       base.Camera.Matrix(),
		},
		BrightnessThreshold: base.BrightnessThreshold,
		UseCanny:            base.UseCanny,
		CannyLow:            base.CannyLow,
		CannyHigh:           base.CannyHigh,
		CannyAperture:       base.CannyAperture,
		CannySigma:          base.CannySigma,
	}
	switch cfg := cfg.(type) {
	case *scanner.CornerConfig:
		view.LeftPlane = &cfg.LeftPlane
		view.RightPlane = &cfg.RightPlane
	case *scanner.SingleConfig:
		view.ReferencePlane = &cfg.ReferencePlane
		view.LaserPosition = &cfg.LaserPosition
		view.AssumeVertical = &cfg.AssumeVertical
	default:
		return nil, errors.Errorf("unexpected configuration type %T", cfg)
	}
	return view, nil
}
