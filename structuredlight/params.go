// Package structuredlight reconstructs surfaces lit by a projector showing Gray-code patterns.
// A captured sequence is decoded into per-pixel projector correspondences, which are then
// triangulated against the calibrated projector-camera geometry.
package structuredlight

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Mode selects how a camera pixel is triangulated against the projector.
type Mode int

const (
	// RayPlane intersects the camera ray with the decoded projector column and row planes.
	RayPlane Mode = 1
	// RayRay takes the closest approach of the camera ray and the decoded projector ray.
	RayRay Mode = 2
)

func (m Mode) String() string {
	switch m {
	case RayPlane:
		return "ray-plane"
	case RayRay:
		return "ray-ray"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ray-plane":
		return RayPlane, nil
	case "ray-ray":
		return RayRay, nil
	default:
		return 0, errors.Errorf("unknown reconstruction mode %q", s)
	}
}

// Params controls pattern generation, decoding and reconstruction. Distances are in the units of
// the calibration, normally millimeters.
type Params struct {
	CamWidth   int  `json:"cam_width"`
	CamHeight  int  `json:"cam_height"`
	ProjWidth  int  `json:"proj_width"`
	ProjHeight int  `json:"proj_height"`
	ProjInvert bool `json:"proj_invert,omitempty"`

	// Gains are percentages; 50 leaves an image unchanged and 100 doubles it.
	CamGain  int `json:"cam_gain"`
	ProjGain int `json:"proj_gain"`

	Mode     Mode `json:"mode"`
	ScanCols bool `json:"scan_cols"`
	ScanRows bool `json:"scan_rows"`
	// DelayMs is the time a pattern is shown before its frame is captured.
	DelayMs int `json:"delay_ms"`
	// Thresh is the minimum contrast between a pattern and its inverse for a bit to be trusted.
	Thresh                int        `json:"thresh"`
	DistRange             [2]float64 `json:"dist_range"`
	DistReject            float64    `json:"dist_reject"`
	BackgroundDepthThresh float64    `json:"background_depth_thresh"`
}

// DefaultParams returns the parameters of a 960x720 camera and a 1024x768 projector
// reconstructing with both columns and rows.
func DefaultParams() Params {
	return Params{
		CamWidth:              960,
		CamHeight:             720,
		ProjWidth:             1024,
		ProjHeight:            768,
		CamGain:               50,
		ProjGain:              50,
		Mode:                  RayRay,
		ScanCols:              true,
		ScanRows:              true,
		DelayMs:               200,
		Thresh:                32,
		DistRange:             [2]float64{0, 1e4},
		DistReject:            10,
		BackgroundDepthThresh: 20,
	}
}

// Delay returns DelayMs as a duration.
func (p Params) Delay() time.Duration {
	return time.Duration(p.DelayMs) * time.Millisecond
}

// Normalize enables both columns and rows in ray-ray mode, which needs a full projector pixel.
func (p *Params) Normalize() {
	if p.Mode == RayRay {
		p.ScanCols = true
		p.ScanRows = true
	}
}

// Validate reports every invalid field.
func (p Params) Validate() error {
	var err error
	if p.CamWidth <= 0 || p.CamHeight <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid camera size %dx%d", p.CamWidth, p.CamHeight))
	}
	if p.ProjWidth <= 0 || p.ProjHeight <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid projector size %dx%d", p.ProjWidth, p.ProjHeight))
	}
	if p.Mode != RayPlane && p.Mode != RayRay {
		err = multierr.Append(err, errors.Errorf("unknown reconstruction mode %d", int(p.Mode)))
	}
	if !p.ScanCols && !p.ScanRows {
		err = multierr.Append(err, errors.New("at least one of scan_cols and scan_rows must be set"))
	}
	if p.Thresh < 0 || p.Thresh > 255 {
		err = multierr.Append(err, errors.Errorf("contrast threshold %d is outside [0, 255]", p.Thresh))
	}
	if p.DistRange[0] > p.DistRange[1] {
		err = multierr.Append(err, errors.Errorf("distance range [%g, %g] is empty", p.DistRange[0], p.DistRange[1]))
	}
	if p.DistReject < 0 {
		err = multierr.Append(err, errors.Errorf("negative rejection distance %g", p.DistReject))
	}
	if p.CamGain < 0 || p.ProjGain < 0 {
		err = multierr.Append(err, errors.Errorf("negative gain (camera %d, projector %d)", p.CamGain, p.ProjGain))
	}
	return err
}

// gainScale converts a gain percentage to the factor applied to pixel values.
func gainScale(gain int) float64 {
	return 2 * float64(gain) / 100
}
