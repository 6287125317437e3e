package structuredlight

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/lightscan/rimage/transform"
)

// Extrinsics is the pose of a device relative to the calibration target: a world point X is at
// R*X + Translation in the device frame, where R is the rotation of the axis-angle vector Rotation.
type Extrinsics struct {
	Rotation    [3]float64 `json:"rotation"`
	Translation [3]float64 `json:"translation"`
}

// RotationVector returns Rotation as a vector.
func (e Extrinsics) RotationVector() r3.Vector {
	return r3.Vector{X: e.Rotation[0], Y: e.Rotation[1], Z: e.Rotation[2]}
}

// TranslationVector returns Translation as a vector.
func (e Extrinsics) TranslationVector() r3.Vector {
	return r3.Vector{X: e.Translation[0], Y: e.Translation[1], Z: e.Translation[2]}
}

// Calibration is the result of a projector-camera calibration. The projector is modeled as an
// inverted pinhole camera.
type Calibration struct {
	Camera              transform.PinholeCameraIntrinsics `json:"camera"`
	Projector           transform.PinholeCameraIntrinsics `json:"projector"`
	CameraExtrinsics    Extrinsics                        `json:"camera_extrinsics"`
	ProjectorExtrinsics Extrinsics                        `json:"projector_extrinsics"`
}

// Validate checks both sets of intrinsics.
func (c *Calibration) Validate() error {
	return multierr.Combine(
		errors.Wrap(c.Camera.CheckValid(), "camera"),
		errors.Wrap(c.Projector.CheckValid(), "projector"),
	)
}

// LoadCalibration reads a JSON calibration file.
func LoadCalibration(path string) (*Calibration, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading calibration file")
	}
	calib := &Calibration{}
	if err := json.Unmarshal(data, calib); err != nil {
		return nil, errors.Wrapf(err, "error parsing calibration file %q", path)
	}
	if err := calib.Validate(); err != nil {
		return nil, err
	}
	return calib, nil
}

// SaveCalibration writes the calibration as indented JSON.
func SaveCalibration(calib *Calibration, path string) error {
	data, err := json.MarshalIndent(calib, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
