package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is returned, wrapped, for missing or unusable intrinsics.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError wraps ErrNoIntrinsics with msg.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics is an ideal pinhole without lens distortion, in pixels. A projector is
// modeled the same way, with rays leaving instead of entering.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid requires a positive size and focal lengths and a non-negative principal point.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("intrinsics missing")
	}
	switch {
	case params.Width <= 0 || params.Height <= 0:
		return NewNoIntrinsicsError(fmt.Sprintf("size %dx%d must be positive", params.Width, params.Height))
	case params.Fx <= 0 || params.Fy <= 0:
		return NewNoIntrinsicsError(fmt.Sprintf("focal length (%g, %g) must be positive", params.Fx, params.Fy))
	case params.Ppx < 0 || params.Ppy < 0:
		return NewNoIntrinsicsError(fmt.Sprintf("principal point (%g, %g) must not be negative", params.Ppx, params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile reads and validates intrinsics stored as JSON.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read intrinsics")
	}
	var intrinsics PinholeCameraIntrinsics
	if err := json.Unmarshal(data, &intrinsics); err != nil {
		return nil, errors.Wrapf(err, "cannot parse intrinsics %s", jsonPath)
	}
	return &intrinsics, intrinsics.CheckValid()
}

// Matrix returns the 3x3 camera matrix K.
func (params *PinholeCameraIntrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		params.Fx, 0, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	})
}

// PixelToPoint returns the sensor frame point at depth z behind pixel (x, y).
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return 0, 0, 0
	}
	return z * (x - params.Ppx) / params.Fx, z * (y - params.Ppy) / params.Fy, z
}

// PointToPixel projects a sensor frame point to the nearest pixel. Points at zero depth map to
// (-1, -1), outside every image.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z == 0 {
		return -1, -1
	}
	return math.Round(x/z*params.Fx + params.Ppx), math.Round(y/z*params.Fy + params.Ppy)
}

// PixelRay returns the unit direction, in the sensor frame, of the ray through pixel (x, y).
func (params *PinholeCameraIntrinsics) PixelRay(x, y float64) r3.Vector {
	px, py, pz := params.PixelToPoint(x, y, 1)
	return r3.Vector{X: px, Y: py, Z: pz}.Normalize()
}

// Rays returns PixelRay for every pixel, indexed by y*Width+x.
func (params *PinholeCameraIntrinsics) Rays() []r3.Vector {
	rays := make([]r3.Vector, 0, params.Width*params.Height)
	for y := 0; y < params.Height; y++ {
		for x := 0; x < params.Width; x++ {
			rays = append(rays, params.PixelRay(float64(x), float64(y)))
		}
	}
	return rays
}
