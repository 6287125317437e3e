// Package scanner triangulates a laser line swept across an object into 3D points. A Strategy
// turns each difference image into the plane of laser light, and a Session reconstructs and
// accumulates the points that plane lights up.
package scanner

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/lightscan/logging"
	"go.viam.com/lightscan/rimage/transform"
	"go.viam.com/lightscan/spatialmath"
)

// ErrUnknownScanType is returned for a scan type other than corner or single.
var ErrUnknownScanType = errors.New("unknown scan type")

// ScanType selects the reference geometry a scan is triangulated against.
type ScanType int

const (
	// CornerScan scans in front of two walls meeting at a corner.
	CornerScan ScanType = iota
	// SingleScan scans in front of one back wall with a fixed laser.
	SingleScan
)

func (t ScanType) String() string {
	switch t {
	case CornerScan:
		return "corner"
	case SingleScan:
		return "single"
	default:
		return "unknown"
	}
}

// ParseScanType parses the String form of a ScanType.
func ParseScanType(s string) (ScanType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "corner":
		return CornerScan, nil
	case "single":
		return SingleScan, nil
	default:
		return 0, errors.Wrapf(ErrUnknownScanType, "%q", s)
	}
}

// FileName is the name a configuration of this type is saved under.
func (t ScanType) FileName() string {
	switch t {
	case CornerScan:
		return "Corner.cfg"
	case SingleScan:
		return "Single.cfg"
	default:
		return ""
	}
}

// Default detection parameters.
const (
	DefaultBrightnessThreshold = 128
	DefaultCannyLow            = 10
	DefaultCannyHigh           = 100
	DefaultCannyAperture       = 3
	DefaultCannySigma          = 1.0
)

// BaseConfig holds the settings shared by every scan type.
type BaseConfig struct {
	Camera *transform.Camera

	// BrightnessThreshold is the lowest difference value that counts as laser light.
	BrightnessThreshold uint8

	// UseCanny runs edge detection on the difference image and takes the first edge on each
	// scan line instead of the brightest pixel.
	UseCanny      bool
	CannyLow      float64
	CannyHigh     float64
	CannyAperture int
	// CannySigma is the gaussian pre-smoothing applied before edge detection; 0 turns it off.
	// It is not part of the binary record and reads back as DefaultCannySigma.
	CannySigma float64
}

func defaultBase(cam *transform.Camera) BaseConfig {
	return BaseConfig{
		Camera:              cam,
		BrightnessThreshold: DefaultBrightnessThreshold,
		CannyLow:            DefaultCannyLow,
		CannyHigh:           DefaultCannyHigh,
		CannyAperture:       DefaultCannyAperture,
		CannySigma:          DefaultCannySigma,
	}
}

// Config is a scan configuration: a CornerConfig or a SingleConfig.
type Config interface {
	Type() ScanType
	Base() *BaseConfig
}

// CornerConfig triangulates against two walls. The laser line crosses the left wall on the left
// of the image and the right wall on the right.
type CornerConfig struct {
	BaseConfig
	LeftPlane  spatialmath.Plane
	RightPlane spatialmath.Plane
}

// Type returns CornerScan.
func (c *CornerConfig) Type() ScanType { return CornerScan }

// Base returns the shared settings.
func (c *CornerConfig) Base() *BaseConfig { return &c.BaseConfig }

// SingleConfig triangulates against one back wall and the known position of the laser.
type SingleConfig struct {
	BaseConfig
	ReferencePlane spatialmath.Plane
	LaserPosition  r3.Vector

	// AssumeVertical treats the laser plane as vertical instead of measuring its tilt.
	AssumeVertical bool
}

// Type returns SingleScan.
func (c *SingleConfig) Type() ScanType { return SingleScan }

// Base returns the shared settings.
func (c *SingleConfig) Base() *BaseConfig { return &c.BaseConfig }

// NewCornerConfig returns the default corner setup viewed from (200, 200, 0): the left wall y=0
// and the right wall x=0, meeting along the z axis.
func NewCornerConfig() (*CornerConfig, error) {
	cam := transform.NewCamera(350)
	cam.SetPosition(r3.Vector{X: 200, Y: 200})
	if err := cam.LookAt(r3.Vector{}, r3.Vector{Z: 1}); err != nil {
		return nil, err
	}
	return &CornerConfig{
		BaseConfig: defaultBase(cam),
		LeftPlane:  spatialmath.Plane{A: 0, B: 1, C: 0, D: 0},
		RightPlane: spatialmath.Plane{A: 1, B: 0, C: 0, D: 0},
	}, nil
}

// NewSingleConfig returns the default single wall setup: a wall at y=300, the camera at the
// origin and the laser at (200, 0, 0).
func NewSingleConfig() (*SingleConfig, error) {
	cam := transform.NewCamera(500)
	if err := cam.LookAt(r3.Vector{Y: 100}, r3.Vector{Z: 1}); err != nil {
		return nil, err
	}
	cam.Rotate(0.5, 0.5, 0)
	return &SingleConfig{
		BaseConfig:     defaultBase(cam),
		ReferencePlane: spatialmath.Plane{A: 0, B: -1, C: 0, D: 300},
		LaserPosition:  r3.Vector{X: 200},
	}, nil
}

// CreateDefaultConfiguration returns the default configuration for t.
func CreateDefaultConfiguration(t ScanType) (Config, error) {
	switch t {
	case CornerScan:
		return NewCornerConfig()
	case SingleScan:
		return NewSingleConfig()
	default:
		return nil, errors.Wrapf(ErrUnknownScanType, "%d", int(t))
	}
}

// baseRecord is the on-disk layout of BaseConfig. Every record is little endian with no padding.
type baseRecord struct {
	Matrix        [16]float32
	ViewDistance  float32
	Brightness    uint8
	UseCanny      uint8
	CannyLow      float64
	CannyHigh     float64
	CannyAperture int32
}

type cornerRecord struct {
	Left  [4]float32
	Right [4]float32
}

type singleRecord struct {
	Plane          [4]float32
	Laser          [3]float32
	AssumeVertical uint8
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func planeRecord(p spatialmath.Plane) [4]float32 {
	return [4]float32{float32(p.A), float32(p.B), float32(p.C), float32(p.D)}
}

func planeFromRecord(r [4]float32) spatialmath.Plane {
	return spatialmath.Plane{A: float64(r[0]), B: float64(r[1]), C: float64(r[2]), D: float64(r[3])}
}

func newBaseRecord(b *BaseConfig) baseRecord {
	rec := baseRecord{
		Brightness:    b.BrightnessThreshold,
		UseCanny:      boolByte(b.UseCanny),
		CannyLow:      b.CannyLow,
		CannyHigh:     b.CannyHigh,
		CannyAperture: int32(b.CannyAperture),
	}
	if b.Camera != nil {
		rec.Matrix = b.Camera.Matrix().Float32s()
		rec.ViewDistance = float32(b.Camera.ViewDistance)
	}
	return rec
}

func (r baseRecord) config() BaseConfig {
	return BaseConfig{
		Camera:              transform.NewCameraFromMatrix(spatialmath.Matrix4FromFloat32s(r.Matrix), float64(r.ViewDistance)),
		BrightnessThreshold: r.Brightness,
		UseCanny:            r.UseCanny != 0,
		CannyLow:            r.CannyLow,
		CannyHigh:           r.CannyHigh,
		CannyAperture:       int(r.CannyAperture),
		CannySigma:          DefaultCannySigma,
	}
}

// MarshalBinary encodes cfg as its fixed size record. Values are stored as float32 where the
// record calls for it, so a round trip is exact only for values representable in float32.
func MarshalBinary(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, newBaseRecord(cfg.Base())); err != nil {
		return nil, err
	}
	var ext interface{}
	switch c := cfg.(type) {
	case *CornerConfig:
		ext = cornerRecord{Left: planeRecord(c.LeftPlane), Right: planeRecord(c.RightPlane)}
	case *SingleConfig:
		ext = singleRecord{
			Plane:          planeRecord(c.ReferencePlane),
			Laser:          [3]float32{float32(c.LaserPosition.X), float32(c.LaserPosition.Y), float32(c.LaserPosition.Z)},
			AssumeVertical: boolByte(c.AssumeVertical),
		}
	default:
		return nil, errors.Wrapf(ErrUnknownScanType, "%T", cfg)
	}
	if err := binary.Write(&buf, binary.LittleEndian, ext); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a record written by MarshalBinary for scan type t.
func UnmarshalBinary(t ScanType, data []byte) (Config, error) {
	r := bytes.NewReader(data)
	var base baseRecord
	if err := binary.Read(r, binary.LittleEndian, &base); err != nil {
		return nil, errors.Wrap(err, "reading base configuration")
	}

	var cfg Config
	switch t {
	case CornerScan:
		var rec cornerRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, errors.Wrap(err, "reading corner configuration")
		}
		cfg = &CornerConfig{
			BaseConfig: base.config(),
			LeftPlane:  planeFromRecord(rec.Left),
			RightPlane: planeFromRecord(rec.Right),
		}
	case SingleScan:
		var rec singleRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, errors.Wrap(err, "reading single configuration")
		}
		cfg = &SingleConfig{
			BaseConfig:     base.config(),
			ReferencePlane: planeFromRecord(rec.Plane),
			LaserPosition:  r3.Vector{X: float64(rec.Laser[0]), Y: float64(rec.Laser[1]), Z: float64(rec.Laser[2])},
			AssumeVertical: rec.AssumeVertical != 0,
		}
	default:
		return nil, errors.Wrapf(ErrUnknownScanType, "%d", int(t))
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes after %s configuration", r.Len(), t)
	}
	return cfg, nil
}

// SaveConfiguration writes cfg to its file in dir.
func SaveConfiguration(cfg Config, dir string) error {
	data, err := MarshalBinary(cfg)
	if err != nil {
		return err
	}
	fn := filepath.Join(dir, cfg.Type().FileName())
	if err := os.WriteFile(fn, data, 0o600); err != nil {
		return errors.Wrapf(err, "cannot save %s configuration", cfg.Type())
	}
	return nil
}

// LoadConfiguration reads the configuration for t from dir.
func LoadConfiguration(t ScanType, dir string) (Config, error) {
	if t.FileName() == "" {
		return nil, errors.Wrapf(ErrUnknownScanType, "%d", int(t))
	}
	//nolint:gosec
	f, err := os.Open(filepath.Join(dir, t.FileName()))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load %s configuration", t)
	}
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load %s configuration", t)
	}
	return UnmarshalBinary(t, data)
}

// LoadOrCreateConfiguration loads the configuration for t from dir. When that fails the default
// configuration is created and saved in its place.
func LoadOrCreateConfiguration(t ScanType, dir string, logger logging.Logger) (Config, error) {
	cfg, err := LoadConfiguration(t, dir)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, ErrUnknownScanType) {
		return nil, err
	}
	logger.Warnw("using default scan configuration", "type", t.String(), "dir", dir, "error", err)
	cfg, err = CreateDefaultConfiguration(t)
	if err != nil {
		return nil, err
	}
	return cfg, SaveConfiguration(cfg, dir)
}
