package pointcloud

import (
	"image/color"
	"math"
	"path/filepath"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/lightscan/logging"
)

// Coordinates beyond ±2^53 cannot round trip through float64 exactly.
const lasPreciseLimit = float64(1 << 53)

func lasPrecise(v r3.Vector) bool {
	return math.Abs(v.X) <= lasPreciseLimit && math.Abs(v.Y) <= lasPreciseLimit && math.Abs(v.Z) <= lasPreciseLimit
}

// LAS colors are 16 bit per channel.
const lasColorScale = 256

// ReadFile reads points from a file, choosing the format by extension.
func ReadFile(fn string, logger logging.Logger) ([]Point3D, error) {
	switch filepath.Ext(fn) {
	case ".las":
		return ReadLAS(fn, logger)
	case ".ply":
		return ReadPLYFile(fn)
	case ".pcd":
		return ReadPCDFile(fn)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// ReadLAS returns the points of a LAS file. Coordinates that may have lost precision are
// logged, not rejected.
func ReadLAS(fn string, logger logging.Logger) (points []Point3D, err error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	withColor := lf.Header.PointFormatID == 2
	points = make([]Point3D, 0, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		lp, err := lf.LasPoint(i)
		if err != nil {
			return nil, errors.Wrapf(err, "las point %d", i)
		}
		data := lp.PointData()
		pt := Point3D{World: r3.Vector{X: data.X, Y: data.Y, Z: data.Z}}
		if !lasPrecise(pt.World) {
			logger.Warnw("las point may have lost precision", "index", i, "point", pt.World)
		}
		if rgb := lp.RgbData(); withColor && rgb != nil {
			pt = pt.WithColor(color.NRGBA{
				R: uint8(rgb.Red / lasColorScale),
				G: uint8(rgb.Green / lasColorScale),
				B: uint8(rgb.Blue / lasColorScale),
				A: 255,
			})
		}
		points = append(points, pt)
	}
	return points, nil
}

// lasRecord converts p to a format 0 record, or format 2 when withColor is set.
func lasRecord(p Point3D, withColor bool) lidario.LasPointer {
	base := &lidario.PointRecord0{
		X: p.World.X,
		Y: p.World.Y,
		Z: p.World.Z,
		// return 1 of 1
		BitField:      lidario.PointBitField{Value: 1 | 1<<3},
		PointSourceID: 1,
	}
	if !withColor {
		return base
	}
	r, g, b := p.RGB255()
	return &lidario.PointRecord2{
		PointRecord0: base,
		RGB: &lidario.RgbData{
			Red:   uint16(r) * lasColorScale,
			Green: uint16(g) * lasColorScale,
			Blue:  uint16(b) * lasColorScale,
		},
	}
}

// WriteLAS writes the world coordinates of points to a LAS file. Point format 2 is used when
// any point carries a color.
func WriteLAS(points []Point3D, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	withColor := NewMetaData(points).HasColor
	header := lidario.LasHeader{}
	if withColor {
		header.PointFormatID = 2
	}
	if err := lf.AddHeader(header); err != nil {
		return err
	}
	for i, p := range points {
		if err := lf.AddLasPoint(lasRecord(p, withColor)); err != nil {
			return errors.Wrapf(err, "las point %d", i)
		}
	}
	return nil
}
