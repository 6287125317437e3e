package pointcloud

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// WritePLY writes points as an ASCII PLY vertex list of world coordinates. The red, green and
// blue properties are present when any point carries a color.
func WritePLY(points []Point3D, out io.Writer) error {
	meta := NewMetaData(points)
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "ply\nformat ascii 1.0\nelement vertex %d\n", len(points))
	fmt.Fprintf(w, "property float x\nproperty float y\nproperty float z\n")
	if meta.HasColor {
		fmt.Fprintf(w, "property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}
	fmt.Fprintf(w, "end_header\n")

	for _, p := range points {
		if meta.HasColor {
			r, g, b := p.RGB255()
			fmt.Fprintf(w, "%f %f %f %d %d %d\n", p.World.X, p.World.Y, p.World.Z, r, g, b)
			continue
		}
		fmt.Fprintf(w, "%f %f %f\n", p.World.X, p.World.Y, p.World.Z)
	}
	return w.Flush()
}

// WritePLYFile writes points to the PLY file fn.
func WritePLYFile(points []Point3D, fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WritePLY(points, f)
}

// ReadPLY reads the vertex element of an ASCII PLY file. Camera coordinates are not stored in
// the format, so only World and, when present, Color are filled in.
func ReadPLY(in io.Reader) (points []Point3D, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("invalid ply data: %v", r)
		}
	}()
	ply := goply.New(in)

	vertices := ply.Elements("vertex")
	points = make([]Point3D, 0, len(vertices))
	for i, v := range vertices {
		x, errX := plyFloat(v, "x")
		y, errY := plyFloat(v, "y")
		z, errZ := plyFloat(v, "z")
		if err := multierr.Combine(errX, errY, errZ); err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
		p := Point3D{World: r3.Vector{X: x, Y: y, Z: z}}
		if r, g, b, ok := plyColor(v); ok {
			p = p.WithColor(color.NRGBA{R: r, G: g, B: b, A: 255})
		}
		points = append(points, p)
	}
	return points, nil
}

// ReadPLYFile reads points from the PLY file fn.
func ReadPLYFile(fn string) ([]Point3D, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ReadPLY(f)
}

func plyFloat(v goply.PlyElement, name string) (float64, error) {
	switch val := v.Property(name).(type) {
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case int32:
		return float64(val), nil
	case nil:
		return 0, errors.Errorf("missing property %q", name)
	default:
		return 0, errors.Errorf("property %q has unsupported type %T", name, val)
	}
}

func plyColor(v goply.PlyElement) (uint8, uint8, uint8, bool) {
	r, okR := v.Property("red").(uint8)
	g, okG := v.Property("green").(uint8)
	b, okB := v.Property("blue").(uint8)
	return r, g, b, okR && okG && okB
}
