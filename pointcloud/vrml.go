package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/multierr"
)

// WriteVRML writes points as the vertices of a VRML 2.0 IndexedFaceSet with no faces. The y
// axis is flipped for the viewers this format is read by. Colors are written per vertex, as
// floats in [0, 1], when any point carries one.
func WriteVRML(points []Point3D, out io.Writer) error {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "#VRML V2.0 utf8\n")
	fmt.Fprintf(w, "Shape {\n")
	fmt.Fprintf(w, " geometry IndexedFaceSet {\n")

	fmt.Fprintf(w, "  coord Coordinate {\n")
	fmt.Fprintf(w, "   point [\n")
	for _, p := range points {
		fmt.Fprintf(w, "    %f %f %f\n", p.World.X, -p.World.Y, p.World.Z)
	}
	fmt.Fprintf(w, "   ]\n")
	fmt.Fprintf(w, "  }\n")

	if NewMetaData(points).HasColor {
		fmt.Fprintf(w, "  colorPerVertex TRUE\n")
		fmt.Fprintf(w, "  color Color {\n")
		fmt.Fprintf(w, "   color [\n")
		for _, p := range points {
			c := colorful.Color{R: 1, G: 1, B: 1}
			if p.HasColor {
				c, _ = colorful.MakeColor(p.Color)
			}
			fmt.Fprintf(w, "    %f %f %f\n", c.R, c.G, c.B)
		}
		fmt.Fprintf(w, "   ]\n")
		fmt.Fprintf(w, "  }\n")
	}

	fmt.Fprintf(w, " }\n")
	fmt.Fprintf(w, "}\n")
	return w.Flush()
}

// WriteVRMLFile writes points to the VRML file fn.
func WriteVRMLFile(points []Point3D, fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WriteVRML(points, f)
}
