package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the DATA encoding of a pcd file.
type PCDType int

const (
	// PCDAscii stores one whitespace separated point per line.
	PCDAscii PCDType = iota
	// PCDBinary stores little endian float32 coordinates followed by a packed rgb.
	PCDBinary
	// PCDCompressed is recognized in headers but neither written nor read.
	PCDCompressed
)

var pcdDataNames = map[PCDType]string{
	PCDAscii:      "ascii",
	PCDBinary:     "binary",
	PCDCompressed: "binary_compressed",
}

// Scan coordinates are in millimeters; PCD files are written in meters.
const pcdUnitsPerMeter = 1000.

// packRGB packs a point color as 0x00RRGGBB. Points without color are red.
func packRGB(p Point3D) uint32 {
	if !p.HasColor {
		return 0xFF0000
	}
	return uint32(p.Color.R)<<16 | uint32(p.Color.G)<<8 | uint32(p.Color.B)
}

func unpackRGB(v uint32) color.NRGBA {
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// pcdLayout describes the per point fields of a cloud.
type pcdLayout struct {
	withColor bool
}

func (l pcdLayout) fieldCount() int {
	if l.withColor {
		return 4
	}
	return 3
}

func (l pcdLayout) headerLines(count int, data PCDType) []string {
	fields, size, typ, cnt := "x y z", "4 4 4", "F F F", "1 1 1"
	if l.withColor {
		fields, size, typ, cnt = fields+" rgb", size+" 4", typ+" I", cnt+" 1"
	}
	return []string{
		"VERSION .7",
		"FIELDS " + fields,
		"SIZE " + size,
		"TYPE " + typ,
		"COUNT " + cnt,
		fmt.Sprintf("WIDTH %d", count),
		"HEIGHT 1",
		"VIEWPOINT 0 0 0 1 0 0 0",
		fmt.Sprintf("POINTS %d", count),
		"DATA " + pcdDataNames[data],
	}
}

// WritePCD writes the world coordinates of points as an unorganized PCD cloud.
func WritePCD(points []Point3D, out io.Writer, outputType PCDType) error {
	switch outputType {
	case PCDAscii, PCDBinary:
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	default:
		return errors.Errorf("unknown PCD type %d", outputType)
	}
	layout := pcdLayout{withColor: NewMetaData(points).HasColor}

	w := bufio.NewWriter(out)
	for _, line := range layout.headerLines(len(points), outputType) {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	record := make([]byte, 4*layout.fieldCount())
	for _, p := range points {
		xyz := [3]float64{p.World.X, p.World.Y, p.World.Z}
		var err error
		if outputType == PCDBinary {
			for i, v := range xyz {
				binary.LittleEndian.PutUint32(record[4*i:], math.Float32bits(float32(v/pcdUnitsPerMeter)))
			}
			if layout.withColor {
				binary.LittleEndian.PutUint32(record[12:], packRGB(p))
			}
			_, err = w.Write(record)
		} else {
			_, err = fmt.Fprintf(w, "%f %f %f",
				xyz[0]/pcdUnitsPerMeter, xyz[1]/pcdUnitsPerMeter, xyz[2]/pcdUnitsPerMeter)
			if err == nil && layout.withColor {
				_, err = fmt.Fprintf(w, " %d", packRGB(p))
			}
			if err == nil {
				_, err = w.WriteString("\n")
			}
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

// pcdHeader is what ReadPCD needs from a header.
type pcdHeader struct {
	layout pcdLayout
	points int
	data   PCDType
}

var pcdHeaderKeys = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

// readPCDHeader reads the ten header lines in order. Comments and blank lines are skipped.
func readPCDHeader(in *bufio.Reader) (pcdHeader, error) {
	var header pcdHeader
	values := make(map[string]string, len(pcdHeaderKeys))
	for next := 0; next < len(pcdHeaderKeys); {
		line, err := in.ReadString('\n')
		if err != nil {
			return header, errors.Wrapf(err, "cannot read pcd header line %d", next)
		}
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		if key != pcdHeaderKeys[next] {
			return header, errors.Errorf("expected pcd header %s, got %q", pcdHeaderKeys[next], line)
		}
		values[key] = value
		next++
	}

	if values["VERSION"] != ".7" {
		return header, errors.Errorf("unsupported pcd version %s", values["VERSION"])
	}
	switch values["FIELDS"] {
	case "x y z":
	case "x y z rgb":
		header.layout.withColor = true
	default:
		return header, errors.Errorf("unsupported pcd fields %s", values["FIELDS"])
	}
	for _, key := range []string{"SIZE", "TYPE", "COUNT"} {
		if n := len(strings.Fields(values[key])); n != header.layout.fieldCount() {
			return header, errors.Errorf("pcd %s has %d entries for %d fields", key, n, header.layout.fieldCount())
		}
	}
	if n := len(strings.Fields(values["VIEWPOINT"])); n != 7 {
		return header, errors.Errorf("pcd VIEWPOINT needs 7 values, got %d", n)
	}

	dims := make(map[string]int, 3)
	for _, key := range []string{"WIDTH", "HEIGHT", "POINTS"} {
		v, err := strconv.Atoi(values[key])
		if err != nil || v < 0 {
			return header, errors.Errorf("invalid pcd %s %q", key, values[key])
		}
		dims[key] = v
	}
	if dims["POINTS"] != dims["WIDTH"]*dims["HEIGHT"] {
		return header, errors.Errorf("pcd POINTS %d does not match WIDTH*HEIGHT %d",
			dims["POINTS"], dims["WIDTH"]*dims["HEIGHT"])
	}
	header.points = dims["POINTS"]

	found := false
	for data, name := range pcdDataNames {
		if values["DATA"] == name {
			header.data, found = data, true
		}
	}
	if !found {
		return header, errors.Errorf("unsupported pcd data type %s", values["DATA"])
	}
	return header, nil
}

// ReadPCD reads a cloud written by WritePCD. Coordinates are converted back to millimeters and
// only World and Color are filled in.
func ReadPCD(r io.Reader) ([]Point3D, error) {
	in := bufio.NewReader(r)
	header, err := readPCDHeader(in)
	if err != nil {
		return nil, err
	}
	points := make([]Point3D, 0, header.points)
	for i := 0; i < header.points; i++ {
		var xyz r3.Vector
		var rgb uint32
		switch header.data {
		case PCDAscii:
			xyz, rgb, err = readPCDAsciiPoint(in, header.layout)
		case PCDBinary:
			xyz, rgb, err = readPCDBinaryPoint(in, header.layout)
		default:
			return nil, errors.New("compressed pcd not yet supported")
		}
		if err != nil {
			return nil, errors.Wrapf(err, "pcd point %d", i)
		}
		p := Point3D{World: xyz.Mul(pcdUnitsPerMeter)}
		if header.layout.withColor {
			p = p.WithColor(unpackRGB(rgb))
		}
		points = append(points, p)
	}
	return points, nil
}

func readPCDAsciiPoint(in *bufio.Reader, layout pcdLayout) (r3.Vector, uint32, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return r3.Vector{}, 0, err
	}
	tokens := strings.Fields(line)
	if len(tokens) != layout.fieldCount() {
		return r3.Vector{}, 0, errors.Errorf("expected %d fields, got %d", layout.fieldCount(), len(tokens))
	}
	var vals [4]float64
	for i, token := range tokens {
		if vals[i], err = strconv.ParseFloat(token, 64); err != nil {
			return r3.Vector{}, 0, err
		}
	}
	return r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}, uint32(vals[3]), nil
}

func readPCDBinaryPoint(in *bufio.Reader, layout pcdLayout) (r3.Vector, uint32, error) {
	record := make([]byte, 4*layout.fieldCount())
	if _, err := io.ReadFull(in, record); err != nil {
		return r3.Vector{}, 0, err
	}
	f := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(record[4*i:])))
	}
	var rgb uint32
	if layout.withColor {
		rgb = binary.LittleEndian.Uint32(record[12:])
	}
	return r3.Vector{X: f(0), Y: f(1), Z: f(2)}, rgb, nil
}

// ReadPCDFile reads points from the PCD file fn.
func ReadPCDFile(fn string) ([]Point3D, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ReadPCD(f)
}
