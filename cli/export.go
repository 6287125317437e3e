package cli

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/lightscan/pointcloud"
)

// writePoints saves points to path in one of the outputFormats.
func writePoints(points []pointcloud.Point3D, path, format string) (err error) {
	switch format {
	case formatPLY:
		return pointcloud.WritePLYFile(points, path)
	case formatLAS:
		return pointcloud.WriteLAS(points, path)
	case formatVRML:
		return pointcloud.WriteVRMLFile(points, path)
	case formatPCD, formatPCDBinary:
		pcdType := pointcloud.PCDAscii
		if format == formatPCDBinary {
			pcdType = pointcloud.PCDBinary
		}
		//nolint:gosec
		var f *os.File
		f, err = os.Create(path)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		return pointcloud.WritePCD(points, f, pcdType)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}
