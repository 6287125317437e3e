package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/multierr"

	"go.viam.com/lightscan/logging"
	"go.viam.com/lightscan/scanner"
	"go.viam.com/lightscan/structuredlight"
)

// Output formats understood by writePoints.
const (
	formatPLY       = "ply"
	formatPCD       = "pcd"
	formatPCDBinary = "pcd_binary"
	formatLAS       = "las"
	formatVRML      = "vrml"
)

var outputFormats = []string{formatPLY, formatPCD, formatPCDBinary, formatLAS, formatVRML}

// Settings configures one lightscan run. It is read from a JSON file and then patched with
// --set overrides.
type Settings struct {
	FrameDir        string  `json:"frame_dir,omitempty" jsonschema:"description=directory of captured frames read in name order"`
	Watch           bool    `json:"watch,omitempty" jsonschema:"description=keep waiting for new frames in frame_dir"`
	ScanType        string  `json:"scan_type" jsonschema:"enum=corner,enum=single"`
	ConfigDir       string  `json:"config_dir,omitempty" jsonschema:"description=directory holding Corner.cfg and Single.cfg"`
	Output          string  `json:"output,omitempty"`
	Format          string  `json:"format,omitempty" jsonschema:"enum=ply,enum=pcd,enum=pcd_binary,enum=las,enum=vrml"`
	FrameIntervalMs int     `json:"frame_interval_ms"`
	DegreesPerFrame float64 `json:"degrees_per_frame"`
	Merge           bool    `json:"merge,omitempty" jsonschema:"description=rotate every frame by its turntable angle before export"`

	Calibration   string `json:"calibration,omitempty"`
	BackgroundDir string `json:"background_dir,omitempty"`
	DepthPreview  string `json:"depth_preview,omitempty"`

	StructuredLight structuredlight.Params `json:"structured_light"`

	Log []logging.LoggerPatternConfig `json:"log,omitempty"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		ScanType:        scanner.CornerScan.String(),
		ConfigDir:       ".",
		Output:          "scan.ply",
		FrameIntervalMs: 0,
		DegreesPerFrame: 1,
		StructuredLight: structuredlight.DefaultParams(),
	}
}

// FrameInterval is the pause between two processed frames.
func (s *Settings) FrameInterval() time.Duration {
	return time.Duration(s.FrameIntervalMs) * time.Millisecond
}

// OutputFormat returns Format, or the format implied by the output file extension.
func (s *Settings) OutputFormat() string {
	if s.Format != "" {
		return s.Format
	}
	switch strings.ToLower(filepath.Ext(s.Output)) {
	case ".pcd":
		return formatPCD
	case ".las":
		return formatLAS
	case ".wrl":
		return formatVRML
	default:
		return formatPLY
	}
}

// Validate reports every problem with the settings at once.
func (s *Settings) Validate() error {
	var err error
	if _, perr := scanner.ParseScanType(s.ScanType); perr != nil {
		err = multierr.Append(err, perr)
	}
	if s.Format != "" {
		known := false
		for _, f := range outputFormats {
			known = known || f == s.Format
		}
		if !known {
			err = multierr.Append(err, errors.Errorf("unknown output format %q, expected one of %s",
				s.Format, strings.Join(outputFormats, ", ")))
		}
	}
	if s.FrameIntervalMs < 0 {
		err = multierr.Append(err, errors.Errorf("frame_interval_ms must not be negative, got %d", s.FrameIntervalMs))
	}
	if perr := s.StructuredLight.Validate(); perr != nil {
		err = multierr.Append(err, errors.Wrap(perr, "structured_light"))
	}
	return err
}

// LoadSettings reads the JSON file at path, if any, applies the key=value overrides and
// decodes the result over DefaultSettings. Keys of nested objects are joined with dots, as
// in structured_light.thresh=40.
func LoadSettings(path string, overrides []string) (*Settings, error) {
	raw := map[string]any{}
	if path != "" {
		//nolint:gosec
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read settings")
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, "cannot parse settings file %q", path)
		}
	}
	for _, o := range overrides {
		if err := applyOverride(raw, o); err != nil {
			return nil, err
		}
	}

	settings := DefaultSettings()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       modeHook,
		Result:           &settings,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "invalid settings")
	}
	return &settings, nil
}

// modeHook accepts a reconstruction mode by name as well as by number.
func modeHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(structuredlight.Mode(0)) || from.Kind() != reflect.String {
		return data, nil
	}
	name, _ := data.(string)
	if _, err := cast.ToIntE(name); err == nil {
		return data, nil
	}
	return structuredlight.ParseMode(name)
}

// applyOverride sets one dotted key=value pair in raw, creating nested objects as needed.
func applyOverride(raw map[string]any, override string) error {
	key, value, ok := strings.Cut(override, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return errors.Errorf("override %q is not of the form key=value", override)
	}
	parts := strings.Split(key, ".")
	m := raw
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = overrideValue(value)
	return nil
}

// overrideValue types a command line value: comma separated values become a list, and each
// scalar is the first of bool, integer, float or string it parses as.
func overrideValue(value string) any {
	if strings.Contains(value, ",") {
		var list []any
		for _, v := range strings.Split(value, ",") {
			list = append(list, overrideScalar(strings.TrimSpace(v)))
		}
		return list
	}
	return overrideScalar(strings.TrimSpace(value))
}

func overrideScalar(value string) any {
	if strings.EqualFold(value, "true") || strings.EqualFold(value, "false") {
		return cast.ToBool(value)
	}
	if i, err := cast.ToInt64E(value); err == nil {
		return i
	}
	if f, err := cast.ToFloat64E(value); err == nil {
		return f
	}
	return value
}
