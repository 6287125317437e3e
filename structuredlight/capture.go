package structuredlight

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/lightscan/logging"
	"go.viam.com/lightscan/rimage"
)

// Sequence is a captured run of the projected sequence: the frame lit by every pattern followed
// by the frame lit by its inverse.
type Sequence []*rimage.ColorBuffer

// Texture returns the frame lit by the white pattern.
func (s Sequence) Texture() *rimage.ColorBuffer {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// Gray converts the frames to grayscale for decoding.
func (s Sequence) Gray() []*rimage.GrayBuffer {
	out := make([]*rimage.GrayBuffer, len(s))
	for i, f := range s {
		out[i] = f.Gray()
	}
	return out
}

// CaptureSequence reads one frame per projected image from source. Every frame is scaled by the
// camera gain.
func CaptureSequence(ctx context.Context, source rimage.FrameSource, codes *GrayCodes, params Params) (Sequence, error) {
	seq := make(Sequence, 0, codes.SequenceLength())
	for i := 0; i < codes.SequenceLength(); i++ {
		frame, err := source.Next(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "capturing frame %d of %d", i, codes.SequenceLength())
		}
		seq = append(seq, applyGain(frame, params.CamGain))
	}
	return seq, nil
}

func applyGain(frame *rimage.ColorBuffer, gain int) *rimage.ColorBuffer {
	scale := gainScale(gain)
	if scale == 1 {
		return frame
	}
	out := frame.Clone()
	for i, v := range out.Pix {
		out.Pix[i] = uint8(math.Min(255, math.Round(float64(v)*scale)))
	}
	return out
}

// Scanner runs structured-light scans with one projector-camera calibration.
type Scanner struct {
	params     Params
	codes      *GrayCodes
	geometry   *Geometry
	background *Background
	logger     logging.Logger
}

// NewScanner evaluates the calibration and generates the codes to project.
func NewScanner(params Params, calib *Calibration, logger logging.Logger) (*Scanner, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if calib.Camera.Width != params.CamWidth || calib.Camera.Height != params.CamHeight {
		return nil, errors.Errorf("camera calibration is %dx%d, parameters say %dx%d",
			calib.Camera.Width, calib.Camera.Height, params.CamWidth, params.CamHeight)
	}
	if calib.Projector.Width != params.ProjWidth || calib.Projector.Height != params.ProjHeight {
		return nil, errors.Errorf("projector calibration is %dx%d, parameters say %dx%d",
			calib.Projector.Width, calib.Projector.Height, params.ProjWidth, params.ProjHeight)
	}
	geom, err := EvaluateProCamGeometry(calib)
	if err != nil {
		return nil, err
	}
	codes, err := params.GrayCodes()
	if err != nil {
		return nil, err
	}
	logger.Debugw("projector-camera geometry evaluated",
		"projector_center", geom.ProjCenter,
		"column_codes", codes.NCols,
		"row_codes", codes.NRows)
	return &Scanner{params: params, codes: codes, geometry: geom, logger: logger}, nil
}

// Codes returns the patterns the projector must show.
func (s *Scanner) Codes() *GrayCodes {
	return s.codes
}

// Geometry returns the evaluated calibration.
func (s *Scanner) Geometry() *Geometry {
	return s.geometry
}

// Background returns the captured background, or nil.
func (s *Scanner) Background() *Background {
	return s.background
}

// SetBackground replaces the background used to segment later scans.
func (s *Scanner) SetBackground(bg *Background) {
	s.background = bg
}

// Reconstruct decodes a captured sequence and triangulates it, dropping background points.
func (s *Scanner) Reconstruct(seq Sequence) (*Reconstruction, error) {
	corr, err := DecodeGrayCodes(seq.Gray(), s.codes, s.params)
	if err != nil {
		return nil, err
	}
	rec, err := Reconstruct(corr, s.geometry, seq.Texture(), s.background, s.params)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("structured light reconstruction",
		"mode", s.params.Mode.String(),
		"decoded", corr.ValidCount(),
		"points", rec.ValidCount())
	return rec, nil
}

// Scan captures a sequence from source and reconstructs it.
func (s *Scanner) Scan(ctx context.Context, source rimage.FrameSource) (*Reconstruction, error) {
	seq, err := CaptureSequence(ctx, source, s.codes, s.params)
	if err != nil {
		return nil, err
	}
	return s.Reconstruct(seq)
}

// CaptureBackground reconstructs a sequence of the empty scene and keeps it as the background of
// later scans.
func (s *Scanner) CaptureBackground(ctx context.Context, source rimage.FrameSource) (*Background, error) {
	seq, err := CaptureSequence(ctx, source, s.codes, s.params)
	if err != nil {
		return nil, err
	}
	bg, err := CaptureBackground(seq, s.codes, s.geometry, s.params)
	if err != nil {
		return nil, err
	}
	s.background = bg
	s.logger.Infow("background captured", "points", countTrue(bg.Mask))
	return bg, nil
}

// CaptureBackground decodes and reconstructs an object-free sequence.
func CaptureBackground(seq Sequence, codes *GrayCodes, geom *Geometry, params Params) (*Background, error) {
	corr, err := DecodeGrayCodes(seq.Gray(), codes, params)
	if err != nil {
		return nil, err
	}
	rec, err := Reconstruct(corr, geom, seq.Texture(), nil, params)
	if err != nil {
		return nil, err
	}
	return &Background{Texture: seq.Texture(), Depth: rec.Depth, Mask: rec.Mask}, nil
}

func countTrue(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return n
}
