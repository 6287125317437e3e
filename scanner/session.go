package scanner

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/lightscan/logging"
	"go.viam.com/lightscan/pointcloud"
	"go.viam.com/lightscan/rimage"
)

var (
	// ErrNoSource is returned by StartScan when the processor has no connected frame source.
	ErrNoSource = errors.New("no video source connected")
	// ErrNoReference is returned by StartScan before a reference image is set.
	ErrNoReference = errors.New("no reference image set")
	// ErrAlreadyScanning is returned by StartScan while a scan is in progress.
	ErrAlreadyScanning = errors.New("scan already in progress")
	// ErrNotScanning is returned by ProcessFrame outside a scan.
	ErrNotScanning = errors.New("not scanning")
)

// Session accumulates the frames of one scan. It is idle until StartScan and returns to idle on
// EndScan; the frames of the last scan stay available until the next StartScan.
type Session struct {
	mu        sync.Mutex
	strategy  Strategy
	processor *rimage.Processor
	logger    logging.Logger

	scanning bool
	frames   pointcloud.FrameList
}

// NewSession returns an idle session reconstructing with strategy from the frames of processor.
func NewSession(strategy Strategy, processor *rimage.Processor, logger logging.Logger) *Session {
	return &Session{
		strategy:  strategy,
		processor: processor,
		logger:    logger,
	}
}

// Strategy returns the strategy the session reconstructs with.
func (s *Session) Strategy() Strategy {
	return s.strategy
}

// StartScan clears the frames and starts accumulating.
func (s *Session) StartScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.scanning:
		return ErrAlreadyScanning
	case s.processor == nil || !s.processor.Connected():
		return ErrNoSource
	case !s.processor.HasReference():
		return ErrNoReference
	}
	s.frames = nil
	s.scanning = true
	s.logger.Infow("scan started", "type", s.strategy.Config().Type().String())
	return nil
}

// EndScan stops accumulating. It is safe to call at any time.
func (s *Session) EndScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scanning {
		return
	}
	s.scanning = false
	summary, err := s.frames.Summarize()
	if err != nil {
		s.logger.Infow("scan ended", "frames", 0)
		return
	}
	s.logger.Infow("scan ended",
		"frames", summary.Frames,
		"points", summary.Points,
		"mean_points_per_frame", summary.MeanPointsPerFrame,
		"mean_depth", summary.MeanDepth,
		"depth_stddev", summary.StdDevDepth)
}

// IsScanning reports whether a scan is in progress.
func (s *Session) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Frames returns the frames accumulated by the current or last scan.
func (s *Session) Frames() pointcloud.FrameList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(pointcloud.FrameList(nil), s.frames...)
}

// ProcessFrame reconstructs the processor's current difference image, captured at turntable
// rotation degrees, and appends the result as a frame when it has at least one point. The
// returned error explains why nothing was appended; it never ends the scan.
func (s *Session) ProcessFrame(ctx context.Context, rotation float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scanning {
		return false, ErrNotScanning
	}

	frame, err := s.reconstruct(rotation)
	if err != nil {
		s.logger.CDebugw(ctx, "frame dropped", "rotation", rotation, "error", err)
		return false, err
	}
	if len(frame.Points) == 0 {
		s.logger.CDebugw(ctx, "frame dropped", "rotation", rotation, "error", "no points")
		return false, nil
	}
	s.frames = append(s.frames, frame)
	s.logger.CDebugw(ctx, "frame added", "rotation", rotation, "points", len(frame.Points), "frames", len(s.frames))
	return true, nil
}

// laserImage returns the image the laser is located in: the difference image, or its edges.
func (s *Session) laserImage() (*rimage.GrayBuffer, error) {
	diff, err := s.processor.Difference()
	if err != nil {
		return nil, err
	}
	cfg := s.strategy.Config().Base()
	if !cfg.UseCanny {
		return diff, nil
	}
	return rimage.Canny(diff, cfg.CannyLow, cfg.CannyHigh, cfg.CannyAperture, cfg.CannySigma)
}

func (s *Session) reconstruct(rotation float64) (pointcloud.ScannerFrame, error) {
	img, err := s.laserImage()
	if err != nil {
		return pointcloud.ScannerFrame{}, err
	}
	plane, err := s.strategy.FindLaserPlane(img)
	if err != nil {
		return pointcloud.ScannerFrame{}, err
	}
	// the difference image exists, so a color frame does too
	colorFrame, err := s.processor.CurrentColor()
	if err != nil {
		return pointcloud.ScannerFrame{}, err
	}

	cam := s.strategy.Config().Base().Camera
	frame := pointcloud.ScannerFrame{Rotation: rotation}
	start, end := s.strategy.ScanLines(img.Width, img.Height)
	for i := start; i < end; i++ {
		pos := s.strategy.FindLaser(img, i)
		if pos == NotFound {
			continue
		}
		px := s.strategy.Pixel(i, pos)
		p, err := PlaneIntersect(cam, plane, px, img.Width, img.Height)
		if err != nil {
			continue
		}
		if c, ok := GetColor(colorFrame, px); ok {
			p = p.WithColor(c)
		}
		frame.Points = append(frame.Points, p)
	}
	return frame, nil
}
