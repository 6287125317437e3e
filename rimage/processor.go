package rimage

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/lightscan/logging"
)

// ErrNotReady is returned when a difference image is requested before a reference and two
// frames have been captured.
var ErrNotReady = errors.New("frame processor is not ready")

// Processor owns the frames pulled from a FrameSource: the reference image taken with the
// laser off, and the current and previous frames. Every UpdateFrame recomputes the temporal
// difference of the last two frames. Buffers are reused between frames.
type Processor struct {
	source FrameSource
	logger logging.Logger

	// Offset is added to every difference pixel.
	Offset uint8

	reference     *ColorBuffer
	referenceGray *GrayBuffer

	cur, prev         *ColorBuffer
	curGray, prevGray *GrayBuffer
	diff              *GrayBuffer
	diffValid         bool
}

// NewProcessor returns a processor reading from source. A nil source yields a processor that is
// never connected.
func NewProcessor(source FrameSource, logger logging.Logger) *Processor {
	return &Processor{
		source: source,
		logger: logger,
		Offset: DefaultDiffOffset,
	}
}

// Connected reports whether the processor has a live source.
func (p *Processor) Connected() bool {
	return p.source != nil && p.source.Connected()
}

// SetReference captures the next frame as the reference image.
func (p *Processor) SetReference(ctx context.Context) error {
	if !p.Connected() {
		return errors.Wrap(ErrNotReady, "no frame source")
	}
	frame, err := p.source.Next(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot capture reference frame")
	}
	p.reference = frame.CopyInto(p.reference)
	p.referenceGray = p.reference.GrayInto(p.referenceGray)
	p.logger.Debugw("reference frame captured", "width", frame.Width, "height", frame.Height)
	return nil
}

// HasReference reports whether SetReference has succeeded.
func (p *Processor) HasReference() bool {
	return p.reference != nil
}

// Reference returns the grayscale reference image, or nil.
func (p *Processor) Reference() *GrayBuffer {
	return p.referenceGray
}

// UpdateFrame pulls the next frame from the source. The old current frame becomes the previous
// one and, once a reference is set, the difference image is recomputed.
func (p *Processor) UpdateFrame(ctx context.Context) error {
	if !p.Connected() {
		return errors.Wrap(ErrNotReady, "no frame source")
	}
	frame, err := p.source.Next(ctx)
	if err != nil {
		return err
	}

	p.prev, p.cur = p.cur, p.prev
	p.prevGray, p.curGray = p.curGray, p.prevGray
	p.cur = frame.CopyInto(p.cur)
	p.curGray = p.cur.GrayInto(p.curGray)
	p.diffValid = false

	if p.prev == nil || p.referenceGray == nil {
		return nil
	}
	diff, err := temporalDiffInto(p.diff, p.curGray, p.prevGray, p.Offset)
	if err != nil {
		return err
	}
	p.diff = diff
	p.diffValid = true
	return nil
}

// Difference returns the temporal difference computed by the last UpdateFrame. The buffer is
// overwritten by the next call.
func (p *Processor) Difference() (*GrayBuffer, error) {
	switch {
	case p.referenceGray == nil:
		return nil, errors.Wrap(ErrNotReady, "no reference image")
	case !p.diffValid:
		return nil, errors.Wrap(ErrNotReady, "need two frames")
	default:
		return p.diff, nil
	}
}

// CurrentColor returns the most recent color frame.
func (p *Processor) CurrentColor() (*ColorBuffer, error) {
	if p.cur == nil {
		return nil, errors.Wrap(ErrNotReady, "no frame captured")
	}
	return p.cur, nil
}

// Close closes the source and drops all frames.
func (p *Processor) Close() error {
	p.reference, p.referenceGray = nil, nil
	p.cur, p.prev, p.curGray, p.prevGray, p.diff = nil, nil, nil, nil, nil
	p.diffValid = false
	if p.source == nil {
		return nil
	}
	return p.source.Close()
}
