package cli

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/lightscan/logging"
	"go.viam.com/lightscan/rimage"
	"go.viam.com/lightscan/scanner"
)

// RunStats counts what happened to the frames pulled during a run.
type RunStats struct {
	Frames  int
	Added   int
	Dropped int
}

// Runner feeds a scan session one frame per tick, advancing the turntable rotation by a fixed
// step for every frame pulled.
type Runner struct {
	session         *scanner.Session
	processor       *rimage.Processor
	clock           clock.Clock
	interval        time.Duration
	degreesPerFrame float64
	logger          logging.Logger
}

// NewRunner returns a runner pulling frames from processor every interval. A zero interval
// pulls frames as fast as the source yields them.
func NewRunner(
	session *scanner.Session,
	processor *rimage.Processor,
	clk clock.Clock,
	interval time.Duration,
	degreesPerFrame float64,
	logger logging.Logger,
) *Runner {
	return &Runner{
		session:         session,
		processor:       processor,
		clock:           clk,
		interval:        interval,
		degreesPerFrame: degreesPerFrame,
		logger:          logger,
	}
}

// Run processes frames until the source runs out, the session stops scanning or ctx is done.
// None of these is an error: a watched directory only ends when ctx is canceled, and the frames
// gathered so far are still wanted.
func (r *Runner) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := r.clock.Ticker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	rotation := 0.0
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				r.logger.Debugw("run stopped", "frames", stats.Frames, "reason", ctx.Err())
				return stats, nil
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			r.logger.Debugw("run stopped", "frames", stats.Frames, "reason", err)
			return stats, nil
		}

		if err := r.processor.UpdateFrame(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Debugw("frame source exhausted", "frames", stats.Frames)
				return stats, nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Debugw("run stopped", "frames", stats.Frames, "reason", err)
				return stats, nil
			}
			return stats, errors.Wrap(err, "cannot read frame")
		}
		stats.Frames++

		added, err := r.session.ProcessFrame(ctx, rotation)
		switch {
		case errors.Is(err, scanner.ErrNotScanning):
			return stats, nil
		case added:
			stats.Added++
		default:
			stats.Dropped++
		}
		rotation += r.degreesPerFrame
	}
}
