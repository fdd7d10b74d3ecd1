// Package runner drives running simulations from a wall-clock frame loop.
package runner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/service"
	"github.com/wricardo/ambulance-fleet/logging"
)

// Ticker advances every running simulation
type Ticker interface {
	TickRunning(ctx context.Context, elapsed float64) ([]*service.FrameResult, error)
}

// Publisher receives frame output, usually the websocket hub
type Publisher interface {
	PublishState(simulationID string, state *engine.State)
	PublishEvents(simulationID string, events []engine.Event)
}

// Options configures the frame loop
type Options struct {
	FrameInterval  time.Duration
	BroadcastEvery int
	MaxStep        time.Duration
}

// DefaultOptions runs at 60 frames per second and broadcasts 10 states per second
func DefaultOptions() Options {
	return Options{
		FrameInterval:  time.Second / 60,
		BroadcastEvery: 6,
		MaxStep:        100 * time.Millisecond,
	}
}

// Runner ticks running simulations with real elapsed time
type Runner struct {
	ticker    Ticker
	publisher Publisher
	opts      Options
	logger    zerolog.Logger
	frameLog  zerolog.Logger
	now       func() time.Time
	frame     int
}

// New creates a runner. A nil publisher discards output.
func New(ticker Ticker, publisher Publisher, opts Options, logger zerolog.Logger) *Runner {
	defaults := DefaultOptions()
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaults.FrameInterval
	}
	if opts.BroadcastEvery <= 0 {
		opts.BroadcastEvery = defaults.BroadcastEvery
	}
	if opts.MaxStep <= 0 {
		opts.MaxStep = defaults.MaxStep
	}

	logger = logger.With().Str("component", "runner").Logger()
	return &Runner{
		ticker:    ticker,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		frameLog:  logging.Sampled(logger),
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.opts.FrameInterval)
	defer t.Stop()

	r.logger.Info().
		Dur("interval", r.opts.FrameInterval).
		Int("broadcast_every", r.opts.BroadcastEvery).
		Msg("frame clock started")

	last := r.now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Int("frames", r.frame).Msg("frame clock stopped")
			return nil
		case <-t.C:
			current := r.now()
			r.Step(ctx, current.Sub(last))
			last = current
		}
	}
}

// Step runs one frame. elapsed is clamped to [0, MaxStep] so a stalled
// process does not teleport vehicles.
func (r *Runner) Step(ctx context.Context, elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > r.opts.MaxStep {
		elapsed = r.opts.MaxStep
	}

	frames, err := r.ticker.TickRunning(ctx, elapsed.Seconds())
	if err != nil {
		r.logger.Error().Err(err).Msg("frame failed")
		return
	}
	r.frame++

	broadcast := r.frame%r.opts.BroadcastEvery == 0
	r.frameLog.Trace().
		Int("frame", r.frame).
		Int("simulations", len(frames)).
		Dur("elapsed", elapsed).
		Msg("frame")

	if r.publisher == nil {
		return
	}
	for _, f := range frames {
		if len(f.Events) > 0 {
			r.publisher.PublishEvents(f.SimulationID, f.Events)
		}
		if broadcast || len(f.Events) > 0 {
			r.publisher.PublishState(f.SimulationID, f.State)
		}
	}
}

// Frames returns the number of frames run so far
func (r *Runner) Frames() int {
	return r.frame
}
