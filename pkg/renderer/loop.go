package renderer

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
)

// Surface receives the frames produced by a Loop
type Surface interface {
	Present(frame *image.RGBA, stats StepStats) error
}

// SurfaceFunc adapts a function to Surface
type SurfaceFunc func(frame *image.RGBA, stats StepStats) error

// Present calls f
func (f SurfaceFunc) Present(frame *image.RGBA, stats StepStats) error {
	return f(frame, stats)
}

// Loop drives a Renderer from a parameter source: once per tick it polls
// the source, runs at most one step and presents a frame when anything
// visible changed.
type Loop struct {
	Renderer *Renderer
	Source   config.Source
	Surface  Surface
	Interval time.Duration // tick period, defaults to 16ms
}

// Run ticks until ctx is done or the surface fails
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last config.Params
	first := true
	for {
		if err := l.Tick(ctx, &last, first); err != nil {
			return err
		}
		first = false

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick performs one frame. last holds the snapshot seen on the previous
// tick and is updated in place; force presents unconditionally.
func (l *Loop) Tick(ctx context.Context, last *config.Params, force bool) error {
	p := l.Source.Current()
	l.Renderer.Update(p)
	redraw := force || p != *last
	*last = p

	var stats StepStats
	if l.Renderer.Computing() {
		s, err := l.Renderer.Step(ctx)
		switch {
		case errors.Is(err, ErrNoBackend):
			core.Logger().Warn("no compute backend, frame skipped")
			return nil
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			core.Logger().Warn("step failed, frame skipped", "err", err)
			return nil
		}
		stats = s
		redraw = true
	} else {
		stats = StepStats{Done: true}
		if l.Renderer.Valid() {
			stats.Completed = 1
		}
	}

	if !redraw {
		return nil
	}
	return l.Surface.Present(l.Renderer.Frame(), stats)
}
