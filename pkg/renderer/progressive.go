package renderer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/glare"
	"github.com/df07/go-diffraction-glare/pkg/tonemap"
)

// ProgressState tracks an in-progress recomputation
type ProgressState struct {
	Computing    bool
	CurrentLine  int
	LinesPerStep int
}

// PSFProvider supplies the glare input image for a parameter snapshot. A nil
// buffer selects the built-in point source.
type PSFProvider func(p config.Params) (*glare.Buffer, error)

// Options configures the scheduler
type Options struct {
	StepBudget time.Duration    // steps faster than this double the band height
	Clock      func() time.Time // defaults to time.Now
	PSF        PSFProvider      // glare input, nil = point source
	Logger     *slog.Logger     // nil = core.Logger()
}

// DefaultOptions returns the interactive defaults
func DefaultOptions() Options {
	return Options{
		StepBudget: 250 * time.Millisecond,
		Clock:      time.Now,
	}
}

// Renderer owns the accumulator and the progressive state machine. Update
// diffs parameter snapshots and resets on optical changes; Step computes the
// next band. Both are safe for concurrent use; a step is atomic with respect
// to Update.
type Renderer struct {
	mu        sync.Mutex
	backend   Backend
	opts      Options
	params    config.Params
	hasParams bool
	accum     *Accumulator
	evaluator *Evaluator
	progress  ProgressState
	valid     bool
}

// NewRenderer creates an idle renderer. backend may be nil, in which case
// Step reports ErrNoBackend until SetBackend is called.
func NewRenderer(backend Backend, opts Options) *Renderer {
	if opts.StepBudget <= 0 {
		opts.StepBudget = DefaultOptions().StepBudget
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Renderer{
		backend: backend,
		opts:    opts,
		accum:   NewAccumulator(0, 0),
	}
}

// SetBackend replaces the compute backend
func (r *Renderer) SetBackend(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend = b
}

// Update installs a new parameter snapshot. It reports whether the
// computation restarted: a viewport resize reallocates the accumulator, and
// any other optical change clears it. Exposure changes never restart.
func (r *Renderer) Update(p config.Params) bool {
	p = p.Clamp()

	r.mu.Lock()
	defer r.mu.Unlock()

	resized := !r.hasParams || p.View.Width != r.params.View.Width || p.View.Height != r.params.View.Height
	changed := resized || !p.OpticsEqual(r.params)
	r.params = p
	r.hasParams = true

	if !changed {
		return false
	}
	if resized {
		r.accum = NewAccumulator(p.View.Width, p.View.Height)
	}
	r.reset()
	return true
}

// reset restarts the computation for r.params. Invalid geometry leaves the
// accumulator holding the last valid image and the renderer idle.
func (r *Renderer) reset() {
	log := r.logger()
	r.progress = ProgressState{}
	r.evaluator = nil

	if r.params.Mode == config.ModeDiffraction {
		ev, err := NewEvaluator(r.params)
		if err != nil {
			r.valid = false
			log.Warn("aperture invalid, keeping last image", "err", err,
				"edges", r.params.Aperture.EdgeCount, "radius", r.params.Aperture.CurvatureRadius)
			return
		}
		r.evaluator = ev
	}

	r.valid = true
	r.accum.Clear()
	r.progress = ProgressState{Computing: true, CurrentLine: 0, LinesPerStep: 1}
	log.Info("recomputation started", "mode", r.params.Mode,
		"width", r.params.View.Width, "height", r.params.View.Height)
}

// Step computes the next band of scanlines. It returns ErrNoBackend without
// touching the progress state when no backend is set, and a zero StepStats
// with Done set when there is nothing to do.
func (r *Renderer) Step(ctx context.Context) (StepStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return StepStats{}, ErrNoBackend
	}
	if !r.progress.Computing {
		return StepStats{Done: true, Completed: r.completed(), LinesPerStep: r.progress.LinesPerStep}, nil
	}

	if r.params.Mode == config.ModeGlare {
		return r.stepGlare(ctx)
	}

	height := r.params.View.Height
	band := Band{
		Y0: r.progress.CurrentLine,
		Y1: min(r.progress.CurrentLine+r.progress.LinesPerStep, height),
	}

	start := r.opts.Clock()
	err := r.backend.EvaluateBand(ctx, Job{Evaluator: r.evaluator, Band: band, Target: r.accum})
	if err != nil {
		return StepStats{}, fmt.Errorf("evaluating lines %d-%d on %s: %w", band.Y0, band.Y1, r.backend.Name(), err)
	}
	duration := r.opts.Clock().Sub(start)

	r.progress.CurrentLine = band.Y1
	if duration < r.opts.StepBudget {
		r.progress.LinesPerStep = min(r.progress.LinesPerStep*2, height)
	}
	if r.progress.CurrentLine >= height {
		r.progress.Computing = false
		r.logger().Info("image complete", "height", height)
	}

	r.logger().Debug("step", "y0", band.Y0, "y1", band.Y1,
		"duration", duration, "next_lines", r.progress.LinesPerStep)

	return StepStats{
		Band:         band,
		Duration:     duration,
		LinesPerStep: r.progress.LinesPerStep,
		Completed:    r.completed(),
		Done:         !r.progress.Computing,
	}, nil
}

// stepGlare runs the whole glare convolution as one step
func (r *Renderer) stepGlare(ctx context.Context) (StepStats, error) {
	w, h := r.params.View.Width, r.params.View.Height

	var src *glare.Buffer
	if r.opts.PSF != nil {
		psf, err := r.opts.PSF(r.params)
		if err != nil {
			r.logger().Warn("glare source unavailable, using point source", "source", r.params.Glare.Source, "err", err)
		}
		src = psf
	}
	if src == nil || src.Width != w || src.Height != h {
		src = glare.PointSource(w, h, r.params.Glare.PointIntensity)
	}

	start := r.opts.Clock()
	out, err := glare.Apply(ctx, src, r.params.Glare, r.logger())
	if err != nil {
		return StepStats{}, fmt.Errorf("glare convolution: %w", err)
	}
	duration := r.opts.Clock().Sub(start)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.accum.Set(x, y, out.At(x, y))
		}
	}
	r.progress = ProgressState{CurrentLine: h, LinesPerStep: h}
	r.logger().Info("glare image complete", "passes", r.params.Glare.Directions, "duration", duration)

	return StepStats{
		Band:         Band{Y0: 0, Y1: h},
		Duration:     duration,
		LinesPerStep: h,
		Completed:    1,
		Done:         true,
	}, nil
}

func (r *Renderer) completed() float64 {
	h := r.params.View.Height
	if h == 0 {
		return 0
	}
	if !r.progress.Computing {
		if r.valid {
			return 1
		}
		return 0
	}
	return float64(r.progress.CurrentLine) / float64(h)
}

func (r *Renderer) logger() *slog.Logger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return core.Logger()
}

// RenderAll steps until the image is complete
func (r *Renderer) RenderAll(ctx context.Context) error {
	for r.Computing() {
		if _, err := r.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Computing reports whether a recomputation is in progress
func (r *Renderer) Computing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress.Computing
}

// Progress returns a copy of the progress state
func (r *Renderer) Progress() ProgressState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Valid reports whether the current parameters describe a valid aperture
func (r *Renderer) Valid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valid
}

// Params returns the clamped parameters last passed to Update
func (r *Renderer) Params() config.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// Accumulator returns a copy of the accumulated image
func (r *Renderer) Accumulator() *Accumulator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Accumulator{width: r.accum.width, height: r.accum.height, pixels: r.accum.Snapshot()}
}

// Frame tone maps the accumulator, including rows not yet computed, with
// the current exposure.
func (r *Renderer) Frame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Mapper(r.params).Image(r.accum.Width(), r.accum.Height(), r.accum.At)
}

// Mapper returns the tone mapper for a parameter snapshot
func Mapper(p config.Params) tonemap.Mapper {
	return tonemap.NewMapper(p.View.LogExposure)
}
