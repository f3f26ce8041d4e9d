package renderer

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/glare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopTickPresentsProgress(t *testing.T) {
	p := testParams()
	src := config.NewMutableSource(p)
	r := newTestRenderer(t, time.Millisecond)

	var presented []StepStats
	loop := &Loop{
		Renderer: r,
		Source:   src,
		Surface: SurfaceFunc(func(frame *image.RGBA, stats StepStats) error {
			assert.Equal(t, p.View.Width, frame.Bounds().Dx())
			presented = append(presented, stats)
			return nil
		}),
	}

	var last config.Params
	ctx := context.Background()
	require.NoError(t, loop.Tick(ctx, &last, true))
	for r.Computing() {
		require.NoError(t, loop.Tick(ctx, &last, false))
	}
	require.NotEmpty(t, presented)
	assert.True(t, presented[len(presented)-1].Done)

	// Idle with unchanged parameters: nothing to present
	n := len(presented)
	require.NoError(t, loop.Tick(ctx, &last, false))
	assert.Len(t, presented, n)

	// Exposure change redraws without restarting
	src.Update(func(p *config.Params) { p.View.LogExposure = 0 })
	require.NoError(t, loop.Tick(ctx, &last, false))
	assert.Len(t, presented, n+1)
	assert.False(t, r.Computing())
}

func TestLoopSkipsFramesWithoutBackend(t *testing.T) {
	presents := 0
	loop := &Loop{
		Renderer: NewRenderer(nil, DefaultOptions()),
		Source:   config.StaticSource(testParams()),
		Surface: SurfaceFunc(func(*image.RGBA, StepStats) error {
			presents++
			return nil
		}),
	}
	var last config.Params
	require.NoError(t, loop.Tick(context.Background(), &last, true))
	assert.Zero(t, presents)
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := &Loop{
		Renderer: newTestRenderer(t, time.Millisecond),
		Source:   config.NewMutableSource(testParams()),
		Surface: SurfaceFunc(func(_ *image.RGBA, stats StepStats) error {
			if stats.Done {
				cancel()
			}
			return nil
		}),
		Interval: time.Millisecond,
	}
	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)
}

func TestLoopSurvivesStepErrors(t *testing.T) {
	boom := errors.New("device lost")
	presents := 0
	r := NewRenderer(failingBackend{err: boom}, DefaultOptions())
	loop := &Loop{
		Renderer: r,
		Source:   config.StaticSource(testParams()),
		Surface: SurfaceFunc(func(*image.RGBA, StepStats) error {
			presents++
			return nil
		}),
	}

	var last config.Params
	require.NoError(t, loop.Tick(context.Background(), &last, true))
	require.NoError(t, loop.Tick(context.Background(), &last, false))
	assert.Zero(t, presents)
	assert.True(t, r.Computing())

	backend := NewCPUBackend(2)
	t.Cleanup(func() { backend.Close() })
	r.SetBackend(backend)
	require.NoError(t, loop.Tick(context.Background(), &last, false))
	assert.Equal(t, 1, presents)
}

func TestLoopGlareFallsBackWhenSourceFails(t *testing.T) {
	p := testParams()
	p.Mode = config.ModeGlare
	p.Glare.Source = "missing.png"

	backend := NewCPUBackend(2)
	t.Cleanup(func() { backend.Close() })
	opts := DefaultOptions()
	opts.PSF = func(config.Params) (*glare.Buffer, error) {
		return nil, errors.New("open missing.png: no such file")
	}
	r := NewRenderer(backend, opts)

	var presented []StepStats
	loop := &Loop{
		Renderer: r,
		Source:   config.StaticSource(p),
		Surface: SurfaceFunc(func(_ *image.RGBA, stats StepStats) error {
			presented = append(presented, stats)
			return nil
		}),
	}
	var last config.Params
	require.NoError(t, loop.Tick(context.Background(), &last, true))
	require.Len(t, presented, 1)
	assert.True(t, presented[0].Done)

	// The point source lands at the center pixel
	assert.Greater(t, r.Accumulator().At(p.View.Width/2, p.View.Height/2).Y, 0.0)
}

func TestLoopReportsNoProgressForInvalidGeometry(t *testing.T) {
	p := testParams()
	p.Aperture.EdgeCount = 3
	p.Aperture.CurvatureRadius = 0.5

	var presented []StepStats
	loop := &Loop{
		Renderer: newTestRenderer(t, time.Millisecond),
		Source:   config.StaticSource(p),
		Surface: SurfaceFunc(func(_ *image.RGBA, stats StepStats) error {
			presented = append(presented, stats)
			return nil
		}),
	}
	var last config.Params
	require.NoError(t, loop.Tick(context.Background(), &last, true))
	require.Len(t, presented, 1)
	assert.True(t, presented[0].Done)
	assert.Zero(t, presented[0].Completed)
}
