package glare

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"
)

func TestKernelWeight(t *testing.T) {
	k := NewKernel(config.DefaultGlare())
	assert.Equal(t, 0.955491103831962, k.Weight(0))
	assert.Equal(t, 0.955491103831962, k.Weight(0.3))
	assert.InDelta(t, 0.0111272240420095, k.Weight(1), 1e-18)
	assert.InDelta(t, 0.0111272240420095/4, k.Weight(-2), 1e-18)
}

func TestDirections(t *testing.T) {
	dirs := Directions(config.DefaultGlare())
	require.Len(t, dirs, 3)
	for i, d := range dirs {
		assert.InDelta(t, 1, d.Hypot(), 1e-12)
		want := (5 + 120*float64(i)) * math.Pi / 180
		assert.InDelta(t, math.Cos(want), d.X, 1e-12)
		assert.InDelta(t, -math.Sin(want), d.Y, 1e-12)
	}
	assert.Empty(t, Directions(config.Glare{}))
}

func TestSampleBilinear(t *testing.T) {
	b := NewBuffer(2, 2)
	b.Set(0, 0, core.Splat(4))
	b.Set(1, 0, core.Splat(8))

	assert.Equal(t, core.Splat(4), b.Sample(0, 0))
	assert.Equal(t, core.Splat(6), b.Sample(0.5, 0))
	assert.Equal(t, core.Splat(3), b.Sample(0.5, 0.5))
	// Half a pixel past the border blends with zero
	assert.Equal(t, core.Splat(2), b.Sample(-0.5, 0))
	assert.True(t, b.Sample(-1, 0).IsZero())
	assert.True(t, b.Sample(5, 5).IsZero())
}

func TestBufferPairSwap(t *testing.T) {
	initial := NewBuffer(3, 2)
	pair := NewBufferPair(initial)
	assert.Same(t, initial, pair.Current())
	next := pair.Next()
	assert.NotSame(t, initial, next)

	pair.Swap()
	assert.Same(t, next, pair.Current())
	assert.Same(t, initial, pair.Next())
}

func TestPassHorizontalStreak(t *testing.T) {
	src := PointSource(21, 5, 1)
	dst := NewBuffer(21, 5)
	kernel := NewKernel(config.DefaultGlare())

	require.NoError(t, Pass(context.Background(), dst, src, curve.Vec(1, 0), kernel))

	cx, cy := 10, 2
	assert.InDelta(t, kernel.A, dst.At(cx, cy).Y, 1e-15)
	for d := 1; d <= 10; d++ {
		want := kernel.Weight(float64(d))
		assert.InDelta(t, want, dst.At(cx+d, cy).X, 1e-15, "d=%d", d)
		assert.InDelta(t, want, dst.At(cx-d, cy).W, 1e-15, "d=%d", d)
	}
	for x := 0; x < 21; x++ {
		assert.True(t, dst.At(x, cy-1).IsZero())
		assert.True(t, dst.At(x, cy+1).IsZero())
	}
}

func TestApplyIsPointSymmetric(t *testing.T) {
	src := PointSource(31, 31, 1e6)
	out, err := Apply(context.Background(), src, config.DefaultGlare(), nil)
	require.NoError(t, err)

	// Source untouched
	assert.Equal(t, 1e6, src.At(15, 15).X)
	assert.InDelta(t, 1e6, src.Sum().Y, 1e-6)

	for _, d := range [][2]int{{1, 0}, {3, 2}, {-7, 5}, {10, -1}} {
		a := out.At(15+d[0], 15+d[1]).Y
		b := out.At(15-d[0], 15-d[1]).Y
		assert.InDelta(t, a, b, 1e-9*math.Max(1, a), "offset %v", d)
	}

	// The center keeps most of the energy and streaks carry the rest
	center := out.At(15, 15).Y
	assert.Greater(t, center, 0.8e6)
	assert.Less(t, center, 1e6)
	assert.Greater(t, out.Sum().Y, center)
}

func TestApplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Apply(ctx, PointSource(8, 8, 1), config.DefaultGlare(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFirstStreakRisesToTheRight(t *testing.T) {
	g := config.DefaultGlare()
	src := PointSource(31, 31, 1)
	dst := NewBuffer(31, 31)
	require.NoError(t, Pass(context.Background(), dst, src, Directions(g)[0], NewKernel(g)))

	// 11 pixels along a 5 degree streak climb about one row on screen
	assert.Greater(t, dst.At(15+11, 15-1).Y, 0.0)
	assert.Greater(t, dst.At(15-11, 15+1).Y, 0.0)
	assert.True(t, dst.At(15+11, 15+1).IsZero())
	assert.True(t, dst.At(15-11, 15-1).IsZero())
}

type countingHandler struct {
	records *int
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countingHandler) Handle(context.Context, slog.Record) error {
	*h.records++
	return nil
}
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countingHandler) WithGroup(string) slog.Handler      { return h }

func TestApplyLogsToGivenLogger(t *testing.T) {
	records := 0
	log := slog.New(countingHandler{records: &records})
	_, err := Apply(context.Background(), PointSource(9, 9, 1), config.DefaultGlare(), log)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultGlare().Directions, records)
}
