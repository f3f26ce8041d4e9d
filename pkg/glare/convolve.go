package glare

import (
	"context"
	"log/slog"
	"math"
	"runtime"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"golang.org/x/sync/errgroup"
	"honnef.co/go/curve"
)

// Kernel is the 1D streak weight profile: A at the center tap, B/x² elsewhere
type Kernel struct {
	A, B float64
}

// NewKernel returns the kernel of a glare preset
func NewKernel(g config.Glare) Kernel {
	return Kernel{A: g.WeightA, B: g.WeightB}
}

// Weight returns the tap weight at distance x
func (k Kernel) Weight(x float64) float64 {
	if math.Abs(x) < 0.5 {
		return k.A
	}
	return k.B / (x * x)
}

// Directions returns the unit step vectors of the preset's passes, starting
// at FirstAngleDeg and evenly spaced over the full circle. Angles run
// counterclockwise on screen, so in buffer coordinates (rows growing
// downward) the y component is negated.
func Directions(g config.Glare) []curve.Vec2 {
	if g.Directions < 1 {
		return nil
	}
	first := g.FirstAngleDeg * math.Pi / 180
	step := 2 * math.Pi / float64(g.Directions)
	dirs := make([]curve.Vec2, g.Directions)
	for i := range dirs {
		dirs[i] = curve.VecFromAngle(-(first + step*float64(i)))
	}
	return dirs
}

// Pass writes into dst the line convolution of src along dir and -dir.
// Taps continue until the sample point is more than one pixel outside the
// image, past which bilinear sampling returns zero.
func Pass(ctx context.Context, dst, src *Buffer, dir curve.Vec2, kernel Kernel) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	w, h := float64(src.Width), float64(src.Height)
	outside := func(p curve.Point) bool {
		return p.X < -1 || p.Y < -1 || p.X > w || p.Y > h
	}

	for y := 0; y < src.Height; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x < src.Width; x++ {
				pos := curve.Pt(float64(x), float64(y))
				sum := src.At(x, y).Multiply(kernel.Weight(0))
				for _, sign := range [2]float64{-1, 1} {
					for dist := 1.0; ; dist++ {
						p := pos.Translate(dir.Mul(sign * dist))
						if outside(p) {
							break
						}
						sum = sum.AddScaled(src.Sample(p.X, p.Y), kernel.Weight(dist))
					}
				}
				dst.Pixels[y*dst.Width+x] = sum
			}
			return nil
		})
	}
	return g.Wait()
}

// Apply runs every directional pass of the preset, each one reading the
// previous pass's output. src is not modified. A nil log uses core.Logger.
func Apply(ctx context.Context, src *Buffer, g config.Glare, log *slog.Logger) (*Buffer, error) {
	if log == nil {
		log = core.Logger()
	}
	kernel := NewKernel(g)
	pair := NewBufferPair(src.Clone())
	for i, dir := range Directions(g) {
		if err := Pass(ctx, pair.Next(), pair.Current(), dir, kernel); err != nil {
			return nil, err
		}
		pair.Swap()
		log.Debug("glare pass done", "pass", i, "angle", -dir.Angle())
	}
	return pair.Current(), nil
}
