package tonemap

import (
	"math"
	"testing"

	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestZeroMapsToBlack(t *testing.T) {
	m := NewMapper(3)
	assert.Equal(t, [3]float64{0, 0, 0}, m.Map(core.XYZW{}))
	c := m.RGBA(core.XYZW{})
	assert.Equal(t, uint8(0), c.R)
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(0), c.B)
	assert.Equal(t, uint8(255), c.A)
}

func TestOutputStaysInUnitRange(t *testing.T) {
	m := NewMapper(0)
	for _, v := range []float64{1e-6, 0.01, 0.5, 1, 10, 1e3, 1e12, math.MaxFloat64 / 1e6} {
		for _, p := range []core.XYZW{core.Splat(v), {X: v}, {Y: v}, {Z: v}} {
			for i, c := range m.Map(p) {
				assert.GreaterOrEqual(t, c, 0.0, "channel %d of %v", i, p)
				assert.LessOrEqual(t, c, 1.0, "channel %d of %v", i, p)
			}
		}
	}
}

func TestSoftClipApproachesOne(t *testing.T) {
	prev := 0.0
	for _, c := range []float64{0.1, 0.5, 1, 1.5, 2, 3} {
		v := SoftClip(c)
		assert.Greater(t, v, prev)
		assert.Less(t, v, 1.0)
		prev = v
	}
	assert.Equal(t, -SoftClip(0.7), SoftClip(-0.7))
	// Small values pass through almost unchanged
	assert.InDelta(t, 0.01, SoftClip(0.01), 1e-6)
}

func TestSRGBTransfer(t *testing.T) {
	assert.Equal(t, 0.0, SRGBTransfer(0))
	assert.InDelta(t, 1, SRGBTransfer(1), 1e-12)
	assert.InDelta(t, 12.92*0.002, SRGBTransfer(0.002), 1e-15)
	assert.InDelta(t, 0.7353569830524495, SRGBTransfer(0.5), 1e-9)
	assert.Equal(t, -SRGBTransfer(0.5), SRGBTransfer(-0.5))
}

func TestD65WhiteIsNeutral(t *testing.T) {
	rgb := XYZToLinearSRGB(core.XYZW{X: 0.95047, Y: 1, Z: 1.08883})
	for _, c := range rgb {
		assert.InDelta(t, 1, c, 2e-3)
	}
}

func TestExposureBrightens(t *testing.T) {
	p := core.XYZW{X: 0.01, Y: 0.01, Z: 0.01}
	dark := NewMapper(0).Map(p)
	bright := NewMapper(1).Map(p)
	for i := range dark {
		assert.Greater(t, bright[i], dark[i])
	}
}

func TestImage(t *testing.T) {
	m := NewMapper(0)
	img := m.Image(3, 2, func(x, y int) core.XYZW {
		if x == 1 && y == 1 {
			return core.Splat(100)
		}
		return core.XYZW{}
	})
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).R)
	assert.Greater(t, img.RGBAAt(1, 1).G, uint8(200))
}

func TestSRGBDecodeInvertsTransfer(t *testing.T) {
	for _, c := range []float64{0, 0.001, 0.02, 0.2, 0.5, 0.9, 1} {
		assert.InDelta(t, c, SRGBDecode(SRGBTransfer(c)), 1e-9)
	}
}

func TestLinearSRGBRoundTrip(t *testing.T) {
	p := LinearSRGBToXYZ(0.2, 0.5, 0.8)
	assert.Equal(t, p.Y, p.W)
	rgb := XYZToLinearSRGB(p)
	assert.InDelta(t, 0.2, rgb[0], 2e-3)
	assert.InDelta(t, 0.5, rgb[1], 2e-3)
	assert.InDelta(t, 0.8, rgb[2], 2e-3)
}
