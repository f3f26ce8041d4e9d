package renderer

import (
	"math"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/diffraction"
	"honnef.co/go/curve"
)

// Camera maps image pixels to spatial frequencies. The optical center is the
// integer pixel (width/2, height/2); image y grows downwards, aperture y
// grows upwards.
type Camera struct {
	width, height int
	scale         float64
	subsamples    []curve.Vec2
}

// NewCamera creates a camera for the viewport and oversampling factor
func NewCamera(view config.View, oversample int) *Camera {
	return &Camera{
		width:      view.Width,
		height:     view.Height,
		scale:      view.Scale(),
		subsamples: diffraction.SubpixelOffsets(oversample),
	}
}

// Subsamples returns the sub-pixel positions averaged per pixel
func (c *Camera) Subsamples() []curve.Vec2 {
	return c.subsamples
}

// Offset returns the image-plane offset of a sub-pixel position from the
// optical center, in pixels.
func (c *Camera) Offset(x, y int, sub curve.Vec2) curve.Vec2 {
	return curve.Vec(
		float64(x-c.width/2)+sub.X,
		float64(c.height/2-y)-sub.Y,
	)
}

// FrequencyScale returns 2π·scale/λ, the factor turning an offset into k
func (c *Camera) FrequencyScale(nm float64) float64 {
	return 2 * math.Pi * c.scale / nm
}

// Frequency returns k = 2π·offset·scale/λ
func (c *Camera) Frequency(offset curve.Vec2, nm float64) curve.Vec2 {
	return offset.Mul(c.FrequencyScale(nm))
}
