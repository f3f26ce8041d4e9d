package aperture

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"
)

// Draw renders the outline chords in black on a white size x size square,
// the unit circle touching the square's edges.
func (o *Outline) Draw(size int) (image.Image, error) {
	if size < 2 {
		return nil, fmt.Errorf("outline size must be at least 2, got %d", size)
	}

	dc := gg.NewContext(size, size)
	defer dc.Close()

	dc.ClearWithColor(gg.White)
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)

	half := float64(size) / 2
	toPixel := func(x, y float64) (float64, float64) {
		return half + x*(half-1), half - y*(half-1)
	}

	for _, s := range o.Segments {
		x1, y1 := toPixel(s.A.X, s.A.Y)
		x2, y2 := toPixel(s.B.X, s.B.Y)
		dc.MoveTo(x1, y1)
		dc.LineTo(x2, y2)
	}
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("failed to stroke outline: %w", err)
	}

	return dc.Image(), nil
}
