package renderer

import "github.com/df07/go-diffraction-glare/pkg/core"

// Accumulator is the width x height XYZW image the scheduler fills in
type Accumulator struct {
	width, height int
	pixels        []core.XYZW
}

// NewAccumulator allocates a zeroed accumulator
func NewAccumulator(width, height int) *Accumulator {
	return &Accumulator{
		width:  width,
		height: height,
		pixels: make([]core.XYZW, width*height),
	}
}

// Width returns the accumulator width
func (a *Accumulator) Width() int { return a.width }

// Height returns the accumulator height
func (a *Accumulator) Height() int { return a.height }

// Clear zeroes every pixel
func (a *Accumulator) Clear() {
	clear(a.pixels)
}

// At returns pixel (x, y)
func (a *Accumulator) At(x, y int) core.XYZW {
	return a.pixels[y*a.width+x]
}

// Set overwrites pixel (x, y)
func (a *Accumulator) Set(x, y int, p core.XYZW) {
	a.pixels[y*a.width+x] = p
}

// Add blends p additively into pixel (x, y)
func (a *Accumulator) Add(x, y int, p core.XYZW) {
	i := y*a.width + x
	a.pixels[i] = a.pixels[i].Add(p)
}

// Snapshot returns a copy of the pixels in row-major order
func (a *Accumulator) Snapshot() []core.XYZW {
	out := make([]core.XYZW, len(a.pixels))
	copy(out, a.pixels)
	return out
}
