// Package glare spreads a luminance image through directional line
// convolutions to simulate glare streaks around bright points.
package glare

import (
	"math"

	"github.com/df07/go-diffraction-glare/pkg/core"
)

// Buffer is a width x height XYZW image stored row-major
type Buffer struct {
	Width, Height int
	Pixels        []core.XYZW
}

// NewBuffer allocates a zeroed buffer
func NewBuffer(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pixels: make([]core.XYZW, width*height),
	}
}

// PointSource returns a black buffer with value in all four channels of the
// center pixel (width/2, height/2).
func PointSource(width, height int, value float64) *Buffer {
	b := NewBuffer(width, height)
	b.Set(width/2, height/2, core.Splat(value))
	return b
}

// At returns the pixel at (x, y), zero outside the buffer
func (b *Buffer) At(x, y int) core.XYZW {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return core.XYZW{}
	}
	return b.Pixels[y*b.Width+x]
}

// Set stores a pixel; out of range coordinates are ignored
func (b *Buffer) Set(x, y int, p core.XYZW) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pixels[y*b.Width+x] = p
}

// Sample interpolates bilinearly between pixel centers. Integer coordinates
// hit pixel centers exactly; everything outside the buffer reads as zero.
func (b *Buffer) Sample(x, y float64) core.XYZW {
	fx, fy := math.Floor(x), math.Floor(y)
	tx, ty := x-fx, y-fy
	x0, y0 := int(fx), int(fy)

	top := b.At(x0, y0).Multiply(1 - tx).AddScaled(b.At(x0+1, y0), tx)
	bottom := b.At(x0, y0+1).Multiply(1 - tx).AddScaled(b.At(x0+1, y0+1), tx)
	return top.Multiply(1 - ty).AddScaled(bottom, ty)
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	c := NewBuffer(b.Width, b.Height)
	copy(c.Pixels, b.Pixels)
	return c
}

// Sum returns the total of all pixels
func (b *Buffer) Sum() core.XYZW {
	var sum core.XYZW
	for _, p := range b.Pixels {
		sum = sum.Add(p)
	}
	return sum
}

// BufferPair is a current/next double buffer. Passes read Current, write
// Next, then Swap hands the result over.
type BufferPair struct {
	current, next *Buffer
}

// NewBufferPair takes ownership of initial as the current buffer
func NewBufferPair(initial *Buffer) *BufferPair {
	return &BufferPair{
		current: initial,
		next:    NewBuffer(initial.Width, initial.Height),
	}
}

// Current returns the buffer holding the latest result
func (bp *BufferPair) Current() *Buffer { return bp.current }

// Next returns the buffer the next pass writes into
func (bp *BufferPair) Next() *Buffer { return bp.next }

// Swap exchanges the roles of the two buffers
func (bp *BufferPair) Swap() {
	bp.current, bp.next = bp.next, bp.current
}
