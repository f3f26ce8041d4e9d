// Package tonemap converts XYZ luminance into displayable sRGB colors.
package tonemap

import (
	"image"
	"image/color"
	"math"

	"github.com/df07/go-diffraction-glare/pkg/core"
)

// Mapper applies exposure, soft clipping and the sRGB transfer curve
type Mapper struct {
	Exposure float64 // linear multiplier
}

// NewMapper creates a mapper from a base-10 log exposure
func NewMapper(logExposure float64) Mapper {
	return Mapper{Exposure: math.Pow(10, logExposure)}
}

// XYZToLinearSRGB converts CIE XYZ to linear sRGB (D65)
func XYZToLinearSRGB(p core.XYZW) [3]float64 {
	return [3]float64{
		3.2406*p.X - 1.5372*p.Y - 0.4986*p.Z,
		-0.9689*p.X + 1.8758*p.Y + 0.0415*p.Z,
		0.0557*p.X - 0.2040*p.Y + 1.0570*p.Z,
	}
}

// SoftClip compresses c into (-1, 1) as sign(c)·sqrt(tanh(c²))
func SoftClip(c float64) float64 {
	return math.Copysign(math.Sqrt(math.Tanh(c*c)), c)
}

// SRGBTransfer applies the sRGB encoding curve, mirrored for negative values
func SRGBTransfer(c float64) float64 {
	a := math.Abs(c)
	if a <= 0.0031308 {
		return 12.92 * c
	}
	return math.Copysign(1.055*math.Pow(a, 1/2.4)-0.055, c)
}

// Map returns the display color of p with channels in [0, 1]. Out of gamut
// negative channels are clamped to zero.
func (m Mapper) Map(p core.XYZW) [3]float64 {
	rgb := XYZToLinearSRGB(p)
	for i, c := range rgb {
		v := SRGBTransfer(SoftClip(c * m.Exposure))
		rgb[i] = min(max(v, 0), 1)
	}
	return rgb
}

// RGBA returns the 8-bit opaque display color of p
func (m Mapper) RGBA(p core.XYZW) color.RGBA {
	rgb := m.Map(p)
	return color.RGBA{
		R: uint8(math.Round(rgb[0] * 255)),
		G: uint8(math.Round(rgb[1] * 255)),
		B: uint8(math.Round(rgb[2] * 255)),
		A: 255,
	}
}

// Image tone maps a width x height luminance image
func (m Mapper) Image(width, height int, at func(x, y int) core.XYZW) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, m.RGBA(at(x, y)))
		}
	}
	return img
}

// LinearSRGBToXYZ converts linear sRGB (D65) to CIE XYZ. W is set to Y.
func LinearSRGBToXYZ(r, g, b float64) core.XYZW {
	y := 0.2126*r + 0.7152*g + 0.0722*b
	return core.XYZW{
		X: 0.4124*r + 0.3576*g + 0.1805*b,
		Y: y,
		Z: 0.0193*r + 0.1192*g + 0.9505*b,
		W: y,
	}
}

// SRGBDecode inverts SRGBTransfer for c in [0, 1]
func SRGBDecode(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
