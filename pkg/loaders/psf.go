// Package loaders reads external images used as glare input.
package loaders

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/glare"
	"github.com/df07/go-diffraction-glare/pkg/tonemap"
	"golang.org/x/image/draw"
)

// LoadPSF loads a PNG or JPEG point-spread image, resamples it to
// width x height and converts it to XYZW luminance. Full white maps to
// intensity in every channel.
func LoadPSF(filename string, width, height int, intensity float64) (*glare.Buffer, error) {
	img, err := imgio.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PSF image: %w", err)
	}
	core.Logger().Debug("loaded PSF image", "file", filename,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return PSFFromImage(img, width, height, intensity), nil
}

// PSFFromImage converts an sRGB image into a glare input buffer
func PSFFromImage(img image.Image, width, height int, intensity float64) *glare.Buffer {
	scaled := image.NewNRGBA64(image.Rect(0, 0, width, height))
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		draw.Draw(scaled, scaled.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		draw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	}

	buf := glare.NewBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := scaled.NRGBA64At(x, y)
			// Alpha acts as coverage of a black background
			a := float64(c.A) / 0xffff
			r := tonemap.SRGBDecode(float64(c.R)/0xffff) * a
			g := tonemap.SRGBDecode(float64(c.G)/0xffff) * a
			b := tonemap.SRGBDecode(float64(c.B)/0xffff) * a
			buf.Set(x, y, tonemap.LinearSRGBToXYZ(r, g, b).Multiply(intensity))
		}
	}
	return buf
}

// SourcePSF loads the image named by the glare source setting at the view
// size. It returns nil when no source is configured so callers fall back
// to a point source.
func SourcePSF(p config.Params) (*glare.Buffer, error) {
	if p.Glare.Source == "" {
		return nil, nil
	}
	return LoadPSF(p.Glare.Source, p.View.Width, p.View.Height, p.Glare.PointIntensity)
}
