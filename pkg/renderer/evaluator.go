package renderer

import (
	"fmt"

	"github.com/df07/go-diffraction-glare/pkg/aperture"
	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/diffraction"
	"github.com/df07/go-diffraction-glare/pkg/spectrum"
	"honnef.co/go/curve"
)

// Evaluator computes one output pixel of the diffraction image from a fixed
// parameter snapshot. Pixel is a pure function of (x, y) and safe for
// concurrent use.
type Evaluator struct {
	aperture   *diffraction.Aperture
	integrator *spectrum.Integrator
	camera     *Camera
	freqScale  []float64 // 2π·scale/λ per wavelength sample
}

// NewEvaluator builds the aperture and spectral tables for p. It fails with
// aperture.ErrInvalidGeometry when the outline does not exist.
func NewEvaluator(p config.Params) (*Evaluator, error) {
	outline, err := aperture.NewOutline(p.Aperture)
	if err != nil {
		return nil, fmt.Errorf("building aperture: %w", err)
	}

	integrator := spectrum.NewIntegrator(spectrum.NewWavelengthSet(p.Spectrum), spectrum.CIE1931)
	camera := NewCamera(p.View, p.Aperture.Oversample)

	freqScale := make([]float64, integrator.Len())
	for i, nm := range integrator.Wavelengths() {
		freqScale[i] = camera.FrequencyScale(nm)
	}

	return &Evaluator{
		aperture:   diffraction.FromOutline(outline),
		integrator: integrator,
		camera:     camera,
		freqScale:  freqScale,
	}, nil
}

// Intensity returns the diffraction intensity |F(k)|² at an image-plane
// offset for wavelength sample i.
func (e *Evaluator) Intensity(offset curve.Vec2, i int) float64 {
	return e.aperture.Intensity(offset.Mul(e.freqScale[i]))
}

// Pixel returns the XYZW luminance of pixel (x, y), averaged over the
// sub-pixel positions.
func (e *Evaluator) Pixel(x, y int) core.XYZW {
	subsamples := e.camera.Subsamples()
	var sum core.XYZW
	for _, sub := range subsamples {
		offset := e.camera.Offset(x, y, sub)
		sum = sum.Add(e.integrator.Accumulate(func(i int, _ float64) float64 {
			return e.Intensity(offset, i)
		}))
	}
	return sum.Multiply(1 / float64(len(subsamples)))
}

// Aperture returns the triangulated aperture
func (e *Evaluator) Aperture() *diffraction.Aperture {
	return e.aperture
}
