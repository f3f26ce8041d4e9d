package spectrum

import "github.com/df07/go-diffraction-glare/pkg/core"

// Integrator turns per-wavelength radiance into XYZW luminance. Each sample
// carries a precomputed coefficient: quadrature weight times response times
// efficacy.
type Integrator struct {
	samples []float64
	coeffs  []core.XYZW
}

// NewIntegrator precomputes the coefficients for a wavelength set
func NewIntegrator(ws WavelengthSet, response ResponseFunc) *Integrator {
	in := &Integrator{
		samples: make([]float64, 0, max(ws.Count, 1)),
		coeffs:  make([]core.XYZW, 0, max(ws.Count, 1)),
	}
	for _, b := range ws.Batches(BatchSize) {
		for j, nm := range b.Samples {
			c := response(nm).MultiplyXYZW(Efficacy).Multiply(b.Weights[j])
			in.samples = append(in.samples, nm)
			in.coeffs = append(in.coeffs, c)
		}
	}
	return in
}

// Len returns the number of wavelength samples
func (in *Integrator) Len() int {
	return len(in.samples)
}

// Wavelengths returns the sample wavelengths. The slice must not be modified.
func (in *Integrator) Wavelengths() []float64 {
	return in.samples
}

// Coefficient returns the XYZW coefficient of sample i
func (in *Integrator) Coefficient(i int) core.XYZW {
	return in.coeffs[i]
}

// Accumulate sums radiance(i, nm) over all samples, always in increasing
// wavelength order so repeated evaluations are bit-identical.
func (in *Integrator) Accumulate(radiance func(i int, nm float64) float64) core.XYZW {
	var sum core.XYZW
	for i, nm := range in.samples {
		sum = sum.AddScaled(in.coeffs[i], radiance(i, nm))
	}
	return sum
}
