// Package diffraction evaluates the Fraunhofer diffraction amplitude of
// polygonal apertures in closed form, one triangle at a time.
//
// The transform convention is F(k) = ∫ exp(-i k·r) d²r over the aperture,
// so F(0) equals the aperture area.
package diffraction

import (
	"math"
	"math/cmplx"

	"honnef.co/go/curve"
)

// sumEpsilon is the |α+β| below which the closed form is replaced by its
// analytic limit.
const sumEpsilon = 1e-6

// Triangle is an oriented triangle in aperture coordinates
type Triangle struct {
	S1, S2, S3 curve.Point
}

// SignedArea returns the shoelace area, positive for counter-clockwise order
func (t Triangle) SignedArea() float64 {
	return t.S2.Sub(t.S1).Cross(t.S3.Sub(t.S1)) / 2
}

// Transform returns the Fourier transform of the triangle at spatial
// frequency k divided by its area. At k = 0 it is exactly 1.
//
// The closed form is evaluated relative to one of two vertices; the one with
// the larger |α+β| is used to keep the denominator away from zero.
func (t Triangle) Transform(k curve.Vec2) complex128 {
	if k == (curve.Vec2{}) {
		return 1
	}

	// Origin S1: α = k·(S1−S3)/2, β = k·(S2−S1)/2
	alpha1 := k.Dot(t.S1.Sub(t.S3)) / 2
	beta1 := k.Dot(t.S2.Sub(t.S1)) / 2
	// Origin S2: α = k·(S2−S1)/2, β = k·(S3−S2)/2
	alpha2 := beta1
	beta2 := k.Dot(t.S3.Sub(t.S2)) / 2

	alpha, beta, origin := alpha1, beta1, t.S1
	if math.Abs(alpha2+beta2) > math.Abs(alpha1+beta1) {
		alpha, beta, origin = alpha2, beta2, t.S2
	}

	return factor(alpha, beta) * phase(k, origin)
}

// Amplitude returns the complex diffraction amplitude of the triangle
func (t Triangle) Amplitude(k curve.Vec2) complex128 {
	return complex(t.SignedArea(), 0) * t.Transform(k)
}

// factor is the origin-relative triangle transform in terms of the half edge
// projections α and β.
func factor(alpha, beta float64) complex128 {
	sum := alpha + beta
	if math.Abs(sum) < sumEpsilon {
		// Limit β → −α of both quotients
		re := 2*sinc(2*alpha) - sinc(alpha)*sinc(alpha)
		im := -2 * sincDerivative(2*alpha)
		return complex(re, im)
	}

	sa, sb := sinc(alpha), sinc(beta)
	re := (alpha*sa*sa + beta*sb*sb) / sum
	im := (sinc(2*beta) - sinc(2*alpha)) / sum
	return complex(re, im)
}

// phase returns exp(−i k·origin)
func phase(k curve.Vec2, origin curve.Point) complex128 {
	return cmplx.Rect(1, -k.Dot(curve.Vec2(origin)))
}

// sinc returns sin(x)/x with sinc(0) = 1
func sinc(x float64) float64 {
	if math.Abs(x) < 1e-4 {
		return 1 - x*x/6
	}
	return math.Sin(x) / x
}

// sincDerivative returns d/dx sinc(x)
func sincDerivative(x float64) float64 {
	if math.Abs(x) < 1e-4 {
		return -x / 3
	}
	return (math.Cos(x) - sinc(x)) / x
}
