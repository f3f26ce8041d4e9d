package spectrum

import (
	"math"

	"github.com/df07/go-diffraction-glare/pkg/core"
)

// Luminous efficacy constants in lm/W
const (
	PhotopicEfficacy = 683.002
	ScotopicEfficacy = 1700.13
)

// Efficacy scales the XYZ channels photopically and W scotopically
var Efficacy = core.XYZW{X: PhotopicEfficacy, Y: PhotopicEfficacy, Z: PhotopicEfficacy, W: ScotopicEfficacy}

// ResponseFunc maps a wavelength in nanometers to the XYZW channel response
type ResponseFunc func(nm float64) core.XYZW

// CIE1931 is the multi-lobe Gaussian fit of the CIE 1931 2° observer by
// Wyman, Sloan and Shirley, with the scotopic V'(λ) curve in W.
func CIE1931(nm float64) core.XYZW {
	x := 1.056*lobe(nm, 599.8, 37.9, 31.0) +
		0.362*lobe(nm, 442.0, 16.0, 26.7) -
		0.065*lobe(nm, 501.1, 20.4, 26.2)
	y := 0.821*lobe(nm, 568.8, 46.9, 40.5) +
		0.286*lobe(nm, 530.9, 16.3, 31.1)
	z := 1.217*lobe(nm, 437.0, 11.8, 36.0) +
		0.681*lobe(nm, 459.0, 26.0, 13.8)
	return core.XYZW{X: x, Y: y, Z: z, W: Scotopic(nm)}
}

// Scotopic approximates the CIE 1951 scotopic luminosity function
func Scotopic(nm float64) float64 {
	um := nm/1000 - 0.500
	return 0.992 * math.Exp(-321.9*um*um)
}

// lobe is a Gaussian with separate widths below and above its mean
func lobe(x, mean, sigmaLow, sigmaHigh float64) float64 {
	sigma := sigmaHigh
	if x < mean {
		sigma = sigmaLow
	}
	t := (x - mean) / sigma
	return math.Exp(-0.5 * t * t)
}
