package renderer

import (
	"time"

	"github.com/df07/go-diffraction-glare/pkg/core"
)

// StepStats describes one scheduler step
type StepStats struct {
	Band         Band          // scanlines computed by this step
	Duration     time.Duration // wall-clock time of the evaluation
	LinesPerStep int           // band height requested for the next step
	Completed    float64       // fraction of the image computed, in [0, 1]
	Done         bool          // the image is complete
}

// MeanLuminance returns the average Y channel of the accumulator
func (a *Accumulator) MeanLuminance() float64 {
	if len(a.pixels) == 0 {
		return 0
	}
	var sum float64
	for _, p := range a.pixels {
		sum += p.Luminance()
	}
	return sum / float64(len(a.pixels))
}

// Total returns the sum of all pixels
func (a *Accumulator) Total() core.XYZW {
	var sum core.XYZW
	for _, p := range a.pixels {
		sum = sum.Add(p)
	}
	return sum
}
