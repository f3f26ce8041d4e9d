// Package spectrum integrates per-wavelength radiance into photometric XYZW
// luminance.
package spectrum

import (
	"github.com/df07/go-diffraction-glare/pkg/config"
	"gonum.org/v1/gonum/floats"
)

// BatchSize is the number of wavelengths evaluated together in one batch
const BatchSize = 4

// WavelengthSet is an evenly spaced set of wavelength samples in nanometers
type WavelengthSet struct {
	Min, Max float64
	Count    int
}

// NewWavelengthSet creates a wavelength set from spectrum parameters
func NewWavelengthSet(s config.Spectrum) WavelengthSet {
	return WavelengthSet{Min: s.MinNM, Max: s.MaxNM, Count: s.Count}
}

// Samples returns the sample wavelengths in increasing order. A single
// sample sits in the middle of the range.
func (ws WavelengthSet) Samples() []float64 {
	if ws.Count <= 1 {
		return []float64{(ws.Min + ws.Max) / 2}
	}
	return floats.Span(make([]float64, ws.Count), ws.Min, ws.Max)
}

// Step returns the spacing between adjacent samples, 0 for a single sample
func (ws WavelengthSet) Step() float64 {
	if ws.Count <= 1 {
		return 0
	}
	return (ws.Max - ws.Min) / float64(ws.Count-1)
}

// Weights returns the trapezoidal quadrature weights including the sample
// spacing. A single sample has weight 1.
func (ws WavelengthSet) Weights() []float64 {
	if ws.Count <= 1 {
		return []float64{1}
	}
	step := ws.Step()
	weights := make([]float64, ws.Count)
	for i := range weights {
		weights[i] = step
	}
	weights[0] *= 0.5
	weights[len(weights)-1] *= 0.5
	return weights
}

// Batch is a contiguous run of samples with their quadrature weights
type Batch struct {
	Start   int
	Samples []float64
	Weights []float64
}

// Batches splits the set into runs of at most size samples. Each batch
// carries its local trapezoid weights (0.5 at its ends), raised by 0.5 at
// ends that are internal boundaries of the whole set, so the batch weights
// concatenate to Weights().
func (ws WavelengthSet) Batches(size int) []Batch {
	if size < 1 {
		size = 1
	}
	samples := ws.Samples()
	if len(samples) == 1 {
		return []Batch{{Start: 0, Samples: samples, Weights: []float64{1}}}
	}

	step := ws.Step()
	var batches []Batch
	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))
		b := Batch{
			Start:   start,
			Samples: samples[start:end],
			Weights: make([]float64, end-start),
		}
		for j := range b.Weights {
			local := 1.0
			if j == 0 || j == len(b.Weights)-1 {
				local = 0.5
			}
			b.Weights[j] = local
		}
		if len(b.Weights) == 1 {
			// A lone sample is both ends of its batch
			b.Weights[0] = 0
		}
		if start > 0 {
			b.Weights[0] += 0.5
		}
		if end < len(samples) {
			b.Weights[len(b.Weights)-1] += 0.5
		}
		for j := range b.Weights {
			b.Weights[j] *= step
		}
		batches = append(batches, b)
	}
	return batches
}
