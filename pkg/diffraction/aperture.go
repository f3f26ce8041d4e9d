package diffraction

import (
	"github.com/df07/go-diffraction-glare/pkg/aperture"
	"honnef.co/go/curve"
)

// Aperture is a polygon decomposed into triangles. Its amplitude is the sum
// of the triangle amplitudes.
type Aperture struct {
	Triangles []Triangle
	areas     []float64
	area      float64
}

// NewAperture creates an aperture from an explicit triangle list
func NewAperture(triangles []Triangle) *Aperture {
	a := &Aperture{
		Triangles: triangles,
		areas:     make([]float64, len(triangles)),
	}
	for i, t := range triangles {
		a.areas[i] = t.SignedArea()
		a.area += a.areas[i]
	}
	return a
}

// Fan triangulates a convex polygon from a center point
func Fan(vertices []curve.Point, center curve.Point) *Aperture {
	triangles := make([]Triangle, 0, len(vertices))
	for i := range vertices {
		next := vertices[(i+1)%len(vertices)]
		triangles = append(triangles, Triangle{S1: center, S2: vertices[i], S3: next})
	}
	return NewAperture(triangles)
}

// Polygon triangulates a convex polygon from its first vertex
func Polygon(vertices []curve.Point) *Aperture {
	var triangles []Triangle
	for i := 1; i+1 < len(vertices); i++ {
		triangles = append(triangles, Triangle{S1: vertices[0], S2: vertices[i], S3: vertices[i+1]})
	}
	return NewAperture(triangles)
}

// FromOutline fans the outline chords from the aperture center
func FromOutline(o *aperture.Outline) *Aperture {
	var center curve.Point
	triangles := make([]Triangle, len(o.Segments))
	for i, s := range o.Segments {
		triangles[i] = Triangle{S1: center, S2: s.A, S3: s.B}
	}
	return NewAperture(triangles)
}

// Regular returns a straight-edged regular n-gon on the unit circle
func Regular(n int, rotation float64) *Aperture {
	vertices := make([]curve.Point, n)
	for i := range vertices {
		vertices[i] = aperture.Vertex(i, n, rotation)
	}
	return Fan(vertices, curve.Point{})
}

// Area returns the sum of the triangle signed areas
func (a *Aperture) Area() float64 {
	return a.area
}

// Amplitude returns the complex Fraunhofer amplitude at spatial frequency k
func (a *Aperture) Amplitude(k curve.Vec2) complex128 {
	var sum complex128
	for i, t := range a.Triangles {
		sum += complex(a.areas[i], 0) * t.Transform(k)
	}
	return sum
}

// Intensity returns |Amplitude(k)|²
func (a *Aperture) Intensity(k curve.Vec2) float64 {
	amp := a.Amplitude(k)
	return real(amp)*real(amp) + imag(amp)*imag(amp)
}
