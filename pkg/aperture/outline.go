// Package aperture builds the polygonal, optionally rounded-edge outline of
// a camera aperture from its user parameters.
package aperture

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"honnef.co/go/curve"
)

// ErrInvalidGeometry is returned when the curvature radius is too small for
// the arc through two adjacent vertices to exist.
var ErrInvalidGeometry = errors.New("aperture: curvature radius too small for edge count")

// Segment is one straight chord of the outline
type Segment struct {
	A, B curve.Point
}

// Outline is the piecewise-linear aperture boundary on the unit circle,
// ordered counter-clockwise.
type Outline struct {
	Segments []Segment
	Params   config.Aperture
}

// MinCurvatureRadius returns the smallest curvature radius for which an arc
// through two adjacent vertices of a regular n-gon exists.
func MinCurvatureRadius(n int) float64 {
	return math.Sin(math.Pi / float64(n))
}

// Valid reports whether p describes a buildable outline
func Valid(p config.Aperture) bool {
	if p.EdgeCount < config.MinEdgeCount {
		return false
	}
	if p.Straight() {
		return true
	}
	return p.CurvatureRadius >= MinCurvatureRadius(p.EdgeCount)
}

// Vertex returns the i-th corner (0-based) of the outline on the unit circle.
// Odd edge counts get a quarter turn so that a vertex points up.
func Vertex(i, n int, rotation float64) curve.Point {
	phi := 2*math.Pi*float64(i)/float64(n) + rotation
	if n%2 == 1 {
		phi += math.Pi / 2
	}
	return curve.Point(curve.VecFromAngle(phi))
}

// NewOutline builds the outline for p. Each edge is either the straight
// chord between adjacent vertices or a circular arc of the curvature radius
// bulging outward, split into ArcPoints+1 equal sub-arcs that are
// represented by their chords.
func NewOutline(p config.Aperture) (*Outline, error) {
	if p.EdgeCount < config.MinEdgeCount {
		return nil, fmt.Errorf("%w: %d edges", ErrInvalidGeometry, p.EdgeCount)
	}
	if !Valid(p) {
		return nil, fmt.Errorf("%w: radius %g < %g for %d edges",
			ErrInvalidGeometry, p.CurvatureRadius, MinCurvatureRadius(p.EdgeCount), p.EdgeCount)
	}

	n := p.EdgeCount
	perEdge := 1
	if !p.Straight() {
		perEdge = p.ArcPoints + 1
	}
	segments := make([]Segment, 0, n*perEdge)

	for i := 0; i < n; i++ {
		p1 := Vertex(i, n, p.Rotation)
		p2 := Vertex(i+1, n, p.Rotation)
		if p.Straight() {
			segments = append(segments, Segment{A: p1, B: p2})
			continue
		}
		segments = appendArc(segments, p1, p2, p.CurvatureRadius, p.ArcPoints)
	}

	return &Outline{Segments: segments, Params: p}, nil
}

// appendArc appends the chords of the outward arc of radius r from p1 to p2
func appendArc(segments []Segment, p1, p2 curve.Point, r float64, arcPoints int) []Segment {
	mid := p1.Midpoint(p2)
	midVec := curve.Vec2(mid)
	halfChord2 := p1.DistanceSquared(p2) / 4
	// Clamped: at the minimum radius rounding can push the radicand below zero.
	distFromMid := math.Sqrt(max(0, r*r-halfChord2))
	center := curve.Point(midVec.Mul(1 - distFromMid/midVec.Hypot()))

	phi1 := p1.Sub(center).Angle()
	phi2 := p2.Sub(center).Angle()
	if phi2 < phi1 {
		phi2 += 2 * math.Pi
	}

	count := arcPoints + 1
	at := func(j int) curve.Point {
		if j == 0 {
			return p1
		}
		if j == count {
			return p2
		}
		angle := phi1 + (phi2-phi1)*float64(j)/float64(count)
		return center.Translate(curve.VecFromAngle(angle).Mul(r))
	}

	prev := at(0)
	for j := 1; j <= count; j++ {
		next := at(j)
		segments = append(segments, Segment{A: prev, B: next})
		prev = next
	}
	return segments
}

// Vertices returns the closed polygon as a vertex list (the first vertex is
// not repeated)
func (o *Outline) Vertices() []curve.Point {
	vertices := make([]curve.Point, len(o.Segments))
	for i, s := range o.Segments {
		vertices[i] = s.A
	}
	return vertices
}

// Area returns the signed area enclosed by the outline (positive for
// counter-clockwise order)
func (o *Outline) Area() float64 {
	var area float64
	for _, s := range o.Segments {
		area += curve.Vec2(s.A).Cross(curve.Vec2(s.B))
	}
	return area / 2
}
