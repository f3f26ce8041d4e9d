package config

import (
	"math"
)

// Mode selects the optical pipeline variant
type Mode string

const (
	// ModeDiffraction evaluates the closed-form Fraunhofer pattern per pixel
	ModeDiffraction Mode = "diffraction"
	// ModeGlare spreads a point-spread image through directional glare passes
	ModeGlare Mode = "glare"
)

// Limits applied at the configuration boundary
const (
	MinEdgeCount      = 3
	MaxEdgeCount      = 64
	MaxArcPoints      = 256
	MaxOversample     = 16
	MaxWavelengths    = 4096
	MaxViewportSide   = 8192
	MinWavelengthNM   = 300.0
	MaxWavelengthNM   = 900.0
	MaxGlareDirection = 16
)

// Aperture describes the polygonal aperture outline
type Aperture struct {
	EdgeCount       int     `toml:"edge_count" yaml:"edge_count" json:"edgeCount"`
	CurvatureRadius float64 `toml:"curvature_radius" yaml:"curvature_radius" json:"curvatureRadius"` // <= 0 means straight edges
	ArcPoints       int     `toml:"arc_points" yaml:"arc_points" json:"arcPoints"`
	Rotation        float64 `toml:"rotation" yaml:"rotation" json:"rotation"` // radians
	Oversample      int     `toml:"oversample" yaml:"oversample" json:"oversample"`
}

// Straight reports whether the edges are straight segments
func (a Aperture) Straight() bool {
	return a.CurvatureRadius <= 0 || math.IsInf(a.CurvatureRadius, 1)
}

// Spectrum describes the wavelength sample set in nanometers
type Spectrum struct {
	Count int     `toml:"count" yaml:"count" json:"count"`
	MinNM float64 `toml:"min_nm" yaml:"min_nm" json:"minNm"`
	MaxNM float64 `toml:"max_nm" yaml:"max_nm" json:"maxNm"`
}

// View describes the viewport and the two log-domain display controls
type View struct {
	Width       int     `toml:"width" yaml:"width" json:"width"`
	Height      int     `toml:"height" yaml:"height" json:"height"`
	LogScale    float64 `toml:"log_scale" yaml:"log_scale" json:"logScale"`
	LogExposure float64 `toml:"log_exposure" yaml:"log_exposure" json:"logExposure"`
}

// Scale returns the linear image-distance to spatial-frequency factor
func (v View) Scale() float64 {
	return math.Pow(10, v.LogScale)
}

// Glare holds the directional glare preset. The constants are tuned for
// appearance and have no physical derivation.
type Glare struct {
	WeightA        float64 `toml:"weight_a" yaml:"weight_a" json:"weightA"`
	WeightB        float64 `toml:"weight_b" yaml:"weight_b" json:"weightB"`
	Directions     int     `toml:"directions" yaml:"directions" json:"directions"`
	FirstAngleDeg  float64 `toml:"first_angle_deg" yaml:"first_angle_deg" json:"firstAngleDeg"`
	PointIntensity float64 `toml:"point_intensity" yaml:"point_intensity" json:"pointIntensity"`
	Source         string  `toml:"source,omitempty" yaml:"source,omitempty" json:"source,omitempty"` // optional PSF image path
}

// Params is the complete, per-frame parameter snapshot read by the renderer.
// It is a plain comparable value: the renderer detects changes with ==.
type Params struct {
	Mode     Mode     `toml:"mode" yaml:"mode" json:"mode"`
	Aperture Aperture `toml:"aperture" yaml:"aperture" json:"aperture"`
	Spectrum Spectrum `toml:"spectrum" yaml:"spectrum" json:"spectrum"`
	View     View     `toml:"view" yaml:"view" json:"view"`
	Glare    Glare    `toml:"glare" yaml:"glare" json:"glare"`
}

// DefaultGlare returns the stock three-streak glare preset
func DefaultGlare() Glare {
	return Glare{
		WeightA:        0.955491103831962,
		WeightB:        0.0111272240420095,
		Directions:     3,
		FirstAngleDeg:  5,
		PointIntensity: 1e6,
	}
}

// Default returns sensible default values
func Default() Params {
	return Params{
		Mode: ModeDiffraction,
		Aperture: Aperture{
			EdgeCount:       6,
			CurvatureRadius: 3,
			ArcPoints:       4,
			Rotation:        0,
			Oversample:      2,
		},
		Spectrum: Spectrum{
			Count: 64,
			MinNM: 400,
			MaxNM: 700,
		},
		View: View{
			Width:       512,
			Height:      512,
			LogScale:    1,
			LogExposure: -5,
		},
		Glare: DefaultGlare(),
	}
}

// Clamp forces every field into its valid range. Out-of-range input never
// reaches the evaluator. The curvature radius is left alone: whether it
// yields a valid outline depends on the edge count and is decided by the
// aperture geometry guard.
func (p Params) Clamp() Params {
	if p.Mode != ModeGlare {
		p.Mode = ModeDiffraction
	}

	a := &p.Aperture
	a.EdgeCount = clampInt(a.EdgeCount, MinEdgeCount, MaxEdgeCount)
	a.ArcPoints = clampInt(a.ArcPoints, 0, MaxArcPoints)
	a.Oversample = clampInt(a.Oversample, 1, MaxOversample)
	if math.IsNaN(a.CurvatureRadius) {
		a.CurvatureRadius = 0
	}
	if math.IsNaN(a.Rotation) || math.IsInf(a.Rotation, 0) {
		a.Rotation = 0
	}

	s := &p.Spectrum
	s.Count = clampInt(s.Count, 1, MaxWavelengths)
	s.MinNM = clampFloat(s.MinNM, MinWavelengthNM, MaxWavelengthNM)
	s.MaxNM = clampFloat(s.MaxNM, MinWavelengthNM, MaxWavelengthNM)
	if s.MaxNM < s.MinNM {
		s.MinNM, s.MaxNM = s.MaxNM, s.MinNM
	}

	v := &p.View
	v.Width = clampInt(v.Width, 1, MaxViewportSide)
	v.Height = clampInt(v.Height, 1, MaxViewportSide)
	v.LogScale = clampFloat(v.LogScale, -6, 6)
	v.LogExposure = clampFloat(v.LogExposure, -20, 20)

	g := &p.Glare
	g.Directions = clampInt(g.Directions, 0, MaxGlareDirection)
	if math.IsNaN(g.WeightA) || g.WeightA < 0 {
		g.WeightA = 0
	}
	if math.IsNaN(g.WeightB) || g.WeightB < 0 {
		g.WeightB = 0
	}
	if math.IsNaN(g.FirstAngleDeg) || math.IsInf(g.FirstAngleDeg, 0) {
		g.FirstAngleDeg = 0
	}
	if math.IsNaN(g.PointIntensity) || g.PointIntensity < 0 {
		g.PointIntensity = 0
	}

	return p
}

// OpticsEqual reports whether two snapshots produce the same optical
// computation. Exposure only affects tone mapping and is ignored, as are the
// settings of the pipeline variant that is not selected.
func (p Params) OpticsEqual(o Params) bool {
	if p.Mode != o.Mode {
		return false
	}
	if p.View.Width != o.View.Width || p.View.Height != o.View.Height {
		return false
	}
	if p.Mode == ModeGlare {
		return p.Glare == o.Glare
	}
	return p.Aperture == o.Aperture && p.Spectrum == o.Spectrum && p.View.LogScale == o.View.LogScale
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(hi, v))
}
