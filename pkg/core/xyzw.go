package core

// XYZW is a 4-component photometric pixel: CIE XYZ tristimulus luminance plus
// a scotopic luminance channel W.
type XYZW struct {
	X, Y, Z, W float64
}

// NewXYZW creates a new XYZW
func NewXYZW(x, y, z, w float64) XYZW {
	return XYZW{X: x, Y: y, Z: z, W: w}
}

// Splat returns an XYZW with all four channels set to v
func Splat(v float64) XYZW {
	return XYZW{v, v, v, v}
}

// Add returns the component-wise sum of two pixels
func (p XYZW) Add(other XYZW) XYZW {
	return XYZW{p.X + other.X, p.Y + other.Y, p.Z + other.Z, p.W + other.W}
}

// Multiply returns the pixel scaled by a scalar
func (p XYZW) Multiply(scalar float64) XYZW {
	return XYZW{p.X * scalar, p.Y * scalar, p.Z * scalar, p.W * scalar}
}

// MultiplyXYZW returns component-wise multiplication of two pixels
func (p XYZW) MultiplyXYZW(other XYZW) XYZW {
	return XYZW{p.X * other.X, p.Y * other.Y, p.Z * other.Z, p.W * other.W}
}

// AddScaled returns p + other*scalar without an intermediate value
func (p XYZW) AddScaled(other XYZW, scalar float64) XYZW {
	return XYZW{
		X: p.X + other.X*scalar,
		Y: p.Y + other.Y*scalar,
		Z: p.Z + other.Z*scalar,
		W: p.W + other.W*scalar,
	}
}

// IsZero reports whether all four channels are zero
func (p XYZW) IsZero() bool {
	return p == XYZW{}
}

// Luminance returns the photopic luminance (the Y channel)
func (p XYZW) Luminance() float64 {
	return p.Y
}
