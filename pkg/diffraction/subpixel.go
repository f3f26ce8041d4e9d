package diffraction

import (
	"math/rand/v2"

	"honnef.co/go/curve"
)

// SubpixelOffsets returns oversample² positions relative to the pixel
// center, one jittered point per stratum of an oversample x oversample grid.
// The pattern depends only on oversample, so every evaluation of a pixel
// uses the same positions. Oversample 1 returns the pixel center itself.
func SubpixelOffsets(oversample int) []curve.Vec2 {
	if oversample <= 1 {
		return []curve.Vec2{{}}
	}

	rng := rand.New(rand.NewPCG(uint64(oversample), 42))
	n := float64(oversample)
	offsets := make([]curve.Vec2, 0, oversample*oversample)
	for sy := 0; sy < oversample; sy++ {
		for sx := 0; sx < oversample; sx++ {
			offsets = append(offsets, curve.Vec(
				(float64(sx)+rng.Float64())/n-0.5,
				(float64(sy)+rng.Float64())/n-0.5,
			))
		}
	}
	return offsets
}
