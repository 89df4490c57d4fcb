package systems

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// FertilityField biases food placement toward coherent patches using
// simplex noise, so food clusters instead of dusting uniformly.
type FertilityField struct {
	noise     opensimplex.Noise
	scale     float64
	threshold float64
	width     float32
	height    float32
}

// NewFertilityField creates a field over the given world size.
// scale is the noise frequency; threshold is the minimum normalized
// noise value considered fertile.
func NewFertilityField(seed int64, scale, threshold float64, width, height float32) *FertilityField {
	return &FertilityField{
		noise:     opensimplex.NewNormalized(seed),
		scale:     scale,
		threshold: threshold,
		width:     width,
		height:    height,
	}
}

// At returns the normalized fertility in [0, 1] at a world position.
func (f *FertilityField) At(x, y float32) float64 {
	return f.noise.Eval2(float64(x)*f.scale, float64(y)*f.scale)
}

// maxSampleTries bounds rejection sampling before falling back to a
// uniform position. Keeps spawn cost predictable on hostile noise.
const maxSampleTries = 24

// SamplePoint draws a world position, preferring fertile spots.
func (f *FertilityField) SamplePoint(rng *rand.Rand) (float32, float32) {
	var x, y float32
	for i := 0; i < maxSampleTries; i++ {
		x = rng.Float32() * f.width
		y = rng.Float32() * f.height
		if f.At(x, y) >= f.threshold {
			return x, y
		}
	}
	return x, y
}
