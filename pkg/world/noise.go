package world

import perlin "github.com/aquilax/go-perlin"

// perlinAlpha and perlinBeta set the amplitude/frequency multipliers between
// octaves; perlinOctaves is 1 so sampling matches the single-octave noise the
// generator's height formula was derived against.
const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = int32(1)
)

// Perlin wraps a seeded 2D Perlin noise field. The same seed always produces
// the same field, across runs and platforms.
type Perlin struct {
	p *perlin.Perlin
}

// NewPerlin creates a Perlin noise generator from a seed.
func NewPerlin(seed int64) *Perlin {
	return &Perlin{p: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)}
}

// Noise2D computes 2D Perlin noise at (x, y). Returns a value roughly in [-1, 1].
func (p *Perlin) Noise2D(x, y float64) float64 {
	return p.p.Noise2D(x, y)
}
