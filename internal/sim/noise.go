package sim

import (
	"math/rand"
	"time"
)

// Noise provides the pseudo-random sources used by the process model and
// metrics jitter. All randomness in the engine flows through one Noise
// instance so tests can supply a fixed seed and assert exact trajectories.
type Noise struct {
	rng *rand.Rand
}

// NewNoise creates a noise source seeded from the wall clock.
func NewNoise() *Noise {
	return NewSeededNoise(time.Now().UnixNano())
}

// NewSeededNoise creates a deterministic noise source for tests.
func NewSeededNoise(seed int64) *Noise {
	return &Noise{rng: rand.New(rand.NewSource(seed))}
}

// Uniform returns a uniform random value in [min, max).
func (n *Noise) Uniform(min, max float64) float64 {
	return min + n.rng.Float64()*(max-min)
}

// Jitter returns a symmetric uniform value in [-magnitude, magnitude).
func (n *Noise) Jitter(magnitude float64) float64 {
	return (n.rng.Float64()*2 - 1) * magnitude
}

// Bool returns true with the given probability.
func (n *Noise) Bool(probability float64) bool {
	return n.rng.Float64() < probability
}

// Float64 returns a uniform random value in [0, 1).
func (n *Noise) Float64() float64 {
	return n.rng.Float64()
}

// Clamp ensures a value is within bounds.
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
