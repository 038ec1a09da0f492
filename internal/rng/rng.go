// Package rng supplies the single seedable randomness source used by the
// simulation. Every draw advances the generator by exactly one PCG step, so
// a seed plus the order of draws fully determines every value regardless of
// platform.
package rng

import "math/rand/v2"

// Source is the draw interface the simulation depends on.
type Source interface {
	Seed(seed uint64)
	NextU32() uint32
	NextFloat() float64
	// Draws reports the number of steps taken since the last Seed.
	Draws() uint64
}

// pcgIncrement is the fixed second PCG word; only the seed varies.
const pcgIncrement = 0x9e3779b97f4a7c15

// PCG is a Source backed by math/rand/v2's PCG generator.
type PCG struct {
	pcg   *rand.PCG
	seed  uint64
	draws uint64
}

// New returns a PCG source seeded with seed.
func New(seed uint64) *PCG {
	p := &PCG{pcg: rand.NewPCG(seed, pcgIncrement)}
	p.seed = seed
	return p
}

// Seed resets the generator state and the draw counter.
func (p *PCG) Seed(seed uint64) {
	p.pcg.Seed(seed, pcgIncrement)
	p.seed = seed
	p.draws = 0
}

func (p *PCG) step() uint64 {
	p.draws++
	return p.pcg.Uint64()
}

// NextU32 returns the high 32 bits of one step.
func (p *PCG) NextU32() uint32 {
	return uint32(p.step() >> 32)
}

// NextFloat returns a value in [0, 1) built from the top 53 bits of one step.
func (p *PCG) NextFloat() float64 {
	return float64(p.step()>>11) / (1 << 53)
}

func (p *PCG) Draws() uint64 { return p.draws }

// SeedValue returns the seed last applied.
func (p *PCG) SeedValue() uint64 { return p.seed }

// IntN maps one draw into [0, n). n <= 0 returns 0 without drawing.
func IntN(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	return int((uint64(src.NextU32()) * uint64(n)) >> 32)
}

// Chance reports whether one draw falls below p. p <= 0 never draws and
// returns false; p >= 1 never draws and returns true.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.NextFloat() < p
}

// Choose picks one element using a single draw. An empty slice returns the
// zero value and false without advancing the source.
func Choose[T any](src Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[IntN(src, len(items))], true
}
