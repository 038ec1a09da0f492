package rng

import "go.uber.org/zap"

// Resolve returns seed unchanged when non-zero, otherwise a fresh seed from
// the platform entropy backend. A platform failure falls back to a fixed
// seed and is logged.
func Resolve(seed uint64, log *zap.Logger) uint64 {
	if seed != 0 {
		return seed
	}
	s, err := EntropySeed()
	if err != nil {
		log.Warn("entropy unavailable, using fallback seed", zap.Error(err))
		return fallbackSeed
	}
	log.Info("seeded from entropy", zap.String("backend", Backend), zap.Uint64("seed", s))
	return s
}

const fallbackSeed = 0x5eed
