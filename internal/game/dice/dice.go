// Package dice provides the randomness abstraction used to resolve reward
// drop chances.
package dice

// Source is the randomness provider for chance rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Float64 returns a uniform sample in [0, 1).
	Float64() float64
}

// Roll reports whether a single draw from src falls below chance.
// A chance >= 1 always succeeds and a chance <= 0 never does, but a sample is
// drawn either way so the number of draws does not depend on the chance.
//
// Postcondition: exactly one sample is consumed from src.
func Roll(src Source, chance float64) bool {
	return src.Float64() < chance
}
