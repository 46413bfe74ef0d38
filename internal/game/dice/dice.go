// Package dice provides the randomness abstraction shared by combat, monster
// behavior and loot generation.
package dice

// Source is the randomness provider consumed by the simulation.
//
// Implementations must be safe for concurrent use; rooms draw from a shared Source.
type Source interface {
	// Intn returns a uniformly distributed int in [0, n). Panics if n <= 0.
	Intn(n int) int
	// Float64 returns a uniformly distributed float64 in [0, 1).
	Float64() float64
}

// Uniform returns a value uniformly distributed in [lo, hi).
//
// Precondition: lo <= hi.
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Sign returns +1 or -1 with equal probability.
func Sign(src Source) float64 {
	if src.Float64() < 0.5 {
		return -1
	}
	return 1
}

// Pick returns a uniformly chosen element of items.
//
// Precondition: len(items) > 0.
func Pick[T any](src Source, items []T) T {
	return items[src.Intn(len(items))]
}
