package game

import (
	"math/rand/v2"
	"slices"
)

// Shuffle returns a uniformly random permutation of items (Fisher-Yates).
func Shuffle[T any](items []T, rng *rand.Rand) []T {
	shuffled := slices.Clone(items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
