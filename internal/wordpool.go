package internal

import "math/rand"

// WordPool is the per-lobby no-repeat-until-exhausted word dispenser.
// The zero value is ready to use; it seeds itself on first draw.
type WordPool struct {
	Available []WordPair
	Used      []WordPair
}

// Draw removes one uniformly-random remaining pair, reseeding from the full
// source list whenever the pool is empty.
func (wp *WordPool) Draw(source []WordPair, rng *rand.Rand) WordPair {
	if len(wp.Available) == 0 {
		wp.reseed(source, rng)
	}
	idx := rng.Intn(len(wp.Available))
	pair := wp.Available[idx]
	wp.Available = append(wp.Available[:idx], wp.Available[idx+1:]...)
	wp.Used = append(wp.Used, pair)
	return pair
}

func (wp *WordPool) reseed(source []WordPair, rng *rand.Rand) {
	wp.Available = make([]WordPair, len(source))
	copy(wp.Available, source)
	wp.Used = wp.Used[:0]
	// Fisher-Yates sweep from the last index down.
	for i := len(wp.Available) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		wp.Available[i], wp.Available[j] = wp.Available[j], wp.Available[i]
	}
}
