package game

import "math/rand"

// Weighted is one entry of a weighted outcome table.
type Weighted[T any] struct {
	Value  T
	Weight int
}

// WeightedPick draws a value with probability proportional to its weight.
// Entries with a non-positive weight are never drawn; an empty table returns the zero value.
func WeightedPick[T any](rng *rand.Rand, table []Weighted[T]) T {
	total := 0
	for _, e := range table {
		if e.Weight > 0 {
			total += e.Weight
		}
	}
	var zero T
	if total == 0 {
		return zero
	}

	roll := rng.Intn(total)
	for _, e := range table {
		if e.Weight <= 0 {
			continue
		}
		if roll < e.Weight {
			return e.Value
		}
		roll -= e.Weight
	}
	return zero
}
