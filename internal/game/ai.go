package game

import (
	"math/rand"
	"strings"
)

// Difficulty is the skill level of an AI opponent.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the levels in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// ParseDifficulty accepts a difficulty name in any case.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, true
	}
	return "", false
}

// AITuning holds the probability, per difficulty, that an AI plays a random legal move
// instead of its best one.
type AITuning struct {
	Easy   float64
	Medium float64
	Hard   float64
}

// Blunders rolls whether the AI plays randomly this time.
func (t AITuning) Blunders(d Difficulty, rng *rand.Rand) bool {
	var p float64
	switch d {
	case Easy:
		p = t.Easy
	case Medium:
		p = t.Medium
	case Hard:
		p = t.Hard
	}
	return p > 0 && rng.Float64() < p
}
