package rps

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"duel-bot/internal/game"
)

func throw(c int) game.Move { return game.Move{Kind: MoveThrow, Index: c} }

func TestRoundResolution(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int
		scoreA int
		scoreB int
	}{
		{"rock beats scissors", Rock, Scissors, 1, 0},
		{"scissors beats paper", Scissors, Paper, 1, 0},
		{"paper beats rock", Paper, Rock, 1, 0},
		{"rock loses to paper", Rock, Paper, 0, 1},
		{"tie replays", Paper, Paper, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(nil)
			rng := rand.New(rand.NewSource(1))
			s := g.NewState([]string{"a", "b"}, rng).(*State)

			_, err := g.Apply(s, 0, throw(tt.a), rng)
			require.NoError(t, err)
			assert.False(t, g.Pending(s, 0))
			assert.True(t, g.Pending(s, 1))

			res, err := g.Apply(s, 1, throw(tt.b), rng)
			require.NoError(t, err)
			assert.False(t, res.Over)
			assert.Equal(t, [2]int{tt.scoreA, tt.scoreB}, s.Score)
			assert.True(t, g.Pending(s, 0), "next round is open")
		})
	}
}

func TestFirstToWinsTakesMatch(t *testing.T) {
	g := New(&Config{Wins: 2})
	rng := rand.New(rand.NewSource(1))
	s := g.NewState([]string{"a", "b"}, rng).(*State)

	play := func(a, b int) game.Result {
		_, err := g.Apply(s, 0, throw(a), rng)
		require.NoError(t, err)
		res, err := g.Apply(s, 1, throw(b), rng)
		require.NoError(t, err)
		return res
	}

	assert.False(t, play(Rock, Scissors).Over)
	assert.False(t, play(Rock, Paper).Over)
	assert.False(t, play(Rock, Rock).Over)
	res := play(Paper, Rock)
	assert.True(t, res.Over)
	assert.Equal(t, 0, res.Winner)
	assert.Equal(t, "won 2-1", res.Reason)
}

func TestDoubleThrowRejected(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := g.NewState([]string{"a", "b"}, rng).(*State)

	_, err := g.Apply(s, 0, throw(Rock), rng)
	require.NoError(t, err)
	_, err = g.Apply(s, 0, throw(Paper), rng)
	assert.ErrorIs(t, err, game.ErrIllegalMove)
	assert.Equal(t, Rock, s.Choice[0])

	_, err = g.Apply(s, 1, throw(7), rng)
	assert.ErrorIs(t, err, game.ErrIllegalMove)
}

func TestTimeout(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := g.NewState([]string{"a", "b"}, rng).(*State)

	assert.Equal(t, game.ForfeitRefund, g.Timeout(s).Kind)

	_, _ = g.Apply(s, 1, throw(Rock), rng)
	assert.Equal(t, game.Forfeit{Kind: game.ForfeitWin, Seat: 1}, g.Timeout(s))
}

func TestHardCountersFavourite(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := g.NewState([]string{"human", "ai"}, rng).(*State)
	s.History[0] = []int{Rock, Rock, Scissors}

	for i := 0; i < 20; i++ {
		assert.Equal(t, Paper, g.Decide(s, 1, game.Hard, rng).Index)
	}
}

// TestScoresNeverExceedTarget checks that a match always ends exactly when a seat reaches the target.
func TestScoresNeverExceedTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wins := rapid.IntRange(1, 4).Draw(t, "wins")
		g := New(&Config{Wins: wins})
		rng := rand.New(rand.NewSource(1))
		s := g.NewState([]string{"a", "b"}, rng).(*State)

		for i := 0; i < 200; i++ {
			_, err := g.Apply(s, 0, throw(rapid.IntRange(0, 2).Draw(t, "a")), rng)
			if err != nil {
				t.Fatal(err)
			}
			res, err := g.Apply(s, 1, throw(rapid.IntRange(0, 2).Draw(t, "b")), rng)
			if err != nil {
				t.Fatal(err)
			}
			if res.Over {
				if s.Score[res.Winner] != wins {
					t.Fatalf("winner has %d, target %d", s.Score[res.Winner], wins)
				}
				return
			}
			if s.Score[0] >= wins || s.Score[1] >= wins {
				t.Fatalf("score %v reached target %d without ending", s.Score, wins)
			}
		}
	})
}
