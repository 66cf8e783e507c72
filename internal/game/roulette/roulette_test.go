package roulette

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"duel-bot/internal/game"
)

func shoot(seat int) game.Move { return game.Move{Kind: MoveShoot, Index: seat} }

func loaded(names []string, bullet int) *State {
	return &State{Base: game.NewBase(names), Chambers: 6, Bullet: bullet}
}

func TestSelfShotOnEmptyKeepsTurn(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := loaded([]string{"a", "b"}, 3)

	res, err := g.Apply(s, 0, shoot(0), rng)
	require.NoError(t, err)
	assert.False(t, res.Over)
	assert.Equal(t, 0, s.Turn)
	assert.Equal(t, 1, s.Position)
}

func TestShotAtOpponentOnEmptyPassesTurn(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := loaded([]string{"a", "b", "c"}, 3)

	_, err := g.Apply(s, 0, shoot(2), rng)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Turn)
}

func TestBulletEliminatesAndReloads(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := loaded([]string{"a", "b", "c"}, 0)

	res, err := g.Apply(s, 0, shoot(1), rng)
	require.NoError(t, err)
	assert.False(t, res.Over)
	assert.False(t, s.Alive[1])
	assert.Equal(t, 2, s.Turn, "turn skips the eliminated seat")
	assert.Equal(t, 0, s.Position, "cylinder reloaded")

	// Shooting the dead seat is illegal
	_, err = g.Apply(s, 2, shoot(1), rng)
	assert.ErrorIs(t, err, game.ErrIllegalMove)
}

func TestSelfElimination(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := loaded([]string{"a", "b", "c"}, 0)
	s.Turn = 1

	_, err := g.Apply(s, 1, shoot(1), rng)
	require.NoError(t, err)
	assert.False(t, s.Alive[1])
	assert.Equal(t, 2, s.Turn)
}

func TestLastSurvivorWins(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := loaded([]string{"a", "b"}, 0)

	res, err := g.Apply(s, 0, shoot(1), rng)
	require.NoError(t, err)
	assert.True(t, res.Over)
	assert.Equal(t, 0, res.Winner)
}

func TestHardShootsSelfWhileSafe(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := loaded([]string{"a", "b"}, 5)

	assert.Equal(t, 0, g.Decide(s, 0, game.Hard, rng).Index, "1/6 chance")
	s.Position = 4
	assert.Equal(t, 1, g.Decide(s, 0, game.Hard, rng).Index, "1/2 chance")
}

func TestGroupTimeoutEliminates(t *testing.T) {
	g := New(nil)
	rng := rand.New(rand.NewSource(1))
	s := loaded([]string{"a", "b", "c"}, 5)
	_, _ = g.Apply(s, 0, shoot(1), rng)

	assert.Equal(t, game.Forfeit{Kind: game.ForfeitEliminate, Seat: 1}, g.Timeout(s))
}

// TestGamesAlwaysEnd plays AI-only games with random seat counts and checks that every
// move is legal and that the game ends with exactly one survivor.
func TestGamesAlwaysEnd(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 4).Draw(t, "players")
		chambers := rapid.IntRange(2, 8).Draw(t, "chambers")
		g := New(&Config{Chambers: chambers, AI: game.AITuning{Easy: 0.5}})
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		names := []string{"a", "b", "c", "d"}[:n]
		s := g.NewState(names, rng)

		for i := 0; i < 1000; i++ {
			seat := s.Core().Turn
			d := rapid.SampledFrom(game.Difficulties()).Draw(t, "difficulty")
			res, err := g.Apply(s, seat, g.Decide(s, seat, d, rng), rng)
			if err != nil {
				t.Fatalf("AI move rejected: %v", err)
			}
			if res.Over {
				if s.Core().AliveCount() != 1 || !s.Core().Alive[res.Winner] {
					t.Fatalf("ended with %d alive, winner %d", s.Core().AliveCount(), res.Winner)
				}
				return
			}
		}
		t.Fatal("game did not end")
	})
}
