// Package roulette implements russian roulette for two to four players.
package roulette

import (
	"fmt"
	"math/rand"

	"duel-bot/internal/game"
)

// MoveShoot pulls the trigger at seat Index (possibly the shooter's own seat).
const MoveShoot = "shoot"

// DefaultChambers is the cylinder size when none is configured.
const DefaultChambers = 6

// State is the cylinder and the table.
type State struct {
	game.Base
	Chambers int
	Bullet   int // chamber holding the round
	Position int // chamber under the hammer
}

// Remaining returns the number of chambers left before the cylinder must hold the bullet.
func (s *State) Remaining() int {
	return s.Chambers - s.Position
}

// Config holds configuration for the game.
type Config struct {
	Chambers int
	AI       game.AITuning
}

// Game implements game.Rules for russian roulette.
type Game struct {
	chambers int
	ai       game.AITuning
}

// New creates the game with the given configuration.
func New(cfg *Config) *Game {
	g := &Game{chambers: DefaultChambers}
	if cfg != nil {
		if cfg.Chambers > 1 {
			g.chambers = cfg.Chambers
		}
		g.ai = cfg.AI
	}
	return g
}

// Info returns the catalog entry.
func (g *Game) Info() game.Info {
	return game.Info{
		ID:    "roulette",
		Name:  "Russian Roulette",
		Emoji: "🔫",
		Rules: fmt.Sprintf("One bullet, %d chambers. On your turn shoot yourself or an opponent. "+
			"Survive a shot at yourself and you go again. Last one standing wins.", g.chambers),
		MinPlayers: 2,
		MaxPlayers: 4,
		AIReady:    true,
		Mode:       game.Alternating,
	}
}

// NewState loads the cylinder.
func (g *Game) NewState(names []string, rng *rand.Rand) game.State {
	s := &State{Base: game.NewBase(names), Chambers: g.chambers}
	s.reload(rng)
	return s
}

func (s *State) reload(rng *rand.Rand) {
	s.Bullet = rng.Intn(s.Chambers)
	s.Position = 0
}

// Pending reports whether it is seat's turn.
func (g *Game) Pending(st game.State, seat int) bool {
	return st.Core().Turn == seat
}

// Apply fires the current chamber at the target.
func (g *Game) Apply(st game.State, seat int, m game.Move, rng *rand.Rand) (game.Result, error) {
	s := st.(*State)
	if m.Kind != MoveShoot {
		return game.Result{}, game.Illegal("unknown action %q", m.Kind)
	}
	target := m.Index
	if target < 0 || target >= s.Seats() || !s.Alive[target] {
		return game.Result{}, game.Illegal("that player is not in the game")
	}
	s.Moves++

	if s.Position != s.Bullet {
		s.Position++
		if target == seat {
			s.Last = fmt.Sprintf("🔫 %s pulls the trigger on themselves... *click*. Go again!", s.Name(seat))
			return game.Continue, nil
		}
		s.Last = fmt.Sprintf("🔫 %s aims at %s... *click*", s.Name(seat), s.Name(target))
		s.Advance()
		return game.Continue, nil
	}

	if target == seat {
		s.Last = fmt.Sprintf("💥 %s shot themselves", s.Name(seat))
	} else {
		s.Last = fmt.Sprintf("💥 %s shot %s", s.Name(seat), s.Name(target))
	}
	s.Eliminate(target)
	s.reload(rng)

	if survivor := s.Survivor(); survivor >= 0 {
		return game.Win(survivor, "last one standing"), nil
	}
	if s.Turn == seat {
		s.Advance()
	}
	return game.Continue, nil
}

// Timeout applies the turn-holder forfeit rule.
func (g *Game) Timeout(st game.State) game.Forfeit {
	return game.AlternatingTimeout(st.Core())
}

// Decide shoots itself while the bullet is less likely than not to be next (hard),
// otherwise a random living opponent. Lower difficulties pick a target at random.
func (g *Game) Decide(st game.State, seat int, d game.Difficulty, rng *rand.Rand) game.Move {
	s := st.(*State)
	var opponents []int
	for _, other := range s.AliveSeats() {
		if other != seat {
			opponents = append(opponents, other)
		}
	}
	if len(opponents) == 0 {
		return game.Move{Kind: MoveShoot, Index: seat}
	}
	opponent := opponents[rng.Intn(len(opponents))]

	if d != game.Hard || g.ai.Blunders(d, rng) {
		if rng.Intn(2) == 0 {
			return game.Move{Kind: MoveShoot, Index: seat}
		}
		return game.Move{Kind: MoveShoot, Index: opponent}
	}

	// P(bullet next) = 1/remaining
	if s.Remaining() > 2 {
		return game.Move{Kind: MoveShoot, Index: seat}
	}
	return game.Move{Kind: MoveShoot, Index: opponent}
}

// Board shows the cylinder and the table, with a button per possible target.
func (g *Game) Board(st game.State) game.Board {
	s := st.(*State)
	b := game.Board{
		Status: fmt.Sprintf("🔫 %s holds the revolver · chamber %d/%d", s.Name(s.Turn), s.Position+1, s.Chambers),
	}
	if s.Last != "" {
		b.Lines = append(b.Lines, s.Last)
	}
	var row []game.Control
	for seat := 0; seat < s.Seats(); seat++ {
		if !s.Alive[seat] {
			b.Lines = append(b.Lines, "💀 "+s.Name(seat))
			continue
		}
		b.Lines = append(b.Lines, "❤️ "+s.Name(seat))
		label := "🎯 " + s.Name(seat)
		if seat == s.Turn {
			label = "🫵 Myself"
		}
		row = append(row, game.Control{Label: label, Move: game.Move{Kind: MoveShoot, Index: seat}})
	}
	b.Controls = [][]game.Control{row}
	return b
}
