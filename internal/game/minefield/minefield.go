// Package minefield implements a last-one-standing minefield for two to four players.
package minefield

import (
	"fmt"
	"math"
	"math/rand"

	"duel-bot/internal/game"
)

// MoveDig uncovers cell Index.
const MoveDig = "dig"

// Defaults when none are configured. MaxCells keeps the board within a 5x5 button grid.
const (
	DefaultCells = 16
	DefaultMines = 4
	MaxCells     = 25
)

// State is the hidden trap board.
type State struct {
	game.Base
	Mines    []bool
	Revealed []bool
}

func (s *State) safeLeft() int {
	n := 0
	for i, mine := range s.Mines {
		if !mine && !s.Revealed[i] {
			n++
		}
	}
	return n
}

// Config holds configuration for the game.
type Config struct {
	Cells int
	Mines int
}

// Game implements game.Rules for minefield.
type Game struct {
	cells int
	mines int
}

// New creates the game with the given configuration. Invalid sizes fall back to the defaults.
func New(cfg *Config) *Game {
	g := &Game{cells: DefaultCells, mines: DefaultMines}
	if cfg != nil && cfg.Cells > 1 && cfg.Cells <= MaxCells && cfg.Mines > 0 && cfg.Mines < cfg.Cells {
		g.cells, g.mines = cfg.Cells, cfg.Mines
	}
	return g
}

// Info returns the catalog entry.
func (g *Game) Info() game.Info {
	return game.Info{
		ID:    "minefield",
		Name:  "Minefield",
		Emoji: "💣",
		Rules: fmt.Sprintf("%d cells hide %d mines. Take turns digging; hit a mine and you are out. "+
			"Last one standing wins. If every safe cell is dug, survivors draw.", g.cells, g.mines),
		MinPlayers: 2,
		MaxPlayers: 4,
		AIReady:    true,
		Mode:       game.Alternating,
	}
}

// NewState hides the mines.
func (g *Game) NewState(names []string, rng *rand.Rand) game.State {
	s := &State{
		Base:     game.NewBase(names),
		Mines:    make([]bool, g.cells),
		Revealed: make([]bool, g.cells),
	}
	for _, i := range rng.Perm(g.cells)[:g.mines] {
		s.Mines[i] = true
	}
	return s
}

// Pending reports whether it is seat's turn.
func (g *Game) Pending(st game.State, seat int) bool {
	return st.Core().Turn == seat
}

// Apply digs a cell.
func (g *Game) Apply(st game.State, seat int, m game.Move, _ *rand.Rand) (game.Result, error) {
	s := st.(*State)
	if m.Kind != MoveDig {
		return game.Result{}, game.Illegal("unknown action %q", m.Kind)
	}
	if m.Index < 0 || m.Index >= len(s.Mines) {
		return game.Result{}, game.Illegal("cell %d is off the board", m.Index)
	}
	if s.Revealed[m.Index] {
		return game.Result{}, game.Illegal("cell %d is already dug", m.Index+1)
	}

	s.Revealed[m.Index] = true
	s.Moves++

	if s.Mines[m.Index] {
		s.Last = fmt.Sprintf("💥 %s stepped on a mine at cell %d", s.Name(seat), m.Index+1)
		s.Eliminate(seat)
		if survivor := s.Survivor(); survivor >= 0 {
			return game.Win(survivor, "last one standing"), nil
		}
	} else {
		s.Last = fmt.Sprintf("🟩 %s dug cell %d safely", s.Name(seat), m.Index+1)
		s.Advance()
	}

	if s.safeLeft() == 0 {
		return game.Draw("every safe cell is dug"), nil
	}
	return game.Continue, nil
}

// Timeout applies the turn-holder forfeit rule.
func (g *Game) Timeout(st game.State) game.Forfeit {
	return game.AlternatingTimeout(st.Core())
}

// Decide digs a uniformly random unrevealed cell.
func (g *Game) Decide(st game.State, _ int, _ game.Difficulty, rng *rand.Rand) game.Move {
	s := st.(*State)
	var hidden []int
	for i, r := range s.Revealed {
		if !r {
			hidden = append(hidden, i)
		}
	}
	if len(hidden) == 0 {
		return game.Move{Kind: MoveDig}
	}
	return game.Move{Kind: MoveDig, Index: hidden[rng.Intn(len(hidden))]}
}

// Board renders the field as a square-ish grid of buttons.
func (g *Game) Board(st game.State) game.Board {
	s := st.(*State)
	b := game.Board{
		Status: fmt.Sprintf("⛏️ %s to dig · %d safe cells left", s.Name(s.Turn), s.safeLeft()),
	}
	if s.Last != "" {
		b.Lines = append(b.Lines, s.Last)
	}
	for seat := 0; seat < s.Seats(); seat++ {
		mark := "❤️"
		if !s.Alive[seat] {
			mark = "💀"
		}
		b.Lines = append(b.Lines, mark+" "+s.Name(seat))
	}

	width := int(math.Ceil(math.Sqrt(float64(len(s.Mines)))))
	var row []game.Control
	for i := range s.Mines {
		label := "⬛"
		if s.Revealed[i] {
			label = "🟩"
			if s.Mines[i] {
				label = "💥"
			}
		}
		row = append(row, game.Control{Label: label, Move: game.Move{Kind: MoveDig, Index: i}, Disabled: s.Revealed[i]})
		if len(row) == width {
			b.Controls = append(b.Controls, row)
			row = nil
		}
	}
	if len(row) > 0 {
		b.Controls = append(b.Controls, row)
	}
	return b
}
