// Package tictactoe implements the two-player 3x3 alignment game.
package tictactoe

import (
	"fmt"
	"math/rand"
	"strings"

	"duel-bot/internal/game"
)

// MoveMark places the mover's symbol on cell Index (0-8, row-major).
const MoveMark = "mark"

var symbols = [2]string{"❌", "⭕"}

const emptyCell = "⬜"

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// State is a tic-tac-toe board. Cells hold -1 for empty or the owning seat.
type State struct {
	game.Base
	Cells [9]int
}

// Game implements game.Rules for tic-tac-toe.
type Game struct {
	ai game.AITuning
}

// New creates the game with the given AI tuning.
func New(ai game.AITuning) *Game {
	return &Game{ai: ai}
}

// Info returns the catalog entry.
func (g *Game) Info() game.Info {
	return game.Info{
		ID:         "tictactoe",
		Name:       "Tic-Tac-Toe",
		Emoji:      "⭕",
		Rules:      "Take turns marking cells. Three in a row wins; a full board is a draw.",
		MinPlayers: 2,
		MaxPlayers: 2,
		AIReady:    true,
		Mode:       game.Alternating,
	}
}

// NewState deals an empty board; the first player plays ❌.
func (g *Game) NewState(names []string, _ *rand.Rand) game.State {
	s := &State{Base: game.NewBase(names)}
	for i := range s.Cells {
		s.Cells[i] = -1
	}
	return s
}

// Pending reports whether it is seat's turn.
func (g *Game) Pending(st game.State, seat int) bool {
	return st.Core().Turn == seat
}

// Apply marks a cell.
func (g *Game) Apply(st game.State, seat int, m game.Move, _ *rand.Rand) (game.Result, error) {
	s := st.(*State)
	if m.Kind != MoveMark {
		return game.Result{}, game.Illegal("unknown action %q", m.Kind)
	}
	if m.Index < 0 || m.Index >= len(s.Cells) {
		return game.Result{}, game.Illegal("cell %d is off the board", m.Index)
	}
	if s.Cells[m.Index] != -1 {
		return game.Result{}, game.Illegal("cell %d is taken", m.Index+1)
	}

	s.Cells[m.Index] = seat
	s.Moves++
	s.Last = fmt.Sprintf("%s %s marked cell %d", symbols[seat], s.Name(seat), m.Index+1)

	if winnerOf(s.Cells) == seat {
		return game.Win(seat, "three in a row"), nil
	}
	if len(freeCells(s.Cells)) == 0 {
		return game.Draw("the board is full"), nil
	}
	s.Advance()
	return game.Continue, nil
}

// Timeout applies the turn-holder forfeit rule.
func (g *Game) Timeout(st game.State) game.Forfeit {
	return game.AlternatingTimeout(st.Core())
}

// Decide picks a cell: win if possible, block the opponent, take the centre, a corner,
// then any cell. A blunder plays a random free cell.
func (g *Game) Decide(st game.State, seat int, d game.Difficulty, rng *rand.Rand) game.Move {
	s := st.(*State)
	free := freeCells(s.Cells)
	if len(free) == 0 {
		return game.Move{Kind: MoveMark}
	}
	if g.ai.Blunders(d, rng) {
		return game.Move{Kind: MoveMark, Index: free[rng.Intn(len(free))]}
	}

	if cell, ok := completing(s.Cells, seat); ok {
		return game.Move{Kind: MoveMark, Index: cell}
	}
	if cell, ok := completing(s.Cells, 1-seat); ok {
		return game.Move{Kind: MoveMark, Index: cell}
	}
	if s.Cells[4] == -1 {
		return game.Move{Kind: MoveMark, Index: 4}
	}
	var corners []int
	for _, c := range []int{0, 2, 6, 8} {
		if s.Cells[c] == -1 {
			corners = append(corners, c)
		}
	}
	if len(corners) > 0 {
		return game.Move{Kind: MoveMark, Index: corners[rng.Intn(len(corners))]}
	}
	return game.Move{Kind: MoveMark, Index: free[rng.Intn(len(free))]}
}

// Board renders the grid as three rows of buttons; taken cells are disabled.
func (g *Game) Board(st game.State) game.Board {
	s := st.(*State)
	b := game.Board{
		Status: fmt.Sprintf("%s %s to move", symbols[s.Turn], s.Name(s.Turn)),
	}
	if s.Last != "" {
		b.Lines = append(b.Lines, s.Last)
	}
	for r := 0; r < 3; r++ {
		row := make([]game.Control, 0, 3)
		var text strings.Builder
		for c := 0; c < 3; c++ {
			i := r*3 + c
			label := emptyCell
			if s.Cells[i] >= 0 {
				label = symbols[s.Cells[i]]
			}
			text.WriteString(label)
			row = append(row, game.Control{
				Label:    label,
				Move:     game.Move{Kind: MoveMark, Index: i},
				Disabled: s.Cells[i] >= 0,
			})
		}
		b.Lines = append(b.Lines, text.String())
		b.Controls = append(b.Controls, row)
	}
	return b
}

func winnerOf(cells [9]int) int {
	for _, l := range lines {
		if cells[l[0]] >= 0 && cells[l[0]] == cells[l[1]] && cells[l[1]] == cells[l[2]] {
			return cells[l[0]]
		}
	}
	return -1
}

func freeCells(cells [9]int) []int {
	var free []int
	for i, c := range cells {
		if c == -1 {
			free = append(free, i)
		}
	}
	return free
}

// completing returns the free cell that would give seat three in a row.
func completing(cells [9]int, seat int) (int, bool) {
	for _, l := range lines {
		mine, empty := 0, -1
		for _, i := range l {
			switch cells[i] {
			case seat:
				mine++
			case -1:
				empty = i
			}
		}
		if mine == 2 && empty >= 0 {
			return empty, true
		}
	}
	return -1, false
}
