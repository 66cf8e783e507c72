// Package rps implements best-of rock-paper-scissors with simultaneous hidden choices.
package rps

import (
	"fmt"
	"math/rand"

	"duel-bot/internal/game"
)

// MoveThrow submits a hidden choice; Index is one of Rock, Paper, Scissors.
const MoveThrow = "throw"

// Choices.
const (
	Rock = iota
	Paper
	Scissors
)

var (
	choiceNames  = [3]string{"Rock", "Paper", "Scissors"}
	choiceEmojis = [3]string{"🪨", "📄", "✂️"}
)

// DefaultWins is the number of round wins needed when none is configured.
const DefaultWins = 2

// beats[a] is the choice that a defeats.
var beats = [3]int{Scissors, Rock, Paper}

// State is a running match.
type State struct {
	game.Base
	Score   [2]int
	Choice  [2]int  // -1 until the seat throws this round
	History [2][]int
	Round   int
}

// Config holds configuration for the game.
type Config struct {
	Wins int
	AI   game.AITuning
}

// Game implements game.Rules for rock-paper-scissors.
type Game struct {
	wins int
	ai   game.AITuning
}

// New creates the game with the given configuration.
func New(cfg *Config) *Game {
	g := &Game{wins: DefaultWins}
	if cfg != nil {
		if cfg.Wins > 0 {
			g.wins = cfg.Wins
		}
		g.ai = cfg.AI
	}
	return g
}

// Info returns the catalog entry.
func (g *Game) Info() game.Info {
	return game.Info{
		ID:         "rps",
		Name:       "Rock Paper Scissors",
		Emoji:      "✂️",
		Rules:      fmt.Sprintf("Both players pick in secret. First to %d round wins takes the match; ties replay.", g.wins),
		MinPlayers: 2,
		MaxPlayers: 2,
		AIReady:    true,
		Mode:       game.Simultaneous,
	}
}

// NewState starts round one.
func (g *Game) NewState(names []string, _ *rand.Rand) game.State {
	return &State{Base: game.NewBase(names), Choice: [2]int{-1, -1}, Round: 1}
}

// Pending reports whether seat has not thrown this round.
func (g *Game) Pending(st game.State, seat int) bool {
	return st.(*State).Choice[seat] == -1
}

// Apply records a throw and resolves the round once both seats have thrown.
func (g *Game) Apply(st game.State, seat int, m game.Move, _ *rand.Rand) (game.Result, error) {
	s := st.(*State)
	if m.Kind != MoveThrow {
		return game.Result{}, game.Illegal("unknown action %q", m.Kind)
	}
	if m.Index < Rock || m.Index > Scissors {
		return game.Result{}, game.Illegal("unknown choice %d", m.Index)
	}
	if s.Choice[seat] != -1 {
		return game.Result{}, game.Illegal("already picked this round")
	}

	s.Choice[seat] = m.Index
	s.Moves++
	if s.Choice[0] == -1 || s.Choice[1] == -1 {
		s.Last = fmt.Sprintf("%s has picked", s.Name(seat))
		return game.Continue, nil
	}

	a, b := s.Choice[0], s.Choice[1]
	s.History[0] = append(s.History[0], a)
	s.History[1] = append(s.History[1], b)
	s.Choice = [2]int{-1, -1}

	shown := fmt.Sprintf("%s %s vs %s %s", choiceEmojis[a], s.Name(0), s.Name(1), choiceEmojis[b])
	switch {
	case a == b:
		s.Last = shown + ": tie, replay the round"
		return game.Continue, nil
	case beats[a] == b:
		s.Score[0]++
		s.Last = fmt.Sprintf("%s: %s takes round %d", shown, s.Name(0), s.Round)
	default:
		s.Score[1]++
		s.Last = fmt.Sprintf("%s: %s takes round %d", shown, s.Name(1), s.Round)
	}
	s.Round++

	for seat, score := range s.Score {
		if score >= g.wins {
			return game.Win(seat, fmt.Sprintf("won %d-%d", score, s.Score[1-seat])), nil
		}
	}
	return game.Continue, nil
}

// Timeout awards the match to a lone thrower and refunds when nobody threw this round.
func (g *Game) Timeout(st game.State) game.Forfeit {
	s := st.(*State)
	return game.SimultaneousTimeout(&s.Base, []bool{s.Choice[0] != -1, s.Choice[1] != -1})
}

// Decide throws at random; hard counters the opponent's most frequent past choice.
func (g *Game) Decide(st game.State, seat int, d game.Difficulty, rng *rand.Rand) game.Move {
	s := st.(*State)
	random := game.Move{Kind: MoveThrow, Index: rng.Intn(3)}
	if d != game.Hard || g.ai.Blunders(d, rng) {
		return random
	}

	history := s.History[1-seat]
	if len(history) == 0 {
		return random
	}
	var counts [3]int
	for _, c := range history {
		counts[c]++
	}
	favourite := 0
	for c := 1; c < 3; c++ {
		if counts[c] > counts[favourite] {
			favourite = c
		}
	}
	return game.Move{Kind: MoveThrow, Index: counter(favourite)}
}

// counter returns the choice that beats c.
func counter(c int) int {
	for x := 0; x < 3; x++ {
		if beats[x] == c {
			return x
		}
	}
	return Rock
}

// Board shows the score and who has already picked; choices stay hidden.
func (g *Game) Board(st game.State) game.Board {
	s := st.(*State)
	b := game.Board{
		Status: fmt.Sprintf("Round %d · %s %d - %d %s", s.Round, s.Name(0), s.Score[0], s.Score[1], s.Name(1)),
	}
	if s.Last != "" {
		b.Lines = append(b.Lines, s.Last)
	}
	for seat := 0; seat < 2; seat++ {
		mark := "🤔 thinking"
		if s.Choice[seat] != -1 {
			mark = "✅ ready"
		}
		b.Lines = append(b.Lines, fmt.Sprintf("%s: %s", s.Name(seat), mark))
	}
	row := make([]game.Control, 0, 3)
	for c := Rock; c <= Scissors; c++ {
		row = append(row, game.Control{
			Label: choiceEmojis[c] + " " + choiceNames[c],
			Move:  game.Move{Kind: MoveThrow, Index: c},
		})
	}
	b.Controls = [][]game.Control{row}
	return b
}
