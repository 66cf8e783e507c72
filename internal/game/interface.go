// Package game defines the Game Catalog: the rules contract every duel game type implements,
// the shared turn bookkeeping, and the registry the duel engine resolves types from.
package game

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrIllegalMove is returned (wrapped with a reason) when a move breaks the rules of the game.
// A rejected move never changes the state.
var ErrIllegalMove = errors.New("illegal move")

// Illegal wraps ErrIllegalMove with a human-readable reason.
func Illegal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalMove, fmt.Sprintf(format, args...))
}

// Mode says how players act.
type Mode int

const (
	// Alternating games have exactly one seat to act at a time.
	Alternating Mode = iota
	// Simultaneous games collect one hidden choice per seat and resolve the round together.
	Simultaneous
)

// Info is the static catalog entry of a game type.
type Info struct {
	ID         string
	Name       string
	Emoji      string
	Rules      string
	MinPlayers int
	MaxPlayers int
	AIReady    bool
	Mode       Mode
}

// Supports reports whether n players fit the game.
func (i Info) Supports(n int) bool {
	return n >= i.MinPlayers && n <= i.MaxPlayers
}

// Move is a player's action. Kind names the action ("mark", "hit", "shoot"...),
// Index carries its argument (a cell, a target seat) when there is one.
type Move struct {
	Kind  string
	Index int
}

func (m Move) String() string {
	return fmt.Sprintf("%s:%d", m.Kind, m.Index)
}

// State is the typed per-session state of one game. Every implementation embeds Base.
type State interface {
	Core() *Base
}

// Result is the outcome of an accepted move.
type Result struct {
	Over   bool
	Winner int    // winning seat; -1 with Over means a draw
	Reason string // why the game ended, e.g. "three in a row"
}

// Continue is the Result of a move that does not end the game.
var Continue = Result{Winner: -1}

// Win ends the game with a winner.
func Win(seat int, reason string) Result {
	return Result{Over: true, Winner: seat, Reason: reason}
}

// Draw ends the game without a winner.
func Draw(reason string) Result {
	return Result{Over: true, Winner: -1, Reason: reason}
}

// ForfeitKind is the decision taken when the action timer expires during play.
type ForfeitKind int

const (
	// ForfeitRefund aborts the game and returns every stake.
	ForfeitRefund ForfeitKind = iota
	// ForfeitWin awards the game to Forfeit.Seat.
	ForfeitWin
	// ForfeitEliminate removes Forfeit.Seat from a group game and play continues.
	ForfeitEliminate
	// ForfeitCloseRound removes every seat in Forfeit.Idle and settles the round
	// among the seats that acted.
	ForfeitCloseRound
)

// Forfeit describes what a timeout does to the game.
type Forfeit struct {
	Kind ForfeitKind
	Seat int
	Idle []int
}

// RoundCloser is implemented by simultaneous group games. CloseRound settles the
// current round once the seats that did not act have been eliminated.
type RoundCloser interface {
	CloseRound(s State) Result
}

// Control is one button offered to the pending player(s).
type Control struct {
	Label    string
	Move     Move
	Disabled bool
}

// Board is the platform-neutral picture of a game in progress.
type Board struct {
	Lines    []string    // board rows, hp bars, hands
	Status   string      // whose turn, round score
	Controls [][]Control // rows of buttons
}

// Rules is implemented by every game type. Implementations are stateless;
// all per-session data lives in the State they create.
type Rules interface {
	Info() Info
	// NewState deals a fresh game for the given seat names, in join order.
	NewState(names []string, rng *rand.Rand) State
	// Pending reports whether seat owes an action right now.
	Pending(s State, seat int) bool
	// Apply validates and applies a move. On error the state is untouched.
	Apply(s State, seat int, m Move, rng *rand.Rand) (Result, error)
	// Timeout decides what an expired action timer does.
	Timeout(s State) Forfeit
	// Decide picks the move of an AI seat. It is only called when Pending is true.
	Decide(s State, seat int, d Difficulty, rng *rand.Rand) Move
	// Board renders the state.
	Board(s State) Board
}
