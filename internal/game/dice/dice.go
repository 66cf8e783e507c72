// Package dice implements a dice duel: everyone rolls two dice and the highest total wins.
package dice

import (
	"fmt"
	"math/rand"
	"strings"

	"duel-bot/internal/game"
)

// MoveRoll throws the player's two dice. Index is unused.
const MoveRoll = "roll"

// DefaultRollOffs is how many tie-break rounds are played before a draw is called.
const DefaultRollOffs = 3

// Jackpot is the best possible total.
const Jackpot = 12

var faces = [7]string{"", "⚀", "⚁", "⚂", "⚃", "⚄", "⚅"}

// Roll is one throw of two dice.
type Roll struct {
	Die1, Die2 int
}

// Total returns the sum of both dice.
func (r Roll) Total() int {
	return r.Die1 + r.Die2
}

func (r Roll) String() string {
	return fmt.Sprintf("%s %s = %d", faces[r.Die1], faces[r.Die2], r.Total())
}

// State is the table. Rolls[seat] is nil until the seat rolls this round.
type State struct {
	game.Base
	Rolls    []*Roll
	Round    int // 1 for the opening roll, higher for roll-offs
	RollOffs int
}

// Config holds configuration for the game.
type Config struct {
	RollOffs int
}

// Game implements game.Rules for the dice duel.
type Game struct {
	rollOffs int
}

// New creates the game with the given configuration.
func New(cfg *Config) *Game {
	g := &Game{rollOffs: DefaultRollOffs}
	if cfg != nil && cfg.RollOffs > 0 {
		g.rollOffs = cfg.RollOffs
	}
	return g
}

// Info returns the catalog entry.
func (g *Game) Info() game.Info {
	return game.Info{
		ID:    "dice",
		Name:  "Dice Duel",
		Emoji: "🎲",
		Rules: fmt.Sprintf("Everyone rolls two dice, the highest total wins. "+
			"Tied leaders roll off, up to %d times before it is called a draw.", g.rollOffs),
		MinPlayers: 2,
		MaxPlayers: 4,
		AIReady:    true,
		Mode:       game.Simultaneous,
	}
}

// NewState seats the players for the opening roll.
func (g *Game) NewState(names []string, _ *rand.Rand) game.State {
	return &State{
		Base:     game.NewBase(names),
		Rolls:    make([]*Roll, len(names)),
		Round:    1,
		RollOffs: g.rollOffs,
	}
}

// Pending reports whether a seat still in the game has not rolled this round.
func (g *Game) Pending(st game.State, seat int) bool {
	s := st.(*State)
	return s.Alive[seat] && s.Rolls[seat] == nil
}

// Apply rolls for the seat and, once every remaining seat has rolled, settles the round.
func (g *Game) Apply(st game.State, seat int, m game.Move, rng *rand.Rand) (game.Result, error) {
	s := st.(*State)
	if m.Kind != MoveRoll {
		return game.Result{}, game.Illegal("unknown action %q", m.Kind)
	}
	if !g.Pending(s, seat) {
		return game.Result{}, game.Illegal("you already rolled")
	}

	roll := &Roll{Die1: rng.Intn(6) + 1, Die2: rng.Intn(6) + 1}
	s.Rolls[seat] = roll
	s.Moves++
	s.Last = fmt.Sprintf("🎲 %s rolled %s", s.Name(seat), roll)
	if roll.Total() == Jackpot {
		s.Last += " 🎊"
	}

	for _, other := range s.AliveSeats() {
		if s.Rolls[other] == nil {
			return game.Continue, nil
		}
	}
	return s.settleRound(), nil
}

// settleRound keeps only the seats with the best total. A single leader wins.
func (s *State) settleRound() game.Result {
	best := 0
	for _, seat := range s.AliveSeats() {
		best = max(best, s.Rolls[seat].Total())
	}

	var leaders []string
	for _, seat := range s.AliveSeats() {
		if s.Rolls[seat].Total() < best {
			s.Eliminate(seat)
			continue
		}
		leaders = append(leaders, s.Name(seat))
	}

	if survivor := s.Survivor(); survivor >= 0 {
		return game.Win(survivor, fmt.Sprintf("highest roll (%d)", best))
	}
	if s.Round > s.RollOffs {
		return game.Draw(fmt.Sprintf("still tied on %d after %d roll-offs", best, s.RollOffs))
	}

	s.Round++
	s.Last = fmt.Sprintf("🤝 %s tied on %d, roll off!", strings.Join(leaders, " and "), best)
	for i := range s.Rolls {
		s.Rolls[i] = nil
	}
	return game.Continue
}

// Timeout refunds when nobody rolled, awards a lone roller, and otherwise drops the
// seats that did not roll.
func (g *Game) Timeout(st game.State) game.Forfeit {
	s := st.(*State)
	acted := make([]bool, len(s.Rolls))
	for seat, r := range s.Rolls {
		acted[seat] = r != nil
	}
	return game.SimultaneousTimeout(&s.Base, acted)
}

// CloseRound settles the round among the seats that rolled.
func (g *Game) CloseRound(st game.State) game.Result {
	return st.(*State).settleRound()
}

// Decide always rolls; there is nothing to choose.
func (g *Game) Decide(game.State, int, game.Difficulty, *rand.Rand) game.Move {
	return game.Move{Kind: MoveRoll}
}

// Board lists each seat's roll and offers the roll button.
func (g *Game) Board(st game.State) game.Board {
	s := st.(*State)
	status := "Opening roll"
	if s.Round > 1 {
		status = fmt.Sprintf("Roll-off %d/%d", s.Round-1, s.RollOffs)
	}
	b := game.Board{Status: status}
	if s.Last != "" {
		b.Lines = append(b.Lines, s.Last)
	}
	for seat := 0; seat < s.Seats(); seat++ {
		switch {
		case !s.Alive[seat]:
			b.Lines = append(b.Lines, fmt.Sprintf("❌ %s", s.Name(seat)))
		case s.Rolls[seat] == nil:
			b.Lines = append(b.Lines, fmt.Sprintf("🤔 %s: waiting", s.Name(seat)))
		default:
			b.Lines = append(b.Lines, fmt.Sprintf("✅ %s: %s", s.Name(seat), s.Rolls[seat]))
		}
	}
	b.Controls = [][]game.Control{{{Label: "🎲 Roll", Move: game.Move{Kind: MoveRoll}}}}
	return b
}
