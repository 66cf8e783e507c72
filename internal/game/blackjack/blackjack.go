// Package blackjack implements a two-player blackjack race from a shared deck.
package blackjack

import (
	"fmt"
	"math/rand"
	"strings"

	"duel-bot/internal/game"
)

// Moves.
const (
	MoveHit   = "hit"
	MoveStand = "stand"
)

// Default AI stand thresholds.
const (
	DefaultHardStand   = 17
	DefaultMediumStand = 15
	easyStand          = 13
)

var (
	ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
	suits = []string{"♠", "♥", "♦", "♣"}
)

// Card is one playing card.
type Card struct {
	Rank int // index into ranks
	Suit int
}

func (c Card) String() string {
	return ranks[c.Rank] + suits[c.Suit]
}

func (c Card) value() int {
	switch {
	case c.Rank == 0:
		return 11
	case c.Rank >= 9:
		return 10
	default:
		return c.Rank + 1
	}
}

// Total returns the best blackjack value of a hand, counting aces as 1 when 11 would bust.
func Total(hand []Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		total += c.value()
		if c.Rank == 0 {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// State is a running blackjack duel.
type State struct {
	game.Base
	Deck  []Card
	Hands [2][]Card
	Done  [2]bool
}

// Config holds configuration for the game.
type Config struct {
	HardStand   int
	MediumStand int
	AI          game.AITuning
}

// Game implements game.Rules for blackjack.
type Game struct {
	hardStand   int
	mediumStand int
	ai          game.AITuning
}

// New creates the game with the given configuration.
func New(cfg *Config) *Game {
	g := &Game{hardStand: DefaultHardStand, mediumStand: DefaultMediumStand}
	if cfg != nil {
		if cfg.HardStand > 0 {
			g.hardStand = cfg.HardStand
		}
		if cfg.MediumStand > 0 {
			g.mediumStand = cfg.MediumStand
		}
		g.ai = cfg.AI
	}
	return g
}

// Info returns the catalog entry.
func (g *Game) Info() game.Info {
	return game.Info{
		ID:         "blackjack",
		Name:       "Blackjack",
		Emoji:      "🃏",
		Rules:      "Each player draws from the same deck in turn. Hit or stand; closest to 21 without busting wins. Equal totals or two busts are a draw.",
		MinPlayers: 2,
		MaxPlayers: 2,
		AIReady:    true,
		Mode:       game.Alternating,
	}
}

// NewState shuffles a deck and deals two cards to each player.
func (g *Game) NewState(names []string, rng *rand.Rand) game.State {
	s := &State{Base: game.NewBase(names)}
	for suit := range suits {
		for rank := range ranks {
			s.Deck = append(s.Deck, Card{Rank: rank, Suit: suit})
		}
	}
	rng.Shuffle(len(s.Deck), func(i, j int) { s.Deck[i], s.Deck[j] = s.Deck[j], s.Deck[i] })

	for i := 0; i < 2; i++ {
		for seat := 0; seat < 2; seat++ {
			s.Hands[seat] = append(s.Hands[seat], s.draw())
		}
	}
	return s
}

func (s *State) draw() Card {
	c := s.Deck[0]
	s.Deck = s.Deck[1:]
	return c
}

// Pending reports whether it is seat's turn and its hand is still open.
func (g *Game) Pending(st game.State, seat int) bool {
	s := st.(*State)
	return s.Turn == seat && !s.Done[seat]
}

// Apply hits or stands. The turn passes when the hand is closed; the game ends when both are.
func (g *Game) Apply(st game.State, seat int, m game.Move, _ *rand.Rand) (game.Result, error) {
	s := st.(*State)
	if s.Done[seat] {
		return game.Result{}, game.Illegal("your hand is closed")
	}

	switch m.Kind {
	case MoveHit:
		if len(s.Deck) == 0 {
			return game.Result{}, game.Illegal("the deck is empty")
		}
		c := s.draw()
		s.Hands[seat] = append(s.Hands[seat], c)
		total := Total(s.Hands[seat])
		s.Last = fmt.Sprintf("%s draws %s (%d)", s.Name(seat), c, total)
		if total > 21 {
			s.Last += " and busts"
			s.Done[seat] = true
		} else if total == 21 {
			s.Done[seat] = true
		}
	case MoveStand:
		s.Done[seat] = true
		s.Last = fmt.Sprintf("%s stands on %d", s.Name(seat), Total(s.Hands[seat]))
	default:
		return game.Result{}, game.Illegal("unknown action %q", m.Kind)
	}
	s.Moves++

	if s.Done[0] && s.Done[1] {
		return g.showdown(s), nil
	}
	if s.Done[seat] {
		s.Turn = s.Opponent(seat)
	}
	return game.Continue, nil
}

func (g *Game) showdown(s *State) game.Result {
	a, b := Total(s.Hands[0]), Total(s.Hands[1])
	bustA, bustB := a > 21, b > 21
	switch {
	case bustA && bustB:
		return game.Draw("both busted")
	case bustA:
		return game.Win(1, fmt.Sprintf("%s busted with %d", s.Name(0), a))
	case bustB:
		return game.Win(0, fmt.Sprintf("%s busted with %d", s.Name(1), b))
	case a == b:
		return game.Draw(fmt.Sprintf("both hold %d", a))
	case a > b:
		return game.Win(0, fmt.Sprintf("%d beats %d", a, b))
	default:
		return game.Win(1, fmt.Sprintf("%d beats %d", b, a))
	}
}

// Timeout applies the turn-holder forfeit rule.
func (g *Game) Timeout(st game.State) game.Forfeit {
	return game.AlternatingTimeout(st.Core())
}

// Decide hits below the difficulty's stand threshold. Hard also hits when the opponent
// already stood on a higher total.
func (g *Game) Decide(st game.State, seat int, d game.Difficulty, rng *rand.Rand) game.Move {
	s := st.(*State)
	if g.ai.Blunders(d, rng) {
		if rng.Intn(2) == 0 {
			return game.Move{Kind: MoveHit}
		}
		return game.Move{Kind: MoveStand}
	}

	total := Total(s.Hands[seat])
	threshold := easyStand
	switch d {
	case game.Hard:
		threshold = g.hardStand
		other := s.Opponent(seat)
		if s.Done[other] {
			theirs := Total(s.Hands[other])
			if theirs > 21 {
				return game.Move{Kind: MoveStand}
			}
			if total < theirs {
				return game.Move{Kind: MoveHit}
			}
		}
	case game.Medium:
		threshold = g.mediumStand
	}
	if total < threshold {
		return game.Move{Kind: MoveHit}
	}
	return game.Move{Kind: MoveStand}
}

// Board shows both hands face up.
func (g *Game) Board(st game.State) game.Board {
	s := st.(*State)
	b := game.Board{}
	if s.Last != "" {
		b.Lines = append(b.Lines, s.Last)
	}
	for seat := 0; seat < 2; seat++ {
		cards := make([]string, len(s.Hands[seat]))
		for i, c := range s.Hands[seat] {
			cards[i] = c.String()
		}
		mark := ""
		if s.Done[seat] {
			mark = " ✋"
		}
		b.Lines = append(b.Lines, fmt.Sprintf("%s: %s = %d%s", s.Name(seat), strings.Join(cards, " "), Total(s.Hands[seat]), mark))
	}
	b.Status = fmt.Sprintf("%s to play", s.Name(s.Turn))
	b.Controls = [][]game.Control{{
		{Label: "🃏 Hit", Move: game.Move{Kind: MoveHit}},
		{Label: "✋ Stand", Move: game.Move{Kind: MoveStand}},
	}}
	return b
}
