// Package fight implements a two-player hit-point duel with weighted critical hits.
package fight

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"duel-bot/internal/game"
)

// Moves.
const (
	MoveAttack = "attack"
	MoveDefend = "defend"
	MoveHeal   = "heal"
)

// Defaults when none are configured.
const (
	DefaultHP        = 100
	DefaultAttackMin = 10
	DefaultAttackMax = 25
	DefaultHealMin   = 10
	DefaultHealMax   = 20
	DefaultHeals     = 2
	lowHP            = 30
)

// DefaultCritTable is the damage multiplier table, in percent, used when none is configured.
var DefaultCritTable = []game.Weighted[int]{{Value: 100, Weight: 70}, {Value: 150, Weight: 25}, {Value: 200, Weight: 5}}

// Fighter is one side of the duel.
type Fighter struct {
	HP        int
	Heals     int
	Guarding  bool // halves the next hit taken
	TookCrit  bool // the last hit taken was critical
}

// State is a running fight.
type State struct {
	game.Base
	MaxHP    int
	Fighters [2]Fighter
}

// Config holds configuration for the game.
type Config struct {
	HP        int
	AttackMin int
	AttackMax int
	HealMin   int
	HealMax   int
	Heals     int
	// CritTable maps a damage multiplier in percent ("150") to its weight.
	CritTable map[string]int
	AI        game.AITuning
}

// Game implements game.Rules for the HP duel.
type Game struct {
	hp                   int
	attackMin, attackMax int
	healMin, healMax     int
	heals                int
	crits                []game.Weighted[int]
	ai                   game.AITuning
}

// New creates the game with the given configuration.
func New(cfg *Config) *Game {
	g := &Game{
		hp:        DefaultHP,
		attackMin: DefaultAttackMin,
		attackMax: DefaultAttackMax,
		healMin:   DefaultHealMin,
		healMax:   DefaultHealMax,
		heals:     DefaultHeals,
		crits:     DefaultCritTable,
	}
	if cfg == nil {
		return g
	}
	if cfg.HP > 0 {
		g.hp = cfg.HP
	}
	if cfg.AttackMin > 0 && cfg.AttackMax >= cfg.AttackMin {
		g.attackMin, g.attackMax = cfg.AttackMin, cfg.AttackMax
	}
	if cfg.HealMin > 0 && cfg.HealMax >= cfg.HealMin {
		g.healMin, g.healMax = cfg.HealMin, cfg.HealMax
	}
	if cfg.Heals >= 0 {
		g.heals = cfg.Heals
	}
	if table := ParseCritTable(cfg.CritTable); len(table) > 0 {
		g.crits = table
	}
	g.ai = cfg.AI
	return g
}

// ParseCritTable converts the configured multiplier table into a weighted table ordered by multiplier.
// Entries whose key is not an integer percent or whose weight is not positive are dropped.
func ParseCritTable(raw map[string]int) []game.Weighted[int] {
	var table []game.Weighted[int]
	for key, weight := range raw {
		pct, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || pct <= 0 || weight <= 0 {
			continue
		}
		table = append(table, game.Weighted[int]{Value: pct, Weight: weight})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].Value < table[j].Value })
	return table
}

// Info returns the catalog entry.
func (g *Game) Info() game.Info {
	return game.Info{
		ID:    "fight",
		Name:  "Fight",
		Emoji: "⚔️",
		Rules: fmt.Sprintf("Both start with %d HP. Attack for %d-%d (crits hit harder), defend to halve the next hit, "+
			"or heal %d-%d (%d per fight). Drop to 0 HP and you lose.",
			g.hp, g.attackMin, g.attackMax, g.healMin, g.healMax, g.heals),
		MinPlayers: 2,
		MaxPlayers: 2,
		AIReady:    true,
		Mode:       game.Alternating,
	}
}

// NewState puts both fighters at full health.
func (g *Game) NewState(names []string, _ *rand.Rand) game.State {
	s := &State{Base: game.NewBase(names), MaxHP: g.hp}
	for i := range s.Fighters {
		s.Fighters[i] = Fighter{HP: g.hp, Heals: g.heals}
	}
	return s
}

// Pending reports whether it is seat's turn.
func (g *Game) Pending(st game.State, seat int) bool {
	return st.Core().Turn == seat
}

func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

// Apply resolves one action and passes the turn.
func (g *Game) Apply(st game.State, seat int, m game.Move, rng *rand.Rand) (game.Result, error) {
	s := st.(*State)
	me := &s.Fighters[seat]
	other := s.Opponent(seat)
	them := &s.Fighters[other]

	switch m.Kind {
	case MoveAttack:
		mult := game.WeightedPick(rng, g.crits)
		dmg := between(rng, g.attackMin, g.attackMax) * mult / 100
		note := ""
		if mult > 100 {
			note = fmt.Sprintf(" 💥 critical x%s!", strconv.FormatFloat(float64(mult)/100, 'f', -1, 64))
		}
		if them.Guarding {
			dmg /= 2
			them.Guarding = false
			note += " 🛡️ blocked half"
		}
		them.HP -= dmg
		them.TookCrit = mult > 100
		s.Last = fmt.Sprintf("⚔️ %s hits %s for %d%s", s.Name(seat), s.Name(other), dmg, note)
	case MoveDefend:
		me.Guarding = true
		s.Last = fmt.Sprintf("🛡️ %s raises their guard", s.Name(seat))
	case MoveHeal:
		if me.Heals == 0 {
			return game.Result{}, game.Illegal("no heals left")
		}
		if me.HP >= s.MaxHP {
			return game.Result{}, game.Illegal("already at full health")
		}
		amount := min(between(rng, g.healMin, g.healMax), s.MaxHP-me.HP)
		me.HP += amount
		me.Heals--
		s.Last = fmt.Sprintf("💚 %s heals %d HP", s.Name(seat), amount)
	default:
		return game.Result{}, game.Illegal("unknown action %q", m.Kind)
	}
	s.Moves++

	if them.HP <= 0 {
		them.HP = 0
		return game.Win(seat, fmt.Sprintf("%s was knocked out", s.Name(other))), nil
	}
	s.Advance()
	return game.Continue, nil
}

// Timeout applies the turn-holder forfeit rule.
func (g *Game) Timeout(st game.State) game.Forfeit {
	return game.AlternatingTimeout(st.Core())
}

// Decide heals when low, guards after a critical (hard), and attacks otherwise.
func (g *Game) Decide(st game.State, seat int, d game.Difficulty, rng *rand.Rand) game.Move {
	s := st.(*State)
	me := s.Fighters[seat]
	canHeal := me.Heals > 0 && me.HP < s.MaxHP

	if d == game.Easy || g.ai.Blunders(d, rng) {
		options := []string{MoveAttack, MoveAttack, MoveDefend}
		if canHeal {
			options = append(options, MoveHeal)
		}
		return game.Move{Kind: options[rng.Intn(len(options))]}
	}

	if canHeal && me.HP < lowHP {
		return game.Move{Kind: MoveHeal}
	}
	if d == game.Hard && me.TookCrit && !me.Guarding {
		return game.Move{Kind: MoveDefend}
	}
	return game.Move{Kind: MoveAttack}
}

func hpBar(hp, maxHP int) string {
	const width = 10
	filled := 0
	if maxHP > 0 {
		filled = (hp*width + maxHP - 1) / maxHP
	}
	return strings.Repeat("🟥", filled) + strings.Repeat("⬛", width-filled)
}

// Board shows both health bars and the three actions.
func (g *Game) Board(st game.State) game.Board {
	s := st.(*State)
	b := game.Board{Status: fmt.Sprintf("⚔️ %s to act", s.Name(s.Turn))}
	if s.Last != "" {
		b.Lines = append(b.Lines, s.Last)
	}
	for seat, f := range s.Fighters {
		guard := ""
		if f.Guarding {
			guard = " 🛡️"
		}
		b.Lines = append(b.Lines, fmt.Sprintf("%s %s %d/%d HP · %d heals%s",
			s.Name(seat), hpBar(f.HP, s.MaxHP), f.HP, s.MaxHP, f.Heals, guard))
	}
	turn := s.Fighters[s.Turn]
	b.Controls = [][]game.Control{{
		{Label: "⚔️ Attack", Move: game.Move{Kind: MoveAttack}},
		{Label: "🛡️ Defend", Move: game.Move{Kind: MoveDefend}},
		{Label: "💚 Heal", Move: game.Move{Kind: MoveHeal}, Disabled: turn.Heals == 0 || turn.HP >= s.MaxHP},
	}}
	return b
}
