// Package catalog builds the game registry from configuration.
package catalog

import (
	"fmt"

	"duel-bot/internal/config"
	"duel-bot/internal/game"
	"duel-bot/internal/game/blackjack"
	"duel-bot/internal/game/dice"
	"duel-bot/internal/game/fight"
	"duel-bot/internal/game/minefield"
	"duel-bot/internal/game/roulette"
	"duel-bot/internal/game/rps"
	"duel-bot/internal/game/tictactoe"
)

// New registers every game type with its tuning.
func New(cfg config.GamesConfig) (*game.Registry, error) {
	ai := game.AITuning{
		Easy:   cfg.AI.EasyErrorRate,
		Medium: cfg.AI.MediumErrorRate,
		Hard:   cfg.AI.HardErrorRate,
	}

	games := []game.Rules{
		tictactoe.New(ai),
		rps.New(&rps.Config{Wins: cfg.RPS.Wins, AI: ai}),
		blackjack.New(&blackjack.Config{
			HardStand:   cfg.Blackjack.HardStand,
			MediumStand: cfg.Blackjack.MediumStand,
			AI:          ai,
		}),
		roulette.New(&roulette.Config{Chambers: cfg.Roulette.Chambers, AI: ai}),
		minefield.New(&minefield.Config{Cells: cfg.Minefield.Cells, Mines: cfg.Minefield.Mines}),
		fight.New(&fight.Config{
			HP:        cfg.Fight.HP,
			AttackMin: cfg.Fight.AttackMin,
			AttackMax: cfg.Fight.AttackMax,
			HealMin:   cfg.Fight.HealMin,
			HealMax:   cfg.Fight.HealMax,
			Heals:     cfg.Fight.Heals,
			CritTable: cfg.Fight.CritTable,
			AI:        ai,
		}),
		dice.New(&dice.Config{RollOffs: cfg.Dice.RollOffs}),
	}

	registry := game.NewRegistry()
	for _, g := range games {
		if err := registry.Register(g); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", g.Info().ID, err)
		}
	}
	return registry, nil
}
