package duel

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"duel-bot/internal/model"
)

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

// chargeStakes debits the bet from every human player. When anyone cannot pay,
// the stakes already taken are returned and a *StakeError names every short player.
func (e *Engine) chargeStakes(ctx context.Context, s *Session) error {
	s.stakes = nil
	if s.Bet == 0 {
		return nil
	}

	desc := fmt.Sprintf("duel %s stake", shortKey(s.Key))
	charged := make(map[string]int64, len(s.Players))
	var short []Shortfall

	for _, p := range s.Players {
		if p.IsAI() {
			continue
		}
		_, err := e.ledger.Adjust(ctx, p.ID, -s.Bet, model.TxTypeDuelBet, desc)
		if errors.Is(err, ErrInsufficientFunds) {
			balance, balErr := e.ledger.Balance(ctx, p.ID)
			if balErr != nil {
				log.Warn().Err(balErr).Str("player", p.ID).Msg("Failed to read balance of short player")
			}
			short = append(short, Shortfall{PlayerID: p.ID, Name: p.Name, Balance: balance})
			continue
		}
		if err != nil {
			e.refund(ctx, s.Key, charged, "stake returned after failed start")
			return fmt.Errorf("failed to charge stake: %w", err)
		}
		charged[p.ID] = s.Bet
	}

	if len(short) > 0 {
		e.refund(ctx, s.Key, charged, "stake returned after failed start")
		log.Warn().Str("session", s.Key).Int64("bet", s.Bet).Int("short", len(short)).Msg("Start rejected, stakes not covered")
		return &StakeError{Bet: s.Bet, Short: short}
	}

	s.stakes = charged
	return nil
}

// refund credits every stake back. It returns what was refunded and whether any credit failed.
func (e *Engine) refund(ctx context.Context, key string, stakes map[string]int64, desc string) (map[string]int64, bool) {
	refunds := make(map[string]int64, len(stakes))
	failed := false
	for playerID, amount := range stakes {
		if amount <= 0 {
			continue
		}
		if _, err := e.ledger.Adjust(ctx, playerID, amount, model.TxTypeRefund, desc); err != nil {
			log.Error().Err(err).
				Str("session", key).
				Str("player", playerID).
				Int64("amount", amount).
				Msg("Failed to refund stake")
			failed = true
			continue
		}
		refunds[playerID] = amount
	}
	return refunds, failed
}

// refundStakes returns every stake held by the session.
func (e *Engine) refundStakes(ctx context.Context, s *Session, desc string) *Settlement {
	st := &Settlement{Pot: sumStakes(s.stakes)}
	st.Refunds, st.Failed = e.refund(ctx, s.Key, s.stakes, desc)
	s.stakes = nil
	return st
}

func sumStakes(stakes map[string]int64) int64 {
	var total int64
	for _, v := range stakes {
		total += v
	}
	return total
}

// settle moves the pot for a decided game. A draw refunds every stake; a win pays
// the pot minus tax to the winner and the tax to the vault. Friendly games between
// humans award one honor point instead.
func (e *Engine) settle(ctx context.Context, s *Session, out *Outcome) *Settlement {
	if out.Draw {
		return e.refundStakes(ctx, s, fmt.Sprintf("duel %s draw", shortKey(s.Key)))
	}

	st := &Settlement{Pot: sumStakes(s.stakes)}
	s.stakes = nil

	if st.Pot == 0 {
		if s.HasAI() {
			return st
		}
		if err := e.ledger.AddHonor(ctx, out.WinnerID, 1); err != nil {
			log.Error().Err(err).Str("session", s.Key).Str("winner", out.WinnerID).Msg("Failed to award honor")
			st.Failed = true
			return st
		}
		st.Honor = true
		return st
	}

	st.Tax = st.Pot * e.cfg.TaxPercent / 100
	st.Payout = st.Pot - st.Tax

	if _, err := e.ledger.Adjust(ctx, out.WinnerID, st.Payout, model.TxTypeDuelWin,
		fmt.Sprintf("duel %s win", shortKey(s.Key))); err != nil {
		log.Error().Err(err).
			Str("session", s.Key).
			Str("winner", out.WinnerID).
			Int64("pot", st.Pot).
			Int64("payout", st.Payout).
			Msg("Failed to pay out duel")
		st.Failed = true
	}
	if err := e.ledger.AddToVault(ctx, st.Tax); err != nil {
		log.Error().Err(err).Str("session", s.Key).Int64("tax", st.Tax).Msg("Failed to credit vault")
		st.Failed = true
	}
	return st
}
