package duel

import (
	"context"

	"github.com/rs/zerolog/log"

	"duel-bot/internal/game"
)

// countdown enters COUNTDOWN; play begins when the countdown timer fires.
func (e *Engine) countdown(s *Session) {
	s.Status = StatusCountdown
	s.touch(e.now())
	if e.cfg.Countdown <= 0 {
		e.begin(s)
		return
	}
	e.arm(s, e.cfg.Countdown)
}

// begin deals a fresh game state and enters PLAYING.
func (e *Engine) begin(s *Session) {
	s.State = s.Rules.NewState(s.names(), s.rng)
	s.Status = StatusPlaying
	s.touch(e.now())
	e.arm(s, e.cfg.ActionTimeout)
	e.scheduleAI(s)
}

// Act submits a move for the acting player.
func (e *Engine) Act(ctx context.Context, key string, a PlayerAction) (*Snapshot, error) {
	s, err := e.acquire(key)
	if err != nil {
		return nil, err
	}
	defer e.release(s)

	if err := e.apply(ctx, s, a); err != nil {
		return nil, err
	}
	return e.snapshot(s, false), nil
}

// apply validates and resolves one action. A rejected action leaves the session untouched.
func (e *Engine) apply(ctx context.Context, s *Session, a PlayerAction) error {
	if s.Status != StatusPlaying {
		return ErrNotPlaying
	}
	seat := s.Seat(a.ActorID)
	if seat < 0 {
		return ErrNotAPlayer
	}
	if !s.Rules.Pending(s.State, seat) {
		if s.Rules.Info().Mode == game.Simultaneous {
			return ErrAlreadyActed
		}
		return ErrNotYourTurn
	}

	res, err := s.Rules.Apply(s.State, seat, a.Move, s.rng)
	if err != nil {
		return err
	}
	s.touch(e.now())

	log.Debug().
		Str("session", s.Key).
		Str("player", a.ActorID).
		Str("move", a.Move.String()).
		Bool("over", res.Over).
		Msg("Move applied")

	if res.Over {
		e.finish(ctx, s, res, false)
		return nil
	}
	e.arm(s, e.cfg.ActionTimeout)
	e.scheduleAI(s)
	return nil
}

// finish settles a decided game and opens the rematch window.
func (e *Engine) finish(ctx context.Context, s *Session, res game.Result, forfeit bool) {
	out := &Outcome{Draw: res.Winner < 0, Reason: res.Reason, Forfeit: forfeit}
	if !out.Draw {
		out.WinnerID = s.Players[res.Winner].ID
	}
	s.Outcome = out
	s.Settlement = e.settle(ctx, s, out)
	s.Status = StatusEnded

	s.Rematch = make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.IsAI() {
			s.Rematch[p.ID] = true
		}
	}
	s.touch(e.now())
	e.arm(s, e.cfg.RematchWindow)

	log.Info().
		Str("session", s.Key).
		Str("game", s.GameType).
		Str("winner", out.WinnerID).
		Bool("draw", out.Draw).
		Bool("forfeit", forfeit).
		Str("reason", out.Reason).
		Msg("Duel ended")
}

// Rematch records a player's answer to the rematch offer. A decline deletes the session;
// once every player accepted, stakes are charged again and a new countdown begins.
// Two-player rematches double the bet.
func (e *Engine) Rematch(ctx context.Context, key, playerID string, accept bool) (*Snapshot, error) {
	s, err := e.acquire(key)
	if err != nil {
		return nil, err
	}
	defer e.release(s)

	if s.Status != StatusEnded {
		return nil, ErrNotEnded
	}
	if s.Seat(playerID) < 0 {
		return nil, ErrNotAPlayer
	}

	if !accept {
		e.remove(s)
		log.Info().Str("session", key).Str("player", playerID).Msg("Rematch declined")
		return e.snapshot(s, true), nil
	}

	s.Rematch[playerID] = true
	s.UpdatedAt = e.now()
	for _, p := range s.Players {
		if !s.Rematch[p.ID] {
			return e.snapshot(s, false), nil
		}
	}

	prevBet := s.Bet
	if len(s.Players) == 2 {
		s.Bet *= 2
	}
	if err := e.chargeStakes(ctx, s); err != nil {
		s.Bet = prevBet
		for _, p := range s.Players {
			if !p.IsAI() {
				delete(s.Rematch, p.ID)
			}
		}
		return nil, err
	}

	s.Round++
	s.State = nil
	s.Outcome = nil
	s.Settlement = nil
	s.Rematch = nil
	e.countdown(s)

	log.Info().Str("session", key).Int("round", s.Round).Int64("bet", s.Bet).Msg("Rematch started")
	return e.snapshot(s, false), nil
}
