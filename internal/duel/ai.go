package duel

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// pendingAI returns the first AI seat that owes a move, or -1.
func (e *Engine) pendingAI(s *Session) int {
	for seat, p := range s.Players {
		if p.IsAI() && s.Rules.Pending(s.State, seat) {
			return seat
		}
	}
	return -1
}

func (e *Engine) thinkDelay(s *Session) time.Duration {
	lo, hi := e.cfg.AIThinkMin, e.cfg.AIThinkMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.rng.Int63n(int64(hi-lo)+1))
}

// scheduleAI plans one AI move for the current decision point. Calling it again
// before the session changes is a no-op.
func (e *Engine) scheduleAI(s *Session) {
	if s.Status != StatusPlaying || s.aiGen == s.gen || e.pendingAI(s) < 0 {
		return
	}
	s.aiGen = s.gen
	if s.aiTimer != nil {
		s.aiTimer.Stop()
	}
	key, gen := s.Key, s.gen
	s.aiTimer = time.AfterFunc(e.thinkDelay(s), func() { e.runAI(key, gen) })
}

// runAI plays the scheduled AI move through the same path as a human action.
func (e *Engine) runAI(key string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	s := e.lockFromCallback(ctx, key, gen)
	if s == nil {
		return
	}
	if s.Status != StatusPlaying {
		e.release(s)
		return
	}
	seat := e.pendingAI(s)
	if seat < 0 {
		e.release(s)
		return
	}

	p := s.Players[seat]
	move := s.Rules.Decide(s.State, seat, p.AI, s.rng)
	if err := e.apply(ctx, s, PlayerAction{ActorID: p.ID, Move: move}); err != nil {
		log.Error().Err(err).Str("session", key).Str("move", move.String()).Msg("AI move rejected")
		e.release(s)
		return
	}
	snap := e.snapshot(s, false)
	e.release(s)
	e.present(ctx, snap)
}
