package duel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"duel-bot/internal/game"
)

// callbackTimeout bounds the ledger calls made from timer and AI callbacks.
const callbackTimeout = 30 * time.Second

// arm replaces the session timer. Only the generation current at arming time can fire it.
func (e *Engine) arm(s *Session, d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if d <= 0 {
		s.Deadline = time.Time{}
		return
	}
	key, gen := s.Key, s.gen
	s.Deadline = e.now().Add(d)
	s.timer = time.AfterFunc(d, func() { e.expire(key, gen) })
}

// lockFromCallback waits a bounded time for a session touched by a timer or the AI.
// It returns nil when the session is gone or has moved past gen.
func (e *Engine) lockFromCallback(ctx context.Context, key string, gen uint64) *Session {
	if !e.locks.LockWithTimeout(ctx, key, timerLockWait) {
		log.Warn().Str("session", key).Msg("Session busy, dropping timer")
		return nil
	}
	s, ok := e.store.Get(key)
	if !ok || s.gen != gen {
		e.locks.Unlock(key)
		return nil
	}
	return s
}

// expire handles a fired session timer.
func (e *Engine) expire(key string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	s := e.lockFromCallback(ctx, key, gen)
	if s == nil {
		return
	}
	snap := e.timeout(ctx, s)
	e.release(s)
	e.present(ctx, snap)
}

// timeout applies the timer rule of the current phase. It returns nil when nothing changed.
func (e *Engine) timeout(ctx context.Context, s *Session) *Snapshot {
	switch s.Status {
	case StatusLobby:
		if len(s.Players) >= 2 {
			return nil
		}
		e.remove(s)
		log.Info().Str("session", s.Key).Msg("Lobby expired")
		return e.snapshot(s, true)
	case StatusCountdown:
		e.begin(s)
		return e.snapshot(s, false)
	case StatusPlaying:
		return e.forfeit(ctx, s)
	case StatusEnded:
		e.remove(s)
		log.Debug().Str("session", s.Key).Msg("Rematch window closed")
		return e.snapshot(s, true)
	}
	return nil
}

// forfeit resolves an expired action timer during play.
func (e *Engine) forfeit(ctx context.Context, s *Session) *Snapshot {
	f := s.Rules.Timeout(s.State)
	switch f.Kind {
	case game.ForfeitRefund:
		s.Settlement = e.refundStakes(ctx, s, fmt.Sprintf("duel %s timed out", shortKey(s.Key)))
		s.Outcome = &Outcome{Draw: true, Forfeit: true, Aborted: true, Reason: "nobody moved in time"}
		s.Status = StatusEnded
		e.remove(s)
		log.Info().Str("session", s.Key).Int64("refunded", s.Settlement.Pot).Msg("Duel timed out, stakes refunded")
		return e.snapshot(s, true)

	case game.ForfeitWin:
		e.finish(ctx, s, game.Win(f.Seat, "opponent did not respond"), true)

	case game.ForfeitEliminate:
		b := s.State.Core()
		b.Eliminate(f.Seat)
		b.Last = fmt.Sprintf("⏰ %s ran out of time and is out", b.Name(f.Seat))
		s.touch(e.now())
		log.Info().Str("session", s.Key).Str("player", s.Players[f.Seat].ID).Msg("Player eliminated by timeout")

		if w := b.Survivor(); w >= 0 {
			e.finish(ctx, s, game.Win(w, "last one standing"), true)
			break
		}
		e.arm(s, e.cfg.ActionTimeout)
		e.scheduleAI(s)

	case game.ForfeitCloseRound:
		b := s.State.Core()
		names := make([]string, 0, len(f.Idle))
		for _, seat := range f.Idle {
			b.Eliminate(seat)
			names = append(names, b.Name(seat))
		}
		b.Last = fmt.Sprintf("⏰ %s ran out of time", strings.Join(names, ", "))
		s.touch(e.now())
		log.Info().Str("session", s.Key).Ints("seats", f.Idle).Msg("Idle players eliminated by timeout")

		if w := b.Survivor(); w >= 0 {
			e.finish(ctx, s, game.Win(w, "opponents did not respond"), true)
			break
		}
		if closer, ok := s.Rules.(game.RoundCloser); ok {
			if res := closer.CloseRound(s.State); res.Over {
				e.finish(ctx, s, res, true)
				break
			}
		}
		e.arm(s, e.cfg.ActionTimeout)
		e.scheduleAI(s)
	}
	return e.snapshot(s, false)
}

// abort drops a session outside the normal flow, returning any stakes it still holds.
func (e *Engine) abort(ctx context.Context, s *Session, reason string) *Snapshot {
	if len(s.stakes) > 0 {
		s.Settlement = e.refundStakes(ctx, s, fmt.Sprintf("duel %s %s", shortKey(s.Key), reason))
	}
	if s.Status != StatusEnded && s.Status != StatusLobby {
		s.Outcome = &Outcome{Draw: true, Aborted: true, Reason: reason}
		s.Status = StatusEnded
	}
	e.remove(s)
	return e.snapshot(s, true)
}

// Sweep drops sessions idle for longer than the session TTL and returns how many it dropped.
// Busy sessions are skipped until the next sweep.
func (e *Engine) Sweep(ctx context.Context) int {
	if e.cfg.SessionTTL <= 0 {
		return 0
	}
	cutoff := e.now().Add(-e.cfg.SessionTTL)
	swept := 0

	for _, key := range e.store.Keys() {
		if !e.locks.TryLock(key) {
			continue
		}
		s, ok := e.store.Get(key)
		if !ok || s.UpdatedAt.After(cutoff) {
			e.locks.Unlock(key)
			continue
		}
		snap := e.abort(ctx, s, "expired")
		e.release(s)
		e.present(ctx, snap)
		swept++
	}

	if swept > 0 {
		log.Info().Int("swept", swept).Int("live", e.store.Len()).Msg("Swept idle sessions")
	}
	return swept
}

// Shutdown refunds and drops every session. Sessions do not survive a restart.
func (e *Engine) Shutdown(ctx context.Context) {
	for _, key := range e.store.Keys() {
		if !e.locks.LockWithTimeout(ctx, key, timerLockWait) {
			log.Warn().Str("session", key).Msg("Session busy during shutdown")
			continue
		}
		s, ok := e.store.Get(key)
		if !ok {
			e.locks.Unlock(key)
			continue
		}
		snap := e.abort(ctx, s, "cancelled by restart")
		e.release(s)
		e.present(ctx, snap)
	}
}

// Run sweeps idle sessions until ctx is done, then shuts the engine down.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Dur("ttl", e.cfg.SessionTTL).Msg("Duel engine running")

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
			e.Shutdown(shutdownCtx)
			cancel()
			log.Info().Msg("Duel engine stopped")
			return nil
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// present hands an asynchronous change to the frontend that owns the session.
func (e *Engine) present(ctx context.Context, snap *Snapshot) {
	if snap == nil {
		return
	}
	e.pmu.RLock()
	p, ok := e.presenters[snap.Origin]
	e.pmu.RUnlock()
	if !ok {
		log.Debug().Str("session", snap.Key).Str("origin", snap.Origin).Msg("No presenter for session origin")
		return
	}
	if err := p.Present(ctx, snap); err != nil {
		log.Error().Err(err).Str("session", snap.Key).Str("origin", snap.Origin).Msg("Failed to present session update")
	}
}
