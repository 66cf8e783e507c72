package duel

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"duel-bot/internal/config"
	"duel-bot/internal/game"
	"duel-bot/internal/pkg/lock"
)

// Ledger is the account collaborator that holds player balances.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	// Adjust applies a signed delta. A debit the balance cannot cover fails with
	// ErrInsufficientFunds and changes nothing.
	Adjust(ctx context.Context, userID string, delta int64, txType, description string) (int64, error)
	AddToVault(ctx context.Context, amount int64) error
	AddHonor(ctx context.Context, userID string, n int64) error
}

// Presenter pushes asynchronous session changes (timeouts, AI moves, countdowns) to a chat frontend.
type Presenter interface {
	Present(ctx context.Context, snap *Snapshot) error
}

// LobbyRequest describes a new lobby.
type LobbyRequest struct {
	Host     Player
	Bet      int64
	GameType string          // catalog id; empty or game.RandomID draws one at start
	Opponent game.Difficulty // seats an AI opponent when set
	Origin   string          // name of the frontend that owns the session
	Channel  string
}

// PlayerAction is a move submitted by a human or produced by the AI.
type PlayerAction struct {
	ActorID string
	Move    game.Move
}

// Engine runs duel sessions.
type Engine struct {
	cfg     config.DuelConfig
	catalog *game.Registry
	ledger  Ledger
	store   *Store
	locks   *lock.KeyedLock

	presenters map[string]Presenter
	pmu        sync.RWMutex

	now     func() time.Time
	newRand func() *rand.Rand
}

// timerLockWait bounds how long a timer or AI callback waits for a busy session.
const timerLockWait = 10 * time.Second

// NewEngine creates an engine over a game catalog and a ledger.
func NewEngine(cfg config.DuelConfig, catalog *game.Registry, ledger Ledger) *Engine {
	return &Engine{
		cfg:        cfg,
		catalog:    catalog,
		ledger:     ledger,
		store:      NewStore(),
		locks:      lock.NewKeyedLock(),
		presenters: make(map[string]Presenter),
		now:        time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// RegisterPresenter routes updates of sessions created by origin to p.
func (e *Engine) RegisterPresenter(origin string, p Presenter) {
	e.pmu.Lock()
	defer e.pmu.Unlock()
	e.presenters[origin] = p
}

// Catalog returns the game catalog.
func (e *Engine) Catalog() *game.Registry {
	return e.catalog
}

// Count returns the number of live sessions.
func (e *Engine) Count() int {
	return e.store.Len()
}

// Get returns a snapshot of a session.
func (e *Engine) Get(key string) (*Snapshot, error) {
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	s, ok := e.store.Get(key)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.snapshot(s, false), nil
}

// acquire takes the session lock without waiting; a held lock means another
// step of the same session is in flight.
func (e *Engine) acquire(key string) (*Session, error) {
	if !e.locks.TryLock(key) {
		return nil, ErrBusy
	}
	s, ok := e.store.Get(key)
	if !ok {
		e.locks.Unlock(key)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// release unlocks a session. The lock entry of a deleted session goes away with its last holder.
func (e *Engine) release(s *Session) {
	e.locks.Unlock(s.Key)
}

// remove drops a session from the store. The caller holds its lock.
func (e *Engine) remove(s *Session) {
	s.stopTimers()
	e.store.Delete(s.Key)
}

func (e *Engine) validateBet(bet int64) error {
	if bet < 0 {
		return ErrInvalidBet
	}
	if bet > 0 && bet < e.cfg.MinBet {
		return fmt.Errorf("%w of %d", ErrBetTooLow, e.cfg.MinBet)
	}
	return nil
}

func (e *Engine) checkFunds(ctx context.Context, playerID string, bet int64) error {
	if bet == 0 {
		return nil
	}
	balance, err := e.ledger.Balance(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to check balance: %w", err)
	}
	if balance < bet {
		return ErrInsufficientFunds
	}
	return nil
}

// CreateLobby opens a lobby hosted by req.Host. Nothing is charged until start.
func (e *Engine) CreateLobby(ctx context.Context, req LobbyRequest) (*Snapshot, error) {
	if err := e.validateBet(req.Bet); err != nil {
		return nil, err
	}

	gameType := req.GameType
	if gameType == "" {
		gameType = game.RandomID
	}
	var rules game.Rules
	if gameType != game.RandomID {
		g, err := e.catalog.Get(gameType)
		if err != nil {
			return nil, err
		}
		rules = g
	}

	if req.Opponent != "" {
		if req.Bet > 0 {
			return nil, ErrAIBetNotAllowed
		}
		if rules != nil {
			if !rules.Info().AIReady {
				return nil, ErrGameNotAIReady
			}
			if !rules.Info().Supports(2) {
				return nil, ErrPlayerCountUnsupported
			}
		} else if len(e.catalog.Compatible(2, true)) == 0 {
			return nil, ErrNoCompatibleGame
		}
	}

	if err := e.checkFunds(ctx, req.Host.ID, req.Bet); err != nil {
		return nil, err
	}

	now := e.now()
	s := &Session{
		Key:       uuid.NewString(),
		Origin:    req.Origin,
		Channel:   req.Channel,
		Status:    StatusLobby,
		GameType:  gameType,
		Rules:     rules,
		Players:   []Player{req.Host},
		HostID:    req.Host.ID,
		Bet:       req.Bet,
		CreatedAt: now,
		UpdatedAt: now,
		rng:       e.newRand(),
	}
	if req.Opponent != "" {
		s.Players = append(s.Players, AIPlayer(req.Opponent))
	}

	e.locks.Lock(s.Key)
	defer e.locks.Unlock(s.Key)

	e.store.Put(s)
	s.touch(now)
	e.arm(s, e.cfg.LobbyTimeout)

	log.Info().
		Str("session", s.Key).
		Str("host", req.Host.ID).
		Str("game", gameType).
		Int64("bet", req.Bet).
		Str("ai", string(req.Opponent)).
		Msg("Lobby created")

	return e.snapshot(s, false), nil
}

// capacity is the most players the lobby accepts.
func (e *Engine) capacity(s *Session) int {
	if s.HasAI() {
		return len(s.Players)
	}
	if s.Rules != nil {
		return s.Rules.Info().MaxPlayers
	}
	return e.catalog.MaxPlayers()
}

// Join seats a player in a lobby.
func (e *Engine) Join(ctx context.Context, key string, p Player) (*Snapshot, error) {
	s, err := e.acquire(key)
	if err != nil {
		return nil, err
	}
	defer e.release(s)

	if s.Status != StatusLobby {
		return nil, ErrNotInLobby
	}
	if s.Seat(p.ID) >= 0 {
		return nil, ErrAlreadyJoined
	}
	if len(s.Players) >= e.capacity(s) {
		return nil, ErrLobbyFull
	}
	if err := e.checkFunds(ctx, p.ID, s.Bet); err != nil {
		return nil, err
	}

	s.Players = append(s.Players, p)
	s.touch(e.now())
	e.arm(s, e.cfg.LobbyTimeout)

	log.Debug().Str("session", key).Str("player", p.ID).Int("players", len(s.Players)).Msg("Player joined lobby")
	return e.snapshot(s, false), nil
}

// Leave removes a player from a lobby. A leaving host hands over to the next
// player in join order; a lobby left without humans is deleted.
func (e *Engine) Leave(ctx context.Context, key, playerID string) (*Snapshot, error) {
	s, err := e.acquire(key)
	if err != nil {
		return nil, err
	}
	defer e.release(s)

	if s.Status != StatusLobby {
		return nil, ErrNotInLobby
	}
	seat := s.Seat(playerID)
	if seat < 0 {
		return nil, ErrNotAPlayer
	}

	s.Players = append(s.Players[:seat:seat], s.Players[seat+1:]...)
	s.touch(e.now())

	if s.Humans() == 0 {
		e.remove(s)
		log.Info().Str("session", key).Msg("Lobby emptied")
		return e.snapshot(s, true), nil
	}
	if s.HostID == playerID {
		for _, p := range s.Players {
			if !p.IsAI() {
				s.HostID = p.ID
				break
			}
		}
	}
	e.arm(s, e.cfg.LobbyTimeout)

	log.Debug().Str("session", key).Str("player", playerID).Str("host", s.HostID).Msg("Player left lobby")
	return e.snapshot(s, false), nil
}

// Cancel deletes a lobby. Only the host may cancel, and only while alone.
func (e *Engine) Cancel(ctx context.Context, key, requesterID string) (*Snapshot, error) {
	s, err := e.acquire(key)
	if err != nil {
		return nil, err
	}
	defer e.release(s)

	if s.Status != StatusLobby {
		return nil, ErrNotInLobby
	}
	if s.HostID != requesterID {
		return nil, ErrNotHost
	}
	if s.Humans() != 1 {
		return nil, ErrLobbyNotEmpty
	}

	e.remove(s)
	log.Info().Str("session", key).Msg("Lobby cancelled")
	return e.snapshot(s, true), nil
}

// Start resolves the game type, charges every stake and begins the countdown.
func (e *Engine) Start(ctx context.Context, key, requesterID string) (*Snapshot, error) {
	s, err := e.acquire(key)
	if err != nil {
		return nil, err
	}
	defer e.release(s)

	if s.Status != StatusLobby {
		return nil, ErrNotInLobby
	}
	if s.HostID != requesterID {
		return nil, ErrNotHost
	}
	n := len(s.Players)
	if n < 2 {
		return nil, ErrNotEnoughPlayers
	}

	rules := s.Rules
	if rules == nil {
		g, ok := e.catalog.Random(n, s.HasAI(), s.rng)
		if !ok {
			return nil, ErrNoCompatibleGame
		}
		rules = g
	} else if !rules.Info().Supports(n) {
		return nil, ErrPlayerCountUnsupported
	}

	if err := e.chargeStakes(ctx, s); err != nil {
		return nil, err
	}

	s.Rules = rules
	s.GameType = rules.Info().ID
	e.countdown(s)

	log.Info().
		Str("session", key).
		Str("game", s.GameType).
		Int("players", n).
		Int64("bet", s.Bet).
		Msg("Duel started")

	return e.snapshot(s, false), nil
}

// Handle dispatches a decoded button press to the matching operation.
func (e *Engine) Handle(ctx context.Context, a Action, p Player) (*Snapshot, error) {
	switch a.Op {
	case OpJoin:
		return e.Join(ctx, a.Key, p)
	case OpLeave:
		return e.Leave(ctx, a.Key, p.ID)
	case OpCancel:
		return e.Cancel(ctx, a.Key, p.ID)
	case OpStart:
		return e.Start(ctx, a.Key, p.ID)
	case OpMove:
		return e.Act(ctx, a.Key, PlayerAction{ActorID: p.ID, Move: a.Move})
	case OpRematch:
		return e.Rematch(ctx, a.Key, p.ID, true)
	case OpDecline:
		return e.Rematch(ctx, a.Key, p.ID, false)
	}
	return nil, ErrBadCallback
}
