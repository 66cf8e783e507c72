package duel

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/stretchr/testify/require"

	"duel-bot/internal/config"
	"duel-bot/internal/game"
	"duel-bot/internal/model"
)

// memLedger is an in-memory Ledger.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	honor    map[string]int64
	vault    int64
	txTypes  []string
}

func newLedger(balances map[string]int64) *memLedger {
	l := &memLedger{balances: make(map[string]int64), honor: make(map[string]int64)}
	for id, b := range balances {
		l.balances[id] = b
	}
	return l
}

func (l *memLedger) Balance(_ context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[userID]
	if !ok {
		return 0, model.ErrUserNotFound
	}
	return b, nil
}

func (l *memLedger) Adjust(_ context.Context, userID string, delta int64, txType, _ string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[userID]
	if !ok {
		return 0, model.ErrUserNotFound
	}
	if b+delta < 0 {
		return 0, model.ErrInsufficientFunds
	}
	l.balances[userID] = b + delta
	l.txTypes = append(l.txTypes, txType)
	return b + delta, nil
}

func (l *memLedger) AddToVault(_ context.Context, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vault += amount
	return nil
}

func (l *memLedger) AddHonor(_ context.Context, userID string, n int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.honor[userID] += n
	return nil
}

func (l *memLedger) get(id string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[id]
}

func (l *memLedger) total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := l.vault
	for _, b := range l.balances {
		sum += b
	}
	return sum
}

// recorder is a Presenter that keeps every pushed snapshot.
type recorder struct {
	mu    sync.Mutex
	snaps []*Snapshot
}

func (r *recorder) Present(_ context.Context, snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *recorder) last() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

// race is an alternating test game: "pass" hands the turn on, "win" wins,
// "draw" ends level and "kick" eliminates the seat in Index.
type race struct {
	id       string
	min, max int
	ai       bool
}

type raceState struct {
	game.Base
}

func (r race) Info() game.Info {
	return game.Info{ID: r.id, Name: "Race", Emoji: "🏁", Rules: "First to cross wins.",
		MinPlayers: r.min, MaxPlayers: r.max, AIReady: r.ai, Mode: game.Alternating}
}

func (r race) NewState(names []string, _ *rand.Rand) game.State {
	return &raceState{Base: game.NewBase(names)}
}

func (r race) Pending(s game.State, seat int) bool {
	b := s.Core()
	return b.Alive[seat] && b.Turn == seat
}

func (r race) Apply(s game.State, seat int, m game.Move, _ *rand.Rand) (game.Result, error) {
	b := s.Core()
	switch m.Kind {
	case "pass":
		b.Moves++
		b.Advance()
		return game.Continue, nil
	case "win":
		b.Moves++
		return game.Win(seat, "crossed the line"), nil
	case "draw":
		b.Moves++
		return game.Draw("photo finish"), nil
	case "kick":
		if m.Index < 0 || m.Index >= b.Seats() || m.Index == seat || !b.Alive[m.Index] {
			return game.Result{}, game.Illegal("cannot kick seat %d", m.Index)
		}
		b.Moves++
		b.Eliminate(m.Index)
		if w := b.Survivor(); w >= 0 {
			return game.Win(w, "last one standing"), nil
		}
		b.Advance()
		return game.Continue, nil
	}
	return game.Result{}, game.Illegal("unknown move %q", m.Kind)
}

func (r race) Timeout(s game.State) game.Forfeit {
	return game.AlternatingTimeout(s.Core())
}

func (r race) Decide(game.State, int, game.Difficulty, *rand.Rand) game.Move {
	return game.Move{Kind: "pass"}
}

func (r race) Board(s game.State) game.Board {
	return game.Board{
		Lines:    []string{"🏁 " + s.Core().Name(s.Core().Turn)},
		Status:   "racing",
		Controls: [][]game.Control{{{Label: "Pass", Move: game.Move{Kind: "pass"}}, {Label: "Win", Move: game.Move{Kind: "win"}}}},
	}
}

// pick is a simultaneous test game: both seats pick a number, the higher wins.
type pick struct{}

type pickState struct {
	game.Base
	Picks []int
}

func (pick) Info() game.Info {
	return game.Info{ID: "pick", Name: "Pick", Emoji: "🔢", Rules: "Higher number wins.",
		MinPlayers: 2, MaxPlayers: 2, AIReady: true, Mode: game.Simultaneous}
}

func (pick) NewState(names []string, _ *rand.Rand) game.State {
	return &pickState{Base: game.NewBase(names), Picks: []int{-1, -1}}
}

func (pick) Pending(s game.State, seat int) bool {
	return s.(*pickState).Picks[seat] < 0
}

func (pick) Apply(s game.State, seat int, m game.Move, _ *rand.Rand) (game.Result, error) {
	st := s.(*pickState)
	if m.Kind != "pick" || m.Index < 0 {
		return game.Result{}, game.Illegal("pick a number")
	}
	st.Picks[seat] = m.Index
	st.Moves++
	if st.Picks[0] < 0 || st.Picks[1] < 0 {
		return game.Continue, nil
	}
	switch {
	case st.Picks[0] > st.Picks[1]:
		return game.Win(0, "higher number"), nil
	case st.Picks[1] > st.Picks[0]:
		return game.Win(1, "higher number"), nil
	}
	return game.Draw("same number"), nil
}

func (pick) Timeout(s game.State) game.Forfeit {
	st := s.(*pickState)
	return game.SimultaneousTimeout(&st.Base, []bool{st.Picks[0] >= 0, st.Picks[1] >= 0})
}

func (pick) Decide(game.State, int, game.Difficulty, *rand.Rand) game.Move {
	return game.Move{Kind: "pick", Index: 1}
}

func (pick) Board(game.State) game.Board {
	return game.Board{Status: "pick a number"}
}

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

func testConfig() config.DuelConfig {
	return config.DuelConfig{
		MinBet:        100,
		TaxPercent:    5,
		ActionTimeout: time.Hour,
		LobbyTimeout:  time.Hour,
		RematchWindow: time.Hour,
		AIThinkMin:    time.Hour,
		AIThinkMax:    time.Hour,
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

func newTestEngine(t testingT, ledger Ledger, games ...game.Rules) *Engine {
	t.Helper()
	catalog := game.NewRegistry()
	for _, g := range games {
		require.NoError(t, catalog.Register(g))
	}
	e := NewEngine(testConfig(), catalog, ledger)
	e.newRand = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	return e
}

func human(id string) Player {
	return Player{ID: id, Name: id}
}

// session returns the live session under its lock so tests can inspect engine-private fields.
func session(t testingT, e *Engine, key string) *Session {
	t.Helper()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)
	s, ok := e.store.Get(key)
	require.True(t, ok, "session %s not in store", key)
	return s
}

// fire runs the session timer for the current generation.
func fire(t testingT, e *Engine, key string) {
	t.Helper()
	e.expire(key, session(t, e, key).gen)
}

// think runs the scheduled AI move for the current generation.
func think(t testingT, e *Engine, key string) {
	t.Helper()
	e.runAI(key, session(t, e, key).gen)
}

// startDuel creates a lobby hosted by the first player, seats the others and starts it.
func startDuel(t testingT, e *Engine, gameType string, bet int64, ids ...string) string {
	t.Helper()
	ctx := context.Background()
	snap, err := e.CreateLobby(ctx, LobbyRequest{Host: human(ids[0]), Bet: bet, GameType: gameType, Origin: "test"})
	require.NoError(t, err)
	for _, id := range ids[1:] {
		_, err := e.Join(ctx, snap.Key, human(id))
		require.NoError(t, err)
	}
	started, err := e.Start(ctx, snap.Key, ids[0])
	require.NoError(t, err)
	require.Equal(t, StatusPlaying, started.Status)
	return snap.Key
}
