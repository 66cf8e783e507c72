// Package duel is the session-based turn game engine: lobbies, turn dispatch, timeouts,
// AI opponents and settlement of wagered duels. Sessions live in memory only.
package duel

import (
	"math/rand"
	"sync"
	"time"

	"duel-bot/internal/game"
)

// Status is the lifecycle phase of a session. It only moves forward,
// except that an accepted rematch restarts the countdown.
type Status int

const (
	StatusLobby Status = iota
	StatusCountdown
	StatusPlaying
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusLobby:
		return "lobby"
	case StatusCountdown:
		return "countdown"
	case StatusPlaying:
		return "playing"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// AIPrefix starts the id of every AI player.
const AIPrefix = "ai:"

// Player is a seat holder. AI is empty for humans.
type Player struct {
	ID   string
	Name string
	AI   game.Difficulty
}

// IsAI reports whether the player is a synthetic opponent.
func (p Player) IsAI() bool {
	return p.AI != ""
}

// AIPlayer returns the synthetic opponent for a difficulty.
func AIPlayer(d game.Difficulty) Player {
	names := map[game.Difficulty]string{game.Easy: "Rookie", game.Medium: "Veteran", game.Hard: "Champion"}
	return Player{ID: AIPrefix + string(d), Name: "🤖 " + names[d] + " AI", AI: d}
}

// Outcome is how a game ended.
type Outcome struct {
	Draw     bool
	WinnerID string
	Reason   string
	Forfeit  bool // decided by a timeout
	Aborted  bool // nobody moved; stakes returned and the session dropped
}

// Settlement records the currency moved when a game ended.
type Settlement struct {
	Pot     int64
	Tax     int64
	Payout  int64
	Refunds map[string]int64
	Honor   bool // the winner earned honor
	Failed  bool // a ledger call failed; see the logs
}

// Session is one game from lobby to rematch. Fields are only touched while the
// engine holds the session key lock.
type Session struct {
	Key      string
	Origin   string
	Channel  string
	Status   Status
	GameType string // catalog id, or game.RandomID until start
	Players  []Player
	HostID   string
	Bet      int64
	Round    int

	Rules      game.Rules
	State      game.State
	Outcome    *Outcome
	Settlement *Settlement
	Rematch    map[string]bool

	CreatedAt time.Time
	UpdatedAt time.Time
	Deadline  time.Time // when the armed timer fires

	gen     uint64
	aiGen   uint64
	timer   *time.Timer
	aiTimer *time.Timer
	stakes  map[string]int64
	rng     *rand.Rand
}

// Seat returns the join-order index of a player, or -1.
func (s *Session) Seat(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// Player returns the player with the given id.
func (s *Session) Player(playerID string) (Player, bool) {
	if i := s.Seat(playerID); i >= 0 {
		return s.Players[i], true
	}
	return Player{}, false
}

// Humans returns the number of non-AI players.
func (s *Session) Humans() int {
	n := 0
	for _, p := range s.Players {
		if !p.IsAI() {
			n++
		}
	}
	return n
}

// HasAI reports whether an AI player is seated.
func (s *Session) HasAI() bool {
	return s.Humans() < len(s.Players)
}

func (s *Session) names() []string {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Name
	}
	return names
}

// touch marks an accepted mutation. Any timer armed for an older generation becomes stale.
func (s *Session) touch(now time.Time) {
	s.gen++
	s.UpdatedAt = now
}

func (s *Session) stopTimers() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.aiTimer != nil {
		s.aiTimer.Stop()
		s.aiTimer = nil
	}
}

// Snapshot is a copy of a session taken under its lock, plus its rendered view.
type Snapshot struct {
	Key        string
	Origin     string
	Channel    string
	Status     Status
	GameType   string
	Players    []Player
	HostID     string
	Bet        int64
	Round      int
	Outcome    *Outcome
	Settlement *Settlement
	// Deleted is set when the session left the store with this change.
	Deleted bool
	View    View
}

// Store is the in-memory session registry.
type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Put adds or replaces a session.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.Key] = s
}

// Get returns the session with the given key.
func (st *Store) Get(key string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[key]
	return s, ok
}

// Delete removes a session.
func (st *Store) Delete(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, key)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Keys returns the keys of all live sessions.
func (st *Store) Keys() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	keys := make([]string, 0, len(st.sessions))
	for k := range st.sessions {
		keys = append(keys, k)
	}
	return keys
}
