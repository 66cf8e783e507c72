package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// RandomID is the game type of a lobby whose game is drawn at start.
const RandomID = "random"

// ErrUnknownGame is returned when a type id is not in the catalog.
var ErrUnknownGame = errors.New("unknown game type")

// Registry is the Game Catalog: a thread-safe map from type id to rules.
type Registry struct {
	games map[string]Rules
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Rules),
	}
}

// Register adds a game type to the catalog.
func (r *Registry) Register(g Rules) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	info := g.Info()
	if info.ID == "" || info.ID == RandomID {
		return fmt.Errorf("invalid game id %q", info.ID)
	}
	if info.MinPlayers < 1 || info.MaxPlayers < info.MinPlayers {
		return fmt.Errorf("game %q has invalid player range [%d,%d]", info.ID, info.MinPlayers, info.MaxPlayers)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[info.ID]; exists {
		return fmt.Errorf("game %q already registered", info.ID)
	}
	r.games[info.ID] = g
	return nil
}

// Get retrieves a game by its type id.
func (r *Registry) Get(id string) (Rules, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, id)
	}
	return g, nil
}

// List returns all registered games ordered by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.games))
	for _, g := range r.games {
		infos = append(infos, g.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// MaxPlayers returns the largest player count any registered game supports.
// It is the capacity of a lobby whose game is still random.
func (r *Registry) MaxPlayers() int {
	maxPlayers := 0
	for _, info := range r.List() {
		maxPlayers = max(maxPlayers, info.MaxPlayers)
	}
	return maxPlayers
}

// Compatible returns the games that accept n players, ordered by id.
// With ai set, only games with an AI opponent are returned.
func (r *Registry) Compatible(n int, ai bool) []Info {
	var out []Info
	for _, info := range r.List() {
		if info.Supports(n) && (!ai || info.AIReady) {
			out = append(out, info)
		}
	}
	return out
}

// Random draws uniformly among the games that accept n players.
// The boolean is false when no game fits.
func (r *Registry) Random(n int, ai bool, rng *rand.Rand) (Rules, bool) {
	candidates := r.Compatible(n, ai)
	if len(candidates) == 0 {
		return nil, false
	}
	g, err := r.Get(candidates[rng.Intn(len(candidates))].ID)
	if err != nil {
		return nil, false
	}
	return g, true
}
