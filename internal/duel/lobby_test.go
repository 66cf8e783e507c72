package duel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"duel-bot/internal/game"
)

func TestCreateLobbyValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     LobbyRequest
		wantErr error
	}{
		{"negative bet", LobbyRequest{Host: human("a"), Bet: -5}, ErrInvalidBet},
		{"bet below minimum", LobbyRequest{Host: human("a"), Bet: 50}, ErrBetTooLow},
		{"unknown game", LobbyRequest{Host: human("a"), GameType: "chess"}, ErrUnknownGame},
		{"ai with bet", LobbyRequest{Host: human("a"), Bet: 100, Opponent: game.Easy}, ErrAIBetNotAllowed},
		{"ai on game without ai", LobbyRequest{Host: human("a"), GameType: "race", Opponent: game.Hard}, ErrGameNotAIReady},
		{"ai on group-only game", LobbyRequest{Host: human("a"), GameType: "brawl", Opponent: game.Hard}, ErrPlayerCountUnsupported},
		{"host cannot cover bet", LobbyRequest{Host: human("poor"), Bet: 500}, ErrInsufficientFunds},
		{"friendly random", LobbyRequest{Host: human("a")}, nil},
		{"wagered fixed", LobbyRequest{Host: human("a"), Bet: 100, GameType: "race"}, nil},
		{"ai random", LobbyRequest{Host: human("a"), Opponent: game.Medium}, nil},
	}

	ledger := newLedger(map[string]int64{"a": 1000, "poor": 100})
	e := newTestEngine(t, ledger, race{id: "race", min: 2, max: 2}, race{id: "brawl", min: 3, max: 4, ai: true}, pick{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := e.Count()
			snap, err := e.CreateLobby(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, e.Count())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusLobby, snap.Status)
			assert.Equal(t, "a", snap.HostID)
			assert.Equal(t, before+1, e.Count())
		})
	}
	assert.Equal(t, int64(1000), ledger.get("a"), "creating a lobby charges nothing")
}

func TestCreateLobbyWithAISeatsOpponent(t *testing.T) {
	e := newTestEngine(t, newLedger(map[string]int64{"a": 1000}), pick{})

	snap, err := e.CreateLobby(context.Background(), LobbyRequest{Host: human("a"), GameType: "pick", Opponent: game.Hard})
	require.NoError(t, err)
	require.Len(t, snap.Players, 2)
	assert.Equal(t, "ai:hard", snap.Players[1].ID)
	assert.True(t, snap.Players[1].IsAI())

	_, err = e.Join(context.Background(), snap.Key, human("b"))
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(map[string]int64{"a": 1000, "b": 1000, "c": 1000, "poor": 10})
	e := newTestEngine(t, ledger, race{id: "race", min: 2, max: 2})

	lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), Bet: 100, GameType: "race"})
	require.NoError(t, err)

	_, err = e.Join(ctx, "missing", human("b"))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = e.Join(ctx, lobby.Key, human("a"))
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	_, err = e.Join(ctx, lobby.Key, human("poor"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	snap, err := e.Join(ctx, lobby.Key, human("b"))
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)

	_, err = e.Join(ctx, lobby.Key, human("c"))
	assert.ErrorIs(t, err, ErrLobbyFull)

	_, err = e.Start(ctx, lobby.Key, "a")
	require.NoError(t, err)
	_, err = e.Join(ctx, lobby.Key, human("c"))
	assert.ErrorIs(t, err, ErrNotInLobby)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newLedger(map[string]int64{"a": 1000, "b": 1000, "c": 1000}), race{id: "race", min: 2, max: 4})

	lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), GameType: "race"})
	require.NoError(t, err)
	_, err = e.Join(ctx, lobby.Key, human("b"))
	require.NoError(t, err)
	_, err = e.Join(ctx, lobby.Key, human("c"))
	require.NoError(t, err)

	t.Run("absent player is rejected without change", func(t *testing.T) {
		_, err := e.Leave(ctx, lobby.Key, "stranger")
		assert.ErrorIs(t, err, ErrNotAPlayer)
		snap, err := e.Get(lobby.Key)
		require.NoError(t, err)
		assert.Len(t, snap.Players, 3)
	})

	t.Run("host leaving passes host on", func(t *testing.T) {
		snap, err := e.Leave(ctx, lobby.Key, "a")
		require.NoError(t, err)
		assert.Equal(t, "b", snap.HostID)
		assert.Len(t, snap.Players, 2)
	})

	t.Run("last player leaving deletes the lobby", func(t *testing.T) {
		_, err := e.Leave(ctx, lobby.Key, "b")
		require.NoError(t, err)
		snap, err := e.Leave(ctx, lobby.Key, "c")
		require.NoError(t, err)
		assert.True(t, snap.Deleted)

		_, err = e.Get(lobby.Key)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newLedger(map[string]int64{"a": 1000, "b": 1000}), race{id: "race", min: 2, max: 2, ai: true})

	lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), GameType: "race"})
	require.NoError(t, err)
	_, err = e.Join(ctx, lobby.Key, human("b"))
	require.NoError(t, err)

	_, err = e.Cancel(ctx, lobby.Key, "b")
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = e.Cancel(ctx, lobby.Key, "a")
	assert.ErrorIs(t, err, ErrLobbyNotEmpty)

	_, err = e.Leave(ctx, lobby.Key, "b")
	require.NoError(t, err)
	snap, err := e.Cancel(ctx, lobby.Key, "a")
	require.NoError(t, err)
	assert.True(t, snap.Deleted)
	assert.Zero(t, e.Count())

	// An AI opponent does not count as another player.
	vsAI, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), GameType: "race", Opponent: game.Easy})
	require.NoError(t, err)
	_, err = e.Cancel(ctx, vsAI.Key, "a")
	assert.NoError(t, err)
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(map[string]int64{"a": 1000, "b": 1000, "c": 1000})
	e := newTestEngine(t, ledger, race{id: "duo", min: 2, max: 2}, race{id: "trio", min: 3, max: 3})

	lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), Bet: 100, GameType: "trio"})
	require.NoError(t, err)

	_, err = e.Start(ctx, lobby.Key, "a")
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = e.Join(ctx, lobby.Key, human("b"))
	require.NoError(t, err)
	_, err = e.Start(ctx, lobby.Key, "b")
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = e.Start(ctx, lobby.Key, "a")
	assert.ErrorIs(t, err, ErrPlayerCountUnsupported)

	assert.Equal(t, int64(1000), ledger.get("a"), "rejected start charges nothing")
	assert.Equal(t, int64(1000), ledger.get("b"))
}

func TestStartRandomResolvesCompatibleGame(t *testing.T) {
	e := newTestEngine(t, newLedger(map[string]int64{"a": 1000, "b": 1000, "c": 1000}),
		race{id: "duo", min: 2, max: 2}, race{id: "trio", min: 3, max: 3})

	key := startDuel(t, e, game.RandomID, 0, "a", "b", "c")
	snap, err := e.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "trio", snap.GameType)
}

func TestStartRandomWithoutCompatibleGame(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newLedger(map[string]int64{"a": 1000, "b": 1000, "c": 1000}),
		race{id: "duo", min: 2, max: 2}, race{id: "quad", min: 4, max: 4})

	lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a")})
	require.NoError(t, err)
	for _, id := range []string{"b", "c"} {
		_, err := e.Join(ctx, lobby.Key, human(id))
		require.NoError(t, err)
	}
	_, err = e.Start(ctx, lobby.Key, "a")
	assert.ErrorIs(t, err, ErrNoCompatibleGame)
}

func TestStartShortfallRefundsEveryone(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(map[string]int64{"a": 1000, "b": 1000, "c": 1000})
	e := newTestEngine(t, ledger, race{id: "race", min: 2, max: 4})

	lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), Bet: 500, GameType: "race"})
	require.NoError(t, err)
	for _, id := range []string{"b", "c"} {
		_, err := e.Join(ctx, lobby.Key, human(id))
		require.NoError(t, err)
	}

	// b and c spend their money between joining and the start.
	_, err = ledger.Adjust(ctx, "b", -800, "test", "")
	require.NoError(t, err)
	_, err = ledger.Adjust(ctx, "c", -900, "test", "")
	require.NoError(t, err)

	_, err = e.Start(ctx, lobby.Key, "a")
	var stakeErr *StakeError
	require.ErrorAs(t, err, &stakeErr)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	require.Len(t, stakeErr.Short, 2)
	assert.Equal(t, "b", stakeErr.Short[0].PlayerID)
	assert.Equal(t, int64(200), stakeErr.Short[0].Balance)
	assert.Equal(t, "c", stakeErr.Short[1].PlayerID)

	assert.Equal(t, int64(1000), ledger.get("a"), "host stake was returned")
	snap, err := e.Get(lobby.Key)
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, snap.Status)
	assert.Contains(t, UserMessage(stakeErr), "b (200)")
}

func TestCountdownThenPlaying(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newLedger(map[string]int64{"a": 1000, "b": 1000}), race{id: "race", min: 2, max: 2})
	e.cfg.Countdown = time.Hour

	lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), GameType: "race"})
	require.NoError(t, err)
	_, err = e.Join(ctx, lobby.Key, human("b"))
	require.NoError(t, err)

	snap, err := e.Start(ctx, lobby.Key, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusCountdown, snap.Status)

	_, err = e.Act(ctx, lobby.Key, PlayerAction{ActorID: "a", Move: game.Move{Kind: "win"}})
	assert.ErrorIs(t, err, ErrNotPlaying)

	rec := &recorder{}
	e.RegisterPresenter("", rec)
	fire(t, e, lobby.Key)
	require.NotNil(t, rec.last())
	assert.Equal(t, StatusPlaying, rec.last().Status)
}

func TestLobbyExpiry(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newLedger(map[string]int64{"a": 1000, "b": 1000}), race{id: "race", min: 2, max: 2})

	alone, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), GameType: "race"})
	require.NoError(t, err)
	fire(t, e, alone.Key)
	_, err = e.Get(alone.Key)
	assert.ErrorIs(t, err, ErrSessionNotFound, "a lobby that never reached two players is dropped")

	full, err := e.CreateLobby(ctx, LobbyRequest{Host: human("a"), GameType: "race"})
	require.NoError(t, err)
	_, err = e.Join(ctx, full.Key, human("b"))
	require.NoError(t, err)
	fire(t, e, full.Key)
	_, err = e.Get(full.Key)
	assert.NoError(t, err, "a ready lobby waits for the host")
}

// TestLobbyNeverExceedsCapacity joins random players and checks the capacity bound
// and that start needs two players.
func TestLobbyNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxPlayers := rapid.IntRange(2, 4).Draw(t, "max")
		balances := map[string]int64{}
		for _, id := range []string{"p0", "p1", "p2", "p3", "p4", "p5"} {
			balances[id] = 1000
		}
		e := newTestEngine(t, newLedger(balances), race{id: "race", min: 2, max: maxPlayers})
		ctx := context.Background()

		lobby, err := e.CreateLobby(ctx, LobbyRequest{Host: human("p0"), GameType: "race"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.Start(ctx, lobby.Key, "p0"); !errors.Is(err, ErrNotEnoughPlayers) {
			t.Fatalf("start with one player: %v", err)
		}

		joins := rapid.SliceOfN(rapid.SampledFrom([]string{"p1", "p2", "p3", "p4", "p5"}), 0, 12).Draw(t, "joins")
		for _, id := range joins {
			_, err := e.Join(ctx, lobby.Key, human(id))
			if err != nil && !errors.Is(err, ErrLobbyFull) && !errors.Is(err, ErrAlreadyJoined) {
				t.Fatalf("unexpected join error: %v", err)
			}
			snap, _ := e.Get(lobby.Key)
			if len(snap.Players) > maxPlayers {
				t.Fatalf("lobby holds %d players, max %d", len(snap.Players), maxPlayers)
			}
		}
	})
}
