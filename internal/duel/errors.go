package duel

import (
	"errors"
	"fmt"
	"strings"

	"duel-bot/internal/game"
	"duel-bot/internal/model"
	"duel-bot/internal/pkg/lock"
)

// Validation errors. None of them changes a session.
var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrNotInLobby             = errors.New("session is not in the lobby")
	ErrLobbyFull              = errors.New("lobby is full")
	ErrAlreadyJoined          = errors.New("player already joined")
	ErrNotAPlayer             = errors.New("not a player of this session")
	ErrNotHost                = errors.New("only the host can do this")
	ErrLobbyNotEmpty          = errors.New("lobby still has other players")
	ErrNotEnoughPlayers       = errors.New("at least two players are needed")
	ErrNoCompatibleGame       = errors.New("no game supports this player count")
	ErrPlayerCountUnsupported = errors.New("game does not support this player count")
	ErrInvalidBet             = errors.New("bet must not be negative")
	ErrBetTooLow              = errors.New("bet below the minimum")
	ErrAIBetNotAllowed        = errors.New("games against the AI cannot be wagered")
	ErrGameNotAIReady         = errors.New("game has no AI opponent")
	ErrNotPlaying             = errors.New("game is not in progress")
	ErrNotYourTurn            = errors.New("not your turn")
	ErrAlreadyActed           = errors.New("already acted this round")
	ErrNotEnded               = errors.New("game has not ended")
	ErrBadCallback            = errors.New("malformed duel callback")
)

// Errors shared with the collaborators, re-exported so frontends need only this package.
var (
	ErrBusy              = lock.ErrBusy
	ErrInsufficientFunds = model.ErrInsufficientFunds
	ErrUnknownGame       = game.ErrUnknownGame
)

// Shortfall is one player who could not cover the stake.
type Shortfall struct {
	PlayerID string
	Name     string
	Balance  int64
}

// StakeError is returned when a start or rematch could not charge every player.
// Every stake already taken has been refunded when it is returned.
type StakeError struct {
	Bet   int64
	Short []Shortfall
}

func (e *StakeError) Error() string {
	names := make([]string, len(e.Short))
	for i, s := range e.Short {
		names[i] = s.Name
	}
	return fmt.Sprintf("cannot cover the %d stake: %s", e.Bet, strings.Join(names, ", "))
}

// Unwrap makes errors.Is(err, ErrInsufficientFunds) hold.
func (e *StakeError) Unwrap() error {
	return ErrInsufficientFunds
}

var userMessages = []struct {
	err error
	msg string
}{
	{ErrBusy, "⏳ Still processing, try again"},
	{ErrSessionNotFound, "❌ This game no longer exists"},
	{ErrNotInLobby, "❌ The lobby is closed"},
	{ErrLobbyFull, "❌ The lobby is full"},
	{ErrAlreadyJoined, "❌ You already joined"},
	{ErrNotAPlayer, "❌ You are not playing in this game"},
	{ErrNotHost, "❌ Only the host can do that"},
	{ErrLobbyNotEmpty, "❌ Other players are waiting, you cannot cancel now"},
	{ErrNotEnoughPlayers, "❌ At least two players are needed to start"},
	{ErrNoCompatibleGame, "❌ No game fits this number of players"},
	{ErrPlayerCountUnsupported, "❌ This game does not support this number of players"},
	{ErrInvalidBet, "❌ The bet cannot be negative"},
	{ErrAIBetNotAllowed, "❌ Games against the AI are friendly, use a bet of 0"},
	{ErrGameNotAIReady, "❌ This game has no AI opponent"},
	{ErrUnknownGame, "❌ Unknown game"},
	{ErrNotPlaying, "❌ The game is not in progress"},
	{ErrNotYourTurn, "⏳ It is not your turn"},
	{ErrAlreadyActed, "⏳ You already chose this round"},
	{ErrNotEnded, "❌ The game is not over yet"},
	{ErrInsufficientFunds, "❌ Insufficient balance"},
	{ErrBadCallback, "❌ Unknown button"},
}

// UserMessage maps an engine error to the text shown privately to the acting player.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var stakeErr *StakeError
	if errors.As(err, &stakeErr) {
		names := make([]string, len(stakeErr.Short))
		for i, s := range stakeErr.Short {
			names[i] = fmt.Sprintf("%s (%d)", s.Name, s.Balance)
		}
		return fmt.Sprintf("❌ Cannot start: %s cannot cover the %d stake. Nobody was charged.",
			strings.Join(names, ", "), stakeErr.Bet)
	}
	if errors.Is(err, ErrBetTooLow) {
		return "❌ " + capitalize(err.Error())
	}
	if errors.Is(err, game.ErrIllegalMove) {
		reason := strings.TrimPrefix(err.Error(), game.ErrIllegalMove.Error()+": ")
		return "❌ Illegal move: " + reason
	}

	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "❌ Something went wrong, please try again later"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
