package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/duel"
	"duel-bot/internal/game"
	"duel-bot/internal/model"
)

func TestUserIdentity(t *testing.T) {
	u := &tele.User{ID: 42, FirstName: "Ann", LastName: "Lee"}
	assert.Equal(t, "telegram:42", UserID(u))
	assert.Equal(t, "Ann Lee", DisplayName(u))

	u.Username = "ann"
	assert.Equal(t, "@ann", DisplayName(u))

	assert.Equal(t, "User7", DisplayName(&tele.User{ID: 7}))
	assert.Equal(t, "-100123", ChatID(&tele.Chat{ID: -100123}))
}

func TestParseUserArg(t *testing.T) {
	tests := []struct {
		arg  string
		want string
		ok   bool
	}{
		{"123", "telegram:123", true},
		{"discord:456", "discord:456", true},
		{"telegram:9", "telegram:9", true},
		{"0", "", false},
		{"-5", "", false},
		{"bob", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, ok := ParseUserArg(tt.arg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuelArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    DuelArgs
		wantErr bool
	}{
		{"empty", nil, DuelArgs{}, false},
		{"bet only", []string{"500"}, DuelArgs{Bet: 500}, false},
		{"bet and game", []string{"500", "RPS"}, DuelArgs{Bet: 500, GameType: "rps"}, false},
		{"any order", []string{"tictactoe", "hard"}, DuelArgs{GameType: "tictactoe", AI: game.Hard}, false},
		{"negative bet reaches engine", []string{"-5"}, DuelArgs{Bet: -5}, false},
		{"two bets", []string{"1", "2"}, DuelArgs{}, true},
		{"two games", []string{"rps", "fight"}, DuelArgs{}, true},
		{"signed word", []string{"-x"}, DuelArgs{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuelArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkup(t *testing.T) {
	view := duel.View{Buttons: [][]duel.Button{
		{{Label: "Join", ID: duel.CallbackID("k", duel.OpJoin)}, {Label: "Leave", ID: duel.CallbackID("k", duel.OpLeave)}},
		{},
		{{Label: "X", ID: "duel:k:move:mark:4", Disabled: true}},
	}}

	m := Markup(view)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "Join", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, "duel:k:join", m.InlineKeyboard[0][0].Data)
	assert.Empty(t, m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "duel:k:move:mark:4", m.InlineKeyboard[1][0].Data)

	assert.Empty(t, Markup(duel.View{}).InlineKeyboard)
}

func TestFormatCatalog(t *testing.T) {
	text := FormatCatalog([]game.Info{
		{ID: "rps", Name: "Rock Paper Scissors", Emoji: "✊", MinPlayers: 2, MaxPlayers: 2, AIReady: true},
		{ID: "roulette", Name: "Russian Roulette", Emoji: "🔫", MinPlayers: 2, MaxPlayers: 6},
	})
	assert.Contains(t, text, "✊ Rock Paper Scissors (rps) · 2 players · 🤖")
	assert.Contains(t, text, "🔫 Russian Roulette (roulette) · 2-6 players\n")
}

func TestFormatDailyTop(t *testing.T) {
	text := FormatDailyTop(
		[]*model.DailyRank{{UserID: "telegram:1", Username: "@ann", NetProfit: 900}},
		nil,
	)
	assert.Contains(t, text, "🥇 @ann: +900")
	assert.Contains(t, text, "No data yet")
}

func TestIsUserError(t *testing.T) {
	assert.True(t, isUserError(duel.ErrNotYourTurn))
	assert.True(t, isUserError(&duel.StakeError{Bet: 10}))
	assert.True(t, isUserError(game.Illegal("cell taken")))
	assert.False(t, isUserError(assert.AnError))
}
