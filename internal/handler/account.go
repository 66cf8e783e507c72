// Package handler provides the Telegram command and callback handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/model"
	"duel-bot/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
	rankingService *service.RankingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, rankingService *service.RankingService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		rankingService: rankingService,
	}
}

// HandleStart handles the /start command.
// Creates the account with the starting balance on first use.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, created, err := h.accountService.EnsureUser(ctx, UserID(sender), DisplayName(sender))
	if err != nil {
		return c.Reply("❌ Could not create your account, please try again later")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome %s!\n\n"+
				"Your account is ready with %d coins.\n\n"+
				"Commands:\n"+
				"/duel [bet] [game] [easy|medium|hard] - open a duel lobby\n"+
				"/games - list the duel games\n"+
				"/balance - show your balance\n"+
				"/daily - claim the daily reward\n"+
				"/give <amount> - reply to someone to gift coins\n"+
				"/top - richest players\n"+
				"/honor - friendly duel champions\n"+
				"/daily_top - today's duel winners and losers",
			user.Username, user.Balance,
		))
	}

	return c.Reply(fmt.Sprintf("👋 Welcome back %s!\n\nBalance: %d coins", user.Username, user.Balance))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	user, err := ensureSender(context.Background(), h.accountService, c)
	if err != nil {
		return c.Reply("❌ Could not read your balance, please try again later")
	}
	return c.Reply(fmt.Sprintf("💰 Balance: %d coins", user.Balance))
}

// HandleMy handles the /my command.
// Displays balance, honor and today's duel result.
func (h *AccountHandler) HandleMy(c tele.Context) error {
	ctx := context.Background()
	user, err := ensureSender(ctx, h.accountService, c)
	if err != nil {
		return c.Reply("❌ Could not load your account, please try again later")
	}

	dailyProfit, _ := h.rankingService.GetUserDailyProfit(ctx, user.UserID)
	profitStr := fmt.Sprintf("%d", dailyProfit)
	if dailyProfit > 0 {
		profitStr = "+" + profitStr
	}

	return c.Reply(fmt.Sprintf(
		"📊 Account\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👤 %s\n"+
			"💰 Balance: %d\n"+
			"🎖️ Honor: %d\n"+
			"📈 Duels today: %s\n"+
			"━━━━━━━━━━━━━━━",
		user.Username, user.Balance, user.Honor, profitStr,
	))
}

// HandleDaily handles the /daily command.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	ctx := context.Background()
	user, err := ensureSender(ctx, h.accountService, c)
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	balance, remaining, err := h.accountService.ClaimDaily(ctx, user.UserID)
	if errors.Is(err, service.ErrDailyAlreadyClaimed) {
		return c.Reply(fmt.Sprintf("⏰ Already claimed, come back in %s", remaining.Round(time.Minute)))
	}
	if err != nil {
		return c.Reply("❌ Could not claim the daily reward, please try again later")
	}

	return c.Reply(fmt.Sprintf("✅ +%d coins! Balance: %d", h.accountService.DailyReward(), balance))
}

// HandleTop handles the /top command.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	users, err := h.accountService.GetTopUsers(context.Background(), 10)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, please try again later")
	}
	return c.Reply(leaderboard("🏆 Richest TOP 10", users, func(u *model.User) int64 { return u.Balance }))
}

// HandleHonor handles the /honor command.
func (h *AccountHandler) HandleHonor(c tele.Context) error {
	users, err := h.accountService.GetTopHonor(context.Background(), 10)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, please try again later")
	}
	return c.Reply(leaderboard("🎖️ Honor TOP 10", users, func(u *model.User) int64 { return u.Honor }))
}

func leaderboard(title string, users []*model.User, score func(*model.User) int64) string {
	if len(users) == 0 {
		return "📊 No rankings yet"
	}

	var sb strings.Builder
	sb.WriteString(title + "\n━━━━━━━━━━━━━━━\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, user := range users {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s: %d\n", rank, shownName(user), score(user))
	}
	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}
