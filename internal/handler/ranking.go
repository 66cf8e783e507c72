package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/model"
	"duel-bot/internal/service"
)

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

// HandleDailyTop handles the /daily_top command.
// Displays today's biggest duel winners and losers.
func (h *RankingHandler) HandleDailyTop(c tele.Context) error {
	ctx := context.Background()

	winners, err := h.rankingService.GetDailyWinners(ctx, 10)
	if err != nil {
		return c.Reply("❌ Could not load today's rankings, please try again later")
	}
	losers, err := h.rankingService.GetDailyLosers(ctx, 10)
	if err != nil {
		return c.Reply("❌ Could not load today's rankings, please try again later")
	}

	return c.Reply(FormatDailyTop(winners, losers))
}

// FormatDailyTop renders the daily duel rankings.
func FormatDailyTop(winners, losers []*model.DailyRank) string {
	var sb strings.Builder
	sb.WriteString("📊 Today's duels\n━━━━━━━━━━━━━━━\n")

	sb.WriteString("🏆 Winners TOP 10\n")
	if len(winners) == 0 {
		sb.WriteString("No data yet\n")
	}
	medals := []string{"🥇", "🥈", "🥉"}
	for i, w := range winners {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s: +%d\n", rank, rankName(w), w.NetProfit)
	}

	sb.WriteString("\n━━━━━━━━━━━━━━━\n😢 Losers TOP 10\n")
	if len(losers) == 0 {
		sb.WriteString("No data yet\n")
	}
	for i, l := range losers {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, rankName(l), l.NetProfit)
	}
	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}

func rankName(r *model.DailyRank) string {
	if r.Username != "" {
		return r.Username
	}
	return r.UserID
}
