package service

import (
	"context"
	"time"

	"duel-bot/internal/model"
)

// RankingService handles the daily duel leaderboards.
type RankingService struct {
	txs      TransactionStore
	timezone *time.Location
	now      func() time.Time
}

// NewRankingService creates a new RankingService instance. Days are cut in the given timezone.
func NewRankingService(txs TransactionStore, timezone *time.Location) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		txs:      txs,
		timezone: timezone,
		now:      time.Now,
	}
}

func (s *RankingService) today() time.Time {
	return s.now().In(s.timezone)
}

// GetDailyWinners retrieves today's biggest duel winners.
func (s *RankingService) GetDailyWinners(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.txs.GetDailyWinners(ctx, s.today(), limit)
}

// GetDailyLosers retrieves today's biggest duel losers.
func (s *RankingService) GetDailyLosers(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.txs.GetDailyLosers(ctx, s.today(), limit)
}

// GetUserDailyProfit retrieves a user's duel net for today.
func (s *RankingService) GetUserDailyProfit(ctx context.Context, userID string) (int64, error) {
	return s.txs.GetUserDailyProfit(ctx, userID, s.today())
}
