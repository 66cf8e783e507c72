// Package service provides the account ledger and ranking logic on top of the repositories.
package service

import (
	"context"
	"time"

	"duel-bot/internal/model"
)

// UserStore is the subset of repository.UserRepository the services use.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*model.User, error)
	GetOrCreate(ctx context.Context, userID, username string) (*model.User, bool, error)
	AdjustBalance(ctx context.Context, userID string, delta int64) (*model.User, error)
	AddHonor(ctx context.Context, userID string, n int64) (*model.User, error)
	UpdateUsername(ctx context.Context, userID, username string) error
	UpdateDailyClaim(ctx context.Context, userID string, claimTime int64) (*model.User, error)
	CanClaimDaily(ctx context.Context, userID string, cooldownHours int) (bool, time.Duration, error)
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
	GetTopHonor(ctx context.Context, limit int) ([]*model.User, error)
}

// TransactionStore is the subset of repository.TransactionRepository the services use.
type TransactionStore interface {
	Create(ctx context.Context, userID string, amount int64, txType string, description *string) (*model.Transaction, error)
	GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error)
	GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error)
	GetUserDailyProfit(ctx context.Context, userID string, date time.Time) (int64, error)
}

// VaultStore is the house vault that collects duel tax.
type VaultStore interface {
	Add(ctx context.Context, amount int64) (int64, error)
	Balance(ctx context.Context) (int64, error)
}
