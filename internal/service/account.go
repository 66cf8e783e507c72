package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"duel-bot/internal/model"
	"duel-bot/internal/pkg/lock"
)

// Common errors for account operations.
var (
	ErrDailyAlreadyClaimed = errors.New("daily reward already claimed")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
)

// AccountService handles user accounts and is the currency ledger of the duel engine.
type AccountService struct {
	users       UserStore
	txs         TransactionStore
	vault       VaultStore
	userLock    *lock.KeyedLock
	dailyReward int64
	cooldownHrs int
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	users UserStore,
	txs TransactionStore,
	vault VaultStore,
	userLock *lock.KeyedLock,
	dailyReward int64,
	cooldownHours int,
) *AccountService {
	return &AccountService{
		users:       users,
		txs:         txs,
		vault:       vault,
		userLock:    userLock,
		dailyReward: dailyReward,
		cooldownHrs: cooldownHours,
	}
}

// EnsureUser ensures a user exists, creating one if necessary, and refreshes a changed display name.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, userID, username string) (*model.User, bool, error) {
	user, created, err := s.users.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if created {
		log.Info().Str("user_id", userID).Str("username", username).Msg("New account created")
		s.record(ctx, userID, user.Balance, model.TxTypeInitial, "starting balance")
	} else if username != "" && user.Username != username {
		if err := s.users.UpdateUsername(ctx, userID, username); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to refresh username")
		}
		user.Username = username
	}

	return user, created, nil
}

// GetUser retrieves a user by id.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Balance returns a user's current balance.
func (s *AccountService) Balance(ctx context.Context, userID string) (int64, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Balance, nil
}

// Adjust applies a signed delta to a balance and records it in the transaction log.
// A debit larger than the balance fails with model.ErrInsufficientFunds and changes nothing.
func (s *AccountService) Adjust(ctx context.Context, userID string, delta int64, txType, description string) (int64, error) {
	user, err := s.users.AdjustBalance(ctx, userID, delta)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientFunds) || errors.Is(err, model.ErrUserNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}

	s.record(ctx, userID, delta, txType, description)
	return user.Balance, nil
}

// AddToVault credits the house vault with collected tax.
func (s *AccountService) AddToVault(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return nil
	}
	balance, err := s.vault.Add(ctx, amount)
	if err != nil {
		return fmt.Errorf("failed to credit vault: %w", err)
	}
	log.Debug().Int64("amount", amount).Int64("vault_balance", balance).Msg("Vault credited")
	return nil
}

// VaultBalance returns the amount of tax collected so far.
func (s *AccountService) VaultBalance(ctx context.Context) (int64, error) {
	return s.vault.Balance(ctx)
}

// AddHonor increments the honor counter of a user.
func (s *AccountService) AddHonor(ctx context.Context, userID string, n int64) error {
	if _, err := s.users.AddHonor(ctx, userID, n); err != nil {
		return fmt.Errorf("failed to add honor: %w", err)
	}
	return nil
}

// ClaimDaily grants the daily reward when the cooldown has passed.
// On cooldown it returns ErrDailyAlreadyClaimed together with the remaining wait.
func (s *AccountService) ClaimDaily(ctx context.Context, userID string) (int64, time.Duration, error) {
	var balance int64
	var remaining time.Duration

	err := s.userLock.WithLock(userID, func() error {
		canClaim, left, err := s.users.CanClaimDaily(ctx, userID, s.cooldownHrs)
		if err != nil {
			return fmt.Errorf("failed to check daily claim eligibility: %w", err)
		}
		if !canClaim {
			remaining = left
			return ErrDailyAlreadyClaimed
		}

		if _, err := s.users.UpdateDailyClaim(ctx, userID, time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to update daily claim time: %w", err)
		}

		balance, err = s.Adjust(ctx, userID, s.dailyReward, model.TxTypeDaily, "daily reward")
		return err
	})

	return balance, remaining, err
}

// DailyReward returns the configured daily reward amount.
func (s *AccountService) DailyReward() int64 {
	return s.dailyReward
}

// AdminAdd credits (or with a negative amount debits) a user on behalf of an admin.
func (s *AccountService) AdminAdd(ctx context.Context, adminID, userID string, amount int64) (int64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.Adjust(ctx, userID, amount, model.TxTypeAdminAdd, "admin adjustment by "+adminID)
	if err != nil {
		return 0, err
	}
	log.Info().Str("admin_id", adminID).Str("user_id", userID).Int64("amount", amount).Msg("Admin adjusted balance")
	return balance, nil
}

// GetTopUsers retrieves the top users by balance.
func (s *AccountService) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	return s.users.GetTopUsers(ctx, limit)
}

// GetTopHonor retrieves the top users by friendly-duel honor.
func (s *AccountService) GetTopHonor(ctx context.Context, limit int) ([]*model.User, error) {
	return s.users.GetTopHonor(ctx, limit)
}

// record writes a transaction row. The balance change has already happened, so a failure is logged only.
func (s *AccountService) record(ctx context.Context, userID string, amount int64, txType, description string) {
	var desc *string
	if description != "" {
		desc = &description
	}
	if _, err := s.txs.Create(ctx, userID, amount, txType, desc); err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Int64("amount", amount).
			Str("type", txType).
			Msg("Failed to record transaction")
	}
}
