package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"duel-bot/internal/model"
)

// Transfer-related errors.
var (
	ErrSelfTransfer = errors.New("cannot transfer to self")
)

// TransferService handles user-to-user gifts.
type TransferService struct {
	accounts *AccountService
	users    UserStore
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(accounts *AccountService, users UserStore) *TransferService {
	return &TransferService{accounts: accounts, users: users}
}

// Transfer moves amount from one user to another. The sender is debited with the guarded
// atomic delta first; if the credit fails, the sender is refunded.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTransfer
	}

	if _, err := s.users.GetByID(ctx, toID); err != nil {
		return err
	}

	if _, err := s.accounts.Adjust(ctx, fromID, -amount, model.TxTypeTransfer, "gift to "+toID); err != nil {
		return err
	}

	if _, err := s.accounts.Adjust(ctx, toID, amount, model.TxTypeTransfer, "gift from "+fromID); err != nil {
		if _, rbErr := s.accounts.Adjust(ctx, fromID, amount, model.TxTypeTransfer, "gift reverted"); rbErr != nil {
			log.Error().Err(rbErr).
				Str("from", fromID).
				Str("to", toID).
				Int64("amount", amount).
				Msg("Failed to revert transfer debit")
		}
		return fmt.Errorf("failed to credit receiver: %w", err)
	}

	log.Info().Str("from", fromID).Str("to", toID).Int64("amount", amount).Msg("Transfer completed")
	return nil
}
