// Package model defines the ledger records and shared domain errors of the bot.
package model

import (
	"errors"
	"time"
)

// Ledger errors shared by the repositories, the account service and the duel engine.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// User represents a chat user account in the economy.
// UserID is the platform-prefixed identity, e.g. "discord:1234" or "telegram:5678".
type User struct {
	UserID         string    `db:"user_id"`
	Username       string    `db:"username"`
	Balance        int64     `db:"balance"`
	Honor          int64     `db:"honor"`
	LastDailyClaim int64     `db:"last_daily_claim"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// DailyRank represents a user's daily duel performance for ranking.
type DailyRank struct {
	UserID    string `db:"user_id"`
	Username  string `db:"username"`
	NetProfit int64  `db:"net_profit"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial  = "initial"     // Initial balance on account creation
	TxTypeDaily    = "daily"       // Daily reward claim
	TxTypeDuelBet  = "duel_bet"    // Stake charged when a duel starts
	TxTypeDuelWin  = "duel_win"    // Pot paid to the winner, tax withheld
	TxTypeRefund   = "duel_refund" // Stake returned on draw, timeout or failed start
	TxTypeTransfer = "transfer"    // User-to-user gift
	TxTypeAdminAdd = "admin_add"   // Admin added balance
)

// DuelTransactionTypes returns the transaction types that count towards daily duel rankings.
func DuelTransactionTypes() []string {
	return []string{TxTypeDuelBet, TxTypeDuelWin, TxTypeRefund}
}
