package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"duel-bot/internal/model"
)

func TestTransferValidation(t *testing.T) {
	accounts, store := newTestAccounts()
	svc := NewTransferService(accounts, store)
	ctx := context.Background()
	_, _, _ = accounts.EnsureUser(ctx, "discord:1", "alice")
	_, _, _ = accounts.EnsureUser(ctx, "discord:2", "bob")

	tests := []struct {
		name    string
		from    string
		to      string
		amount  int64
		wantErr error
	}{
		{"zero amount", "discord:1", "discord:2", 0, ErrInvalidAmount},
		{"negative amount", "discord:1", "discord:2", -5, ErrInvalidAmount},
		{"self transfer", "discord:1", "discord:1", 10, ErrSelfTransfer},
		{"unknown receiver", "discord:1", "discord:404", 10, model.ErrUserNotFound},
		{"insufficient", "discord:1", "discord:2", 1001, model.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Transfer(ctx, tt.from, tt.to, tt.amount), tt.wantErr)
		})
	}

	// None of the rejected transfers moved money
	a, _ := accounts.Balance(ctx, "discord:1")
	b, _ := accounts.Balance(ctx, "discord:2")
	assert.Equal(t, int64(1000), a)
	assert.Equal(t, int64(1000), b)
}

func TestTransferConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		accounts, store := newTestAccounts()
		svc := NewTransferService(accounts, store)
		ctx := context.Background()
		_, _, _ = accounts.EnsureUser(ctx, "a", "a")
		_, _, _ = accounts.EnsureUser(ctx, "b", "b")

		amounts := rapid.SliceOfN(rapid.Int64Range(1, 700), 1, 20).Draw(t, "amounts")
		for i, amount := range amounts {
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = "b", "a"
			}
			_ = svc.Transfer(ctx, from, to, amount)
		}

		a, _ := accounts.Balance(ctx, "a")
		b, _ := accounts.Balance(ctx, "b")
		if a+b != 2000 {
			t.Fatalf("total changed: %d + %d != 2000", a, b)
		}
		if a < 0 || b < 0 {
			t.Fatalf("negative balance: a=%d b=%d", a, b)
		}
	})
}

func TestTransferSuccess(t *testing.T) {
	accounts, store := newTestAccounts()
	svc := NewTransferService(accounts, store)
	ctx := context.Background()
	_, _, _ = accounts.EnsureUser(ctx, "discord:1", "alice")
	_, _, _ = accounts.EnsureUser(ctx, "discord:2", "bob")

	require.NoError(t, svc.Transfer(ctx, "discord:1", "discord:2", 300))

	a, _ := accounts.Balance(ctx, "discord:1")
	b, _ := accounts.Balance(ctx, "discord:2")
	assert.Equal(t, int64(700), a)
	assert.Equal(t, int64(1300), b)
	assert.Equal(t, 1, store.txCount("discord:1", model.TxTypeTransfer))
	assert.Equal(t, 1, store.txCount("discord:2", model.TxTypeTransfer))
}
