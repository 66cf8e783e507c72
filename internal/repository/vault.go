package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VaultRepository persists the single house vault that collects duel tax.
type VaultRepository struct {
	pool *pgxpool.Pool
}

// NewVaultRepository creates a new VaultRepository instance.
func NewVaultRepository(pool *pgxpool.Pool) *VaultRepository {
	return &VaultRepository{pool: pool}
}

// Add credits the vault and returns the new vault balance.
func (r *VaultRepository) Add(ctx context.Context, amount int64) (int64, error) {
	const query = `
		INSERT INTO vault (id, balance, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET balance = vault.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to credit vault: %w", err)
	}
	return balance, nil
}

// Balance returns the current vault balance.
func (r *VaultRepository) Balance(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE((SELECT balance FROM vault WHERE id = 1), 0)`

	var balance int64
	if err := r.pool.QueryRow(ctx, query).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read vault: %w", err)
	}
	return balance, nil
}
