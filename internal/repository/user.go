// Package repository provides the pgx-backed data access layer of the ledger.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"duel-bot/internal/model"
)

// Re-exported so callers of this package can match on the ledger errors directly.
var (
	ErrUserNotFound      = model.ErrUserNotFound
	ErrInsufficientFunds = model.ErrInsufficientFunds
)

const userColumns = `user_id, username, balance, honor, last_daily_claim, created_at, updated_at`

// UserRepository handles user account persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.UserID,
		&user.Username,
		&user.Balance,
		&user.Honor,
		&user.LastDailyClaim,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user with the default starting balance.
func (r *UserRepository) Create(ctx context.Context, userID, username string) (*model.User, error) {
	query := `
		INSERT INTO users (user_id, username, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreate retrieves a user, creating the account on first contact.
// The boolean reports whether the account was created by this call.
func (r *UserRepository) GetOrCreate(ctx context.Context, userID, username string) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, userID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, userID, username)
	if err != nil {
		// Another request may have created the account concurrently.
		user, err = r.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	return user, true, nil
}

// AdjustBalance atomically adds delta to a balance. A negative delta that would take
// the balance below zero changes nothing and returns ErrInsufficientFunds.
func (r *UserRepository) AdjustBalance(ctx context.Context, userID string, delta int64) (*model.User, error) {
	query := `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID, delta))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	// No row updated: either the user is missing or the guard rejected the delta.
	exists, existsErr := r.Exists(ctx, userID)
	if existsErr != nil {
		return nil, existsErr
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	return nil, ErrInsufficientFunds
}

// SetBalance sets a balance to an exact value. Used by admin commands.
func (r *UserRepository) SetBalance(ctx context.Context, userID string, balance int64) (*model.User, error) {
	query := `
		UPDATE users
		SET balance = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID, balance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return user, nil
}

// AddHonor increments the honor counter of a friendly-duel winner.
func (r *UserRepository) AddHonor(ctx context.Context, userID string, n int64) (*model.User, error) {
	query := `
		UPDATE users
		SET honor = honor + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID, n))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add honor: %w", err)
	}
	return user, nil
}

// GetTopUsers retrieves the richest users.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	return r.top(ctx, `ORDER BY balance DESC, user_id`, limit)
}

// GetTopHonor retrieves the users with the most friendly-duel wins.
func (r *UserRepository) GetTopHonor(ctx context.Context, limit int) ([]*model.User, error) {
	return r.top(ctx, `WHERE honor > 0 ORDER BY honor DESC, user_id`, limit)
}

func (r *UserRepository) top(ctx context.Context, clause string, limit int) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ` + clause + ` LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// UpdateDailyClaim records the unix time of a user's last daily claim.
func (r *UserRepository) UpdateDailyClaim(ctx context.Context, userID string, claimTime int64) (*model.User, error) {
	query := `
		UPDATE users
		SET last_daily_claim = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID, claimTime))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update daily claim: %w", err)
	}
	return user, nil
}

// CanClaimDaily reports whether the cooldown since the last claim has passed,
// and how long remains if it has not.
func (r *UserRepository) CanClaimDaily(ctx context.Context, userID string, cooldownHours int) (bool, time.Duration, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return false, 0, err
	}

	if user.LastDailyClaim == 0 {
		return true, 0, nil
	}

	next := time.Unix(user.LastDailyClaim, 0).Add(time.Duration(cooldownHours) * time.Hour)
	now := time.Now()
	if !now.Before(next) {
		return true, 0, nil
	}
	return false, next.Sub(now), nil
}

// UpdateUsername refreshes the display name stored for a user.
func (r *UserRepository) UpdateUsername(ctx context.Context, userID, username string) error {
	const query = `
		UPDATE users
		SET username = $2, updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.pool.Exec(ctx, query, userID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Exists checks if a user with the given id exists.
func (r *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
