package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"duel-bot/internal/model"
)

// memStore is an in-memory UserStore, TransactionStore and VaultStore with the same
// guarded-delta semantics as the postgres repositories.
type memStore struct {
	mu    sync.Mutex
	users map[string]*model.User
	txs   []model.Transaction
	vault int64

	rankDate time.Time
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

func (m *memStore) GetByID(_ context.Context, userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) GetOrCreate(_ context.Context, userID, username string) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		c := *u
		return &c, false, nil
	}
	u := &model.User{UserID: userID, Username: username, Balance: 1000, CreatedAt: time.Now()}
	m.users[userID] = u
	c := *u
	return &c, true, nil
}

func (m *memStore) AdjustBalance(_ context.Context, userID string, delta int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if u.Balance+delta < 0 {
		return nil, model.ErrInsufficientFunds
	}
	u.Balance += delta
	c := *u
	return &c, nil
}

func (m *memStore) AddHonor(_ context.Context, userID string, n int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u.Honor += n
	c := *u
	return &c, nil
}

func (m *memStore) UpdateUsername(_ context.Context, userID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Username = username
	return nil
}

func (m *memStore) UpdateDailyClaim(_ context.Context, userID string, claimTime int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u.LastDailyClaim = claimTime
	c := *u
	return &c, nil
}

func (m *memStore) CanClaimDaily(_ context.Context, userID string, cooldownHours int) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, 0, model.ErrUserNotFound
	}
	if u.LastDailyClaim == 0 {
		return true, 0, nil
	}
	next := time.Unix(u.LastDailyClaim, 0).Add(time.Duration(cooldownHours) * time.Hour)
	if left := time.Until(next); left > 0 {
		return false, left, nil
	}
	return true, 0, nil
}

func (m *memStore) sorted(less func(a, b *model.User) bool, keep func(*model.User) bool, limit int) []*model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		if keep(u) {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memStore) GetTopUsers(_ context.Context, limit int) ([]*model.User, error) {
	return m.sorted(func(a, b *model.User) bool { return a.Balance > b.Balance },
		func(*model.User) bool { return true }, limit), nil
}

func (m *memStore) GetTopHonor(_ context.Context, limit int) ([]*model.User, error) {
	return m.sorted(func(a, b *model.User) bool { return a.Honor > b.Honor },
		func(u *model.User) bool { return u.Honor > 0 }, limit), nil
}

func (m *memStore) Create(_ context.Context, userID string, amount int64, txType string, description *string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := model.Transaction{ID: int64(len(m.txs) + 1), UserID: userID, Amount: amount, Type: txType, Description: description, CreatedAt: time.Now()}
	m.txs = append(m.txs, tx)
	return &tx, nil
}

func (m *memStore) GetDailyWinners(_ context.Context, date time.Time, _ int) ([]*model.DailyRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankDate = date
	return nil, nil
}

func (m *memStore) GetDailyLosers(_ context.Context, date time.Time, _ int) ([]*model.DailyRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankDate = date
	return nil, nil
}

func (m *memStore) GetUserDailyProfit(_ context.Context, _ string, date time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankDate = date
	return 0, nil
}

func (m *memStore) Add(_ context.Context, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vault += amount
	return m.vault, nil
}

func (m *memStore) Balance(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vault, nil
}

// txSum returns the sum of logged amounts of a user, excluding the starting balance row.
func (m *memStore) txSum(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.Type != model.TxTypeInitial {
			sum += tx.Amount
		}
	}
	return sum
}

func (m *memStore) txCount(userID, txType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.Type == txType {
			n++
		}
	}
	return n
}
