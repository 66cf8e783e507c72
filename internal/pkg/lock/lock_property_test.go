package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// BalanceOperation represents a balance modification operation.
type BalanceOperation struct {
	Amount int64
}

// TestConcurrentBalanceSafetyProperty checks that concurrent balance operations on the
// same key end with the balance a sequential execution would produce.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Generate initial balance
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")

		// Generate number of concurrent operations (2-20)
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		// Generate operations (mix of positive and negative amounts)
		operations := make([]BalanceOperation, numOps)
		expectedFinalBalance := initialBalance
		for i := 0; i < numOps; i++ {
			// Generate amount between -500 and +500
			amount := rapid.Int64Range(-500, 500).Draw(t, "amount")
			operations[i] = BalanceOperation{Amount: amount}
			expectedFinalBalance += amount
		}

		// Generate a user ID
		userID := rapid.StringMatching(`user-[0-9]{1,6}`).Draw(t, "userID")

		// Create a fresh KeyedLock for this test
		ul := NewKeyedLock()

		// Simulate balance with atomic operations for thread-safe access
		balance := initialBalance

		// Execute operations concurrently WITH locking
		var wg sync.WaitGroup
		wg.Add(numOps)

		for _, op := range operations {
			go func(amount int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				// Simulate balance update (read-modify-write)
				balance += amount
			}(op.Amount)
		}

		wg.Wait()

		// Property: Final balance should equal expected (sequential execution result)
		if balance != expectedFinalBalance {
			t.Fatalf("Balance mismatch with locking: expected %d, got %d (initial=%d, numOps=%d)",
				expectedFinalBalance, balance, initialBalance, numOps)
		}
	})
}

// TestWithLockFunctionProperty tests that WithLock correctly serializes operations.
func TestWithLockFunctionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Generate initial balance
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")

		// Generate number of concurrent operations
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")

		// Generate a fixed amount to add each time
		amountPerOp := rapid.Int64Range(1, 100).Draw(t, "amountPerOp")

		expectedFinalBalance := initialBalance + int64(numOps)*amountPerOp

		// Generate a user ID
		userID := rapid.StringMatching(`user-[0-9]{1,6}`).Draw(t, "userID")

		// Create a fresh KeyedLock
		ul := NewKeyedLock()

		// Simulate balance
		balance := initialBalance

		// Execute operations concurrently using WithLock
		var wg sync.WaitGroup
		wg.Add(numOps)

		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					balance += amountPerOp
					return nil
				})
			}()
		}

		wg.Wait()

		// Property: Final balance should be correct
		if balance != expectedFinalBalance {
			t.Fatalf("Balance mismatch with WithLock: expected %d, got %d",
				expectedFinalBalance, balance)
		}
	})
}

// TestMultipleUsersIndependentLocksProperty tests that locks for different users
// are independent and don't block each other unnecessarily.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Generate number of users
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")

		// Generate operations per user
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		// Generate initial balance for each user
		initialBalances := make(map[string]int64)
		expectedBalances := make(map[string]int64)
		for i := 0; i < numUsers; i++ {
			userID := fmt.Sprintf("user-%d", i+1)
			balance := rapid.Int64Range(1000, 10000).Draw(t, "initialBalance")
			initialBalances[userID] = balance
			expectedBalances[userID] = balance + int64(opsPerUser)*10 // Each op adds 10
		}

		// Create a fresh KeyedLock
		ul := NewKeyedLock()

		// Simulate balances for each user
		balances := make(map[string]*int64)
		for userID, balance := range initialBalances {
			b := balance
			balances[userID] = &b
		}

		// Execute operations concurrently for all users
		var wg sync.WaitGroup
		totalOps := numUsers * opsPerUser
		wg.Add(totalOps)

		for i := 1; i <= numUsers; i++ {
			userID := fmt.Sprintf("user-%d", i)
			for j := 0; j < opsPerUser; j++ {
				go func(uid string) {
					defer wg.Done()
					ul.Lock(uid)
					defer ul.Unlock(uid)
					*balances[uid] += 10
				}(userID)
			}
		}

		wg.Wait()

		// Property: Each user's final balance should be correct
		for userID, expected := range expectedBalances {
			if *balances[userID] != expected {
				t.Fatalf("User %s balance mismatch: expected %d, got %d",
					userID, expected, *balances[userID])
			}
		}
	})
}

// TestTryLockPreventsConcurrentSessionsProperty tests that TryLock correctly
// prevents concurrent game sessions for the same user.
func TestTryLockPreventsConcurrentSessionsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.StringMatching(`user-[0-9]{1,6}`).Draw(t, "userID")
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		ul := NewKeyedLock()

		// Counter for successful lock acquisitions
		var successCount atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)

		// All goroutines try to acquire lock simultaneously
		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-startCh // Wait for signal to start

				if ul.TryLock(userID) {
					successCount.Add(1)
					// Simulate some work
					// Then release
					ul.Unlock(userID)
				}
			}()
		}

		// Signal all goroutines to start
		close(startCh)
		wg.Wait()

		// Property: At least one should succeed (the first one to try)
		if successCount.Load() < 1 {
			t.Fatalf("At least one TryLock should succeed, got %d successes", successCount.Load())
		}

		// Property: After all operations complete, lock should be available
		if !ul.TryLock(userID) {
			t.Fatal("Lock should be available after all operations complete")
		}
		ul.Unlock(userID)
	})
}

// TestLockUnlockSymmetryProperty tests that every Lock has a corresponding Unlock.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.StringMatching(`user-[0-9]{1,6}`).Draw(t, "userID")
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		ul := NewKeyedLock()

		// Perform lock/unlock cycles
		for i := 0; i < numCycles; i++ {
			ul.Lock(userID)
			ul.Unlock(userID)
		}

		// Property: After all cycles, lock should be available
		if !ul.TryLock(userID) {
			t.Fatal("Lock should be available after symmetric lock/unlock cycles")
		}
		ul.Unlock(userID)
	})
}

// TestTryLockRejectsConcurrentHolder checks that a held key makes TryLock fail fast,
// which is what the session reentrancy guard relies on.
func TestTryLockRejectsConcurrentHolder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`session-[a-f0-9]{8}`).Draw(t, "key")
		kl := NewKeyedLock()

		kl.Lock(key)
		if kl.TryLock(key) {
			t.Fatal("TryLock must fail while key is held")
		}
		kl.Unlock(key)

		if !kl.TryLock(key) {
			t.Fatal("TryLock should succeed once the key is free")
		}
		kl.Unlock(key)
		if n := entries(kl); n != 0 {
			t.Fatalf("expected no entries after release, got %d", n)
		}
	})
}

func TestLockWithTimeoutExpires(t *testing.T) {
	kl := NewKeyedLock()
	kl.Lock("k")
	defer kl.Unlock("k")

	start := time.Now()
	if kl.LockWithTimeout(context.Background(), "k", 30*time.Millisecond) {
		t.Fatal("lock should not be acquired while held")
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("LockWithTimeout returned before the timeout")
	}
	if kl.locks["k"].refs != 1 {
		t.Fatalf("a timed out waiter must drop its reference, refs=%d", kl.locks["k"].refs)
	}
}

// TestWaiterReleasesTheMutexItAcquired replays a deleted session: the holder releases
// while a timer callback waits, the callback acquires, and a stale button press then
// tries the same key. The press must be rejected until the callback unlocks, and the
// callback's unlock must not free anyone else's mutex.
func TestWaiterReleasesTheMutexItAcquired(t *testing.T) {
	kl := NewKeyedLock()
	kl.Lock("s")

	acquired := make(chan struct{})
	unlock := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if !kl.LockWithTimeout(context.Background(), "s", time.Second) {
			t.Error("waiter should acquire once the holder releases")
			return
		}
		close(acquired)
		<-unlock
		kl.Unlock("s")
	}()

	// Let the waiter take its reference before the holder releases.
	time.Sleep(20 * time.Millisecond)
	kl.Unlock("s")
	<-acquired

	if kl.TryLock("s") {
		t.Fatal("stale press acquired a key the waiter still holds")
	}
	close(unlock)
	<-done

	if !kl.TryLock("s") {
		t.Fatal("key should be free after the waiter unlocks")
	}
	if kl.TryLock("s") {
		t.Fatal("second holder acquired a key that is still held")
	}
	kl.Unlock("s")

	if n := entries(kl); n != 0 {
		t.Fatalf("expected no entries after release, got %d", n)
	}
}

func TestUnknownKeysLeaveNoEntries(t *testing.T) {
	kl := NewKeyedLock()
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("forged-%d", i)
		if !kl.TryLock(key) {
			t.Fatalf("fresh key %s should be free", key)
		}
		kl.Unlock(key)
	}
	kl.Unlock("never-locked")

	if n := entries(kl); n != 0 {
		t.Fatalf("expected no entries, got %d", n)
	}
}

func entries(kl *KeyedLock) int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
