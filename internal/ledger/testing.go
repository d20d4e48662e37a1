package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/wallet"
)

// SeedWallet is a test helper that creates a wallet with the given balance
// for a user when using the in-memory store.
func SeedWallet(s Store, userID string, balance decimal.Decimal) wallet.Wallet {
	mem, ok := s.(*memoryStore)
	if !ok {
		return wallet.Wallet{}
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()

	now := time.Now().UTC()
	w := wallet.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	mem.wallets[w.ID] = w
	mem.byUser[userID] = w.ID
	return w
}

// SeedTransaction is a test helper that appends a pre-built record to the
// in-memory store's log.
func SeedTransaction(s Store, txn Transaction) {
	mem, ok := s.(*memoryStore)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	mem.log = append(mem.log, txn)
}

// FailAppends makes the in-memory store's Append return err until cleared
// with a nil err. Used to exercise rollback of the atomic unit.
func FailAppends(s Store, err error) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.appendErr = err
	}
}

// FailAdjustments makes the in-memory store's AdjustBalance return err until
// cleared with a nil err.
func FailAdjustments(s Store, err error) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.adjustErr = err
	}
}

// SystemBalance is a test helper that sums every wallet balance held by the
// in-memory store.
func SystemBalance(s Store) decimal.Decimal {
	mem, ok := s.(*memoryStore)
	if !ok {
		return decimal.Zero
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()

	total := decimal.Zero
	for _, w := range mem.wallets {
		total = total.Add(w.Balance)
	}
	return total
}

// LogLength is a test helper reporting how many records the in-memory store
// holds.
func LogLength(s Store) int {
	mem, ok := s.(*memoryStore)
	if !ok {
		return 0
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	return len(mem.log)
}
