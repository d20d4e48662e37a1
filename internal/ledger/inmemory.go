package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/wallet"
)

type memoryStore struct {
	mu      sync.Mutex
	wallets map[string]wallet.Wallet // keyed by wallet id
	byUser  map[string]string        // user id -> wallet id
	log     []Transaction

	// fault injection hooks, see testing.go
	appendErr error
	adjustErr error
}

// NewMemory creates a concurrency-safe in-memory store. A single lock spans
// each atomic unit, so the fixed lock-ordering concern of the Postgres
// backend does not arise here.
func NewMemory() Store {
	return &memoryStore{
		wallets: make(map[string]wallet.Wallet),
		byUser:  make(map[string]string),
	}
}

// Atomic runs fn under the store lock and restores the pre-call state when fn
// fails, so a partially applied unit is never observable.
func (s *memoryStore) Atomic(_ context.Context, fn func(u UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]wallet.Wallet, len(s.wallets))
	for id, w := range s.wallets {
		snapshot[id] = w
	}
	logLen := len(s.log)

	if err := fn(&memoryUnit{store: s}); err != nil {
		s.wallets = snapshot
		s.log = s.log[:logLen]
		return err
	}
	return nil
}

func (s *memoryStore) ProvisionWallet(_ context.Context, userID string) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUser[userID]; exists {
		return wallet.Wallet{}, errors.New("wallet already provisioned")
	}
	now := time.Now().UTC()
	w := wallet.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[w.ID] = w
	s.byUser[userID] = w.ID
	return w, nil
}

func (s *memoryStore) WalletByUser(_ context.Context, userID string) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUser[userID]
	if !ok {
		return wallet.Wallet{}, &NotFoundError{Side: SideSelf}
	}
	return s.wallets[id], nil
}

func (s *memoryStore) WalletByID(_ context.Context, walletID string) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return wallet.Wallet{}, &NotFoundError{Side: SideSelf}
	}
	return w, nil
}

func (s *memoryStore) TransactionsByUser(_ context.Context, userID string, kind Kind) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Transaction
	for _, txn := range s.log {
		if txn.UserID == userID && txn.Type == kind {
			out = append(out, txn)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *memoryStore) TransactionsByWallet(_ context.Context, walletID string, dir Direction) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Transaction
	for _, txn := range s.log {
		outgoing := txn.SourceWalletID != nil && *txn.SourceWalletID == walletID
		incoming := txn.TargetWalletID != nil && *txn.TargetWalletID == walletID
		switch dir {
		case DirectionOutgoing:
			if outgoing {
				out = append(out, txn)
			}
		case DirectionIncoming:
			if incoming {
				out = append(out, txn)
			}
		default:
			if outgoing || incoming {
				out = append(out, txn)
			}
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].CreatedAt.Before(txns[j].CreatedAt)
	})
}

// memoryUnit mutates the store directly; Atomic already holds the lock and
// owns the rollback snapshot.
type memoryUnit struct {
	store *memoryStore
}

func (u *memoryUnit) WalletsByUser(_ context.Context, userIDs ...string) (map[string]wallet.Wallet, error) {
	out := make(map[string]wallet.Wallet, len(userIDs))
	for _, userID := range userIDs {
		if id, ok := u.store.byUser[userID]; ok {
			out[userID] = u.store.wallets[id]
		}
	}
	return out, nil
}

func (u *memoryUnit) AdjustBalance(_ context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := u.store.adjustErr; err != nil {
		return decimal.Decimal{}, err
	}
	w, ok := u.store.wallets[walletID]
	if !ok {
		return decimal.Decimal{}, &NotFoundError{Side: SideSelf}
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Decimal{}, ErrInsufficientFunds
	}
	w.Balance = next
	w.UpdatedAt = time.Now().UTC()
	u.store.wallets[walletID] = w
	return next, nil
}

func (u *memoryUnit) Append(_ context.Context, txn *Transaction) error {
	if err := u.store.appendErr; err != nil {
		return err
	}
	u.store.log = append(u.store.log, *txn)
	return nil
}
