package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/wallet"
)

// Direction selects which side of a wallet's transfers to query.
type Direction int

const (
	DirectionEither Direction = iota
	DirectionOutgoing
	DirectionIncoming
)

// UnitOfWork is the view of the store available inside one atomic unit. Every
// mutation performed through it commits together or not at all.
type UnitOfWork interface {
	// WalletsByUser resolves and locks the wallets of the given users, keyed
	// by user id. Locks are acquired in ascending wallet-id order regardless
	// of argument order. Users without a wallet are simply absent from the
	// result.
	WalletsByUser(ctx context.Context, userIDs ...string) (map[string]wallet.Wallet, error)

	// AdjustBalance applies a signed delta to a wallet and returns the new
	// balance. A delta that would take the balance below zero is rejected
	// with ErrInsufficientFunds, independent of any earlier check.
	AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error)

	// Append writes one immutable transaction record. Records are never
	// updated afterwards.
	Append(ctx context.Context, txn *Transaction) error
}

// Reader exposes the consistent read paths used outside the atomic unit, by
// the history projector and the balance endpoint.
type Reader interface {
	WalletByUser(ctx context.Context, userID string) (wallet.Wallet, error)
	WalletByID(ctx context.Context, walletID string) (wallet.Wallet, error)

	// TransactionsByUser lists records of one kind initiated by the user,
	// oldest first.
	TransactionsByUser(ctx context.Context, userID string, kind Kind) ([]Transaction, error)

	// TransactionsByWallet lists transfer records touching the wallet on the
	// requested side, oldest first.
	TransactionsByWallet(ctx context.Context, walletID string, dir Direction) ([]Transaction, error)
}

// Store is the contract implemented by ledger backends (Postgres in
// production, in-memory for tests and development).
type Store interface {
	Reader

	// Atomic runs fn inside one all-or-nothing unit. If fn returns an error
	// or the commit fails, every mutation made through the UnitOfWork is
	// rolled back.
	Atomic(ctx context.Context, fn func(u UnitOfWork) error) error

	// ProvisionWallet creates the single zero-balance wallet for a new user.
	// Wallet creation belongs to the identity lifecycle, not the engine.
	ProvisionWallet(ctx context.Context, userID string) (wallet.Wallet, error)
}
