package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the balance-holding record for one user. Exactly one wallet
// exists per user and its balance never goes below zero. Balances are
// mutated only by the ledger engine.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
