package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates the lifecycle states a transaction record can carry.
// Rejected operations write no record at all, so every row the engine
// produces today is COMPLETED; PENDING and FAILED stay in the schema for a
// future audit trail.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusPending   Status = "PENDING"
	StatusFailed    Status = "FAILED"
)

// Transaction is the immutable record of one ledger event. Once written it is
// never edited; corrections are new, separate transactions.
type Transaction struct {
	ID             string
	Type           Kind
	Amount         decimal.Decimal
	UserID         string
	SourceWalletID *string
	TargetWalletID *string
	BankName       *string
	AccountNumber  *string
	IFSCCode       *string
	Description    *string
	Status         Status
	CreatedAt      time.Time
}

func newTransaction(kind Kind, amount decimal.Decimal, userID string) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		Type:      kind,
		Amount:    amount,
		UserID:    userID,
		Status:    StatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
}

func (t *Transaction) withBank(bank *BankDetails) *Transaction {
	if bank == nil {
		return t
	}
	if bank.BankName != "" {
		name := bank.BankName
		t.BankName = &name
	}
	if bank.AccountNumber != "" {
		number := bank.AccountNumber
		t.AccountNumber = &number
	}
	if bank.IFSCCode != "" {
		code := bank.IFSCCode
		t.IFSCCode = &code
	}
	return t
}
