package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind enumerates the recognized ledger operation kinds.
type Kind string

const (
	KindDeposit  Kind = "DEPOSIT"
	KindWithdraw Kind = "WITHDRAW"
	KindTransfer Kind = "TRANSFER"
)

// ParseKind maps a caller-supplied type string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindDeposit:
		return KindDeposit, nil
	case KindWithdraw:
		return KindWithdraw, nil
	case KindTransfer:
		return KindTransfer, nil
	default:
		return "", ErrInvalidKind
	}
}

// BankDetails carries the optional bank metadata recorded on deposits and
// withdrawals.
type BankDetails struct {
	BankName      string
	AccountNumber string
	IFSCCode      string
}

// Operation is the closed set of balance-mutating requests the engine accepts.
// The amount travels as the caller-supplied text so the engine owns its
// validation end to end.
type Operation interface {
	kind() Kind
	amountText() string
}

// Deposit credits the user's own wallet.
type Deposit struct {
	UserID string
	Amount string
	Bank   *BankDetails
}

// Withdraw debits the user's own wallet.
type Withdraw struct {
	UserID string
	Amount string
	Bank   *BankDetails
}

// Transfer moves funds from the sender's wallet to the recipient's wallet as
// one atomic unit, recorded as a single transaction.
type Transfer struct {
	SenderUserID    string
	RecipientUserID string
	Amount          string
	Description     string
}

func (Deposit) kind() Kind  { return KindDeposit }
func (Withdraw) kind() Kind { return KindWithdraw }
func (Transfer) kind() Kind { return KindTransfer }

func (op Deposit) amountText() string  { return op.Amount }
func (op Withdraw) amountText() string { return op.Amount }
func (op Transfer) amountText() string { return op.Amount }

// Result is the outcome of a successfully applied operation: the id of the
// created transaction record, the validated amount, and the new balance of
// the acting user's wallet.
type Result struct {
	TransactionID string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
}
