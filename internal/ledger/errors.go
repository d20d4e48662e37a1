package ledger

import "errors"

var (
	// ErrInvalidAmount occurs when an amount is not a positive decimal at the
	// configured scale.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidKind occurs when an operation is not one of the recognized kinds.
	ErrInvalidKind = errors.New("invalid transaction type")

	// ErrMissingRecipient occurs when a transfer names no recipient.
	ErrMissingRecipient = errors.New("recipient is required for transfers")

	// ErrActorNotFound occurs when a referenced user or their wallet does not
	// exist. Use NotFoundError to learn which side of the operation is missing.
	ErrActorNotFound = errors.New("user or wallet not found")

	// ErrInsufficientFunds occurs when a debit would take a wallet below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer occurs when a transfer names the sender's own wallet as
	// the target.
	ErrSelfTransfer = errors.New("cannot transfer to own wallet")

	// ErrTransactionFailed is the opaque failure returned when the atomic
	// commit itself fails. The internal cause is logged, never exposed.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Side identifies which party of an operation could not be resolved.
type Side string

const (
	SideSelf      Side = "self"
	SideSender    Side = "sender"
	SideRecipient Side = "recipient"
)

// NotFoundError reports the missing party of a rejected operation. It matches
// ErrActorNotFound under errors.Is.
type NotFoundError struct {
	Side Side
}

func (e *NotFoundError) Error() string {
	switch e.Side {
	case SideSender:
		return "sender or sender's wallet not found"
	case SideRecipient:
		return "recipient or recipient's wallet not found"
	default:
		return "user or wallet not found"
	}
}

func (e *NotFoundError) Unwrap() error { return ErrActorNotFound }
