package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/wallet"
)

// Engine validates balance-mutating operations and applies them as atomic
// units against the store. It is safe for concurrent use; the store's atomic
// unit serializes operations touching the same wallets.
type Engine struct {
	store  Store
	scale  int32
	logger *slog.Logger
}

// NewEngine builds a transaction engine over the given store. Scale is the
// number of decimal places amounts may carry.
func NewEngine(store Store, scale int32, logger *slog.Logger) *Engine {
	return &Engine{store: store, scale: scale, logger: logger}
}

// Apply validates op and, if all preconditions hold, commits its effects as
// one atomic unit. Preconditions are checked in a fixed order and the first
// failure wins: amount, operation kind, recipient presence, actor existence,
// sufficient funds. A rejected operation mutates nothing and writes no record.
func (e *Engine) Apply(ctx context.Context, op Operation) (Result, error) {
	amount, err := e.parseAmount(op.amountText())
	if err != nil {
		return Result{}, err
	}

	switch op := op.(type) {
	case Deposit:
		return e.deposit(ctx, op, amount)
	case Withdraw:
		return e.withdraw(ctx, op, amount)
	case Transfer:
		return e.transfer(ctx, op, amount)
	default:
		return Result{}, ErrInvalidKind
	}
}

func (e *Engine) deposit(ctx context.Context, op Deposit, amount decimal.Decimal) (Result, error) {
	var res Result
	err := e.store.Atomic(ctx, func(u UnitOfWork) error {
		w, err := ownWallet(ctx, u, op.UserID)
		if err != nil {
			return err
		}

		balance, err := u.AdjustBalance(ctx, w.ID, amount)
		if err != nil {
			return err
		}

		rec := newTransaction(KindDeposit, amount, op.UserID).withBank(op.Bank)
		if err := u.Append(ctx, rec); err != nil {
			return err
		}

		res = Result{TransactionID: rec.ID, Amount: amount, Balance: balance}
		return nil
	})
	if err != nil {
		return Result{}, e.fail("deposit", err)
	}
	return res, nil
}

func (e *Engine) withdraw(ctx context.Context, op Withdraw, amount decimal.Decimal) (Result, error) {
	var res Result
	err := e.store.Atomic(ctx, func(u UnitOfWork) error {
		w, err := ownWallet(ctx, u, op.UserID)
		if err != nil {
			return err
		}

		// The wallet row is locked, so this check and the debit below see
		// the same balance.
		if w.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		balance, err := u.AdjustBalance(ctx, w.ID, amount.Neg())
		if err != nil {
			return err
		}

		rec := newTransaction(KindWithdraw, amount, op.UserID).withBank(op.Bank)
		if err := u.Append(ctx, rec); err != nil {
			return err
		}

		res = Result{TransactionID: rec.ID, Amount: amount, Balance: balance}
		return nil
	})
	if err != nil {
		return Result{}, e.fail("withdraw", err)
	}
	return res, nil
}

func (e *Engine) transfer(ctx context.Context, op Transfer, amount decimal.Decimal) (Result, error) {
	if op.RecipientUserID == "" {
		return Result{}, ErrMissingRecipient
	}

	var res Result
	err := e.store.Atomic(ctx, func(u UnitOfWork) error {
		wallets, err := u.WalletsByUser(ctx, op.SenderUserID, op.RecipientUserID)
		if err != nil {
			return err
		}
		sender, ok := wallets[op.SenderUserID]
		if !ok {
			return &NotFoundError{Side: SideSender}
		}
		recipient, ok := wallets[op.RecipientUserID]
		if !ok {
			return &NotFoundError{Side: SideRecipient}
		}
		if sender.ID == recipient.ID {
			return ErrSelfTransfer
		}

		if sender.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		senderBalance, err := u.AdjustBalance(ctx, sender.ID, amount.Neg())
		if err != nil {
			return err
		}
		if _, err := u.AdjustBalance(ctx, recipient.ID, amount); err != nil {
			return err
		}

		// Exactly one record represents the whole transfer.
		rec := newTransaction(KindTransfer, amount, op.SenderUserID)
		rec.SourceWalletID = &sender.ID
		rec.TargetWalletID = &recipient.ID
		if desc := strings.TrimSpace(op.Description); desc != "" {
			rec.Description = &desc
		}
		if err := u.Append(ctx, rec); err != nil {
			return err
		}

		res = Result{TransactionID: rec.ID, Amount: amount, Balance: senderBalance}
		return nil
	})
	if err != nil {
		return Result{}, e.fail("transfer", err)
	}
	return res, nil
}

func ownWallet(ctx context.Context, u UnitOfWork, userID string) (wallet.Wallet, error) {
	wallets, err := u.WalletsByUser(ctx, userID)
	if err != nil {
		return wallet.Wallet{}, err
	}
	w, ok := wallets[userID]
	if !ok {
		return wallet.Wallet{}, &NotFoundError{Side: SideSelf}
	}
	return w, nil
}

// ValidateAmount reports whether text is an amount Apply would accept.
func (e *Engine) ValidateAmount(text string) error {
	_, err := e.parseAmount(text)
	return err
}

// parseAmount accepts a positive decimal no finer than the configured scale.
func (e *Engine) parseAmount(text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !d.Equal(d.Truncate(e.scale)) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// fail passes caller-facing rejections through untouched and collapses
// everything else to the opaque ErrTransactionFailed, logging the cause.
func (e *Engine) fail(op string, err error) error {
	switch {
	case errors.Is(err, ErrActorNotFound),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrMissingRecipient):
		return err
	}
	e.logger.Error("ledger commit failed", slog.String("operation", op), slog.Any("error", err))
	return ErrTransactionFailed
}
