package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
)

// timestampLayout matches the locale-style rendering the dashboard expects,
// e.g. "Aug 31, 2026, 3:04 PM".
const timestampLayout = "Jan 2, 2006, 3:04 PM"

// DisplayTransaction is the presentation-ready view of one ledger event.
// Formatting (masked account, uppercased bank, rendered timestamp) happens
// here and is never stored.
type DisplayTransaction struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	Description   string  `json:"description"`
	Timestamp     string  `json:"timestamp"`
	BankName      *string `json:"bankName"`
	AccountNumber *string `json:"accountNumber"`
	SenderName    *string `json:"senderName"`
	RecipientName *string `json:"recipientName"`
	Status        string  `json:"status"`
}

// Projector produces the time-ordered transaction view for one user. It is
// read-only: every call recomputes the view from the transaction log.
type Projector struct {
	store ledger.Reader
	users identity.Repository
	scale int32
}

// NewProjector builds a history projector over the ledger's read paths.
func NewProjector(store ledger.Reader, users identity.Repository, scale int32) *Projector {
	return &Projector{store: store, users: users, scale: scale}
}

// HistoryFor merges the user's deposits, withdrawals, and transfers (either
// direction) into one sequence, newest first. Equal timestamps order by
// transaction id descending so the result is deterministic.
func (p *Projector) HistoryFor(ctx context.Context, userID string) ([]DisplayTransaction, error) {
	w, err := p.store.WalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	deposits, err := p.store.TransactionsByUser(ctx, userID, ledger.KindDeposit)
	if err != nil {
		return nil, err
	}
	withdrawals, err := p.store.TransactionsByUser(ctx, userID, ledger.KindWithdraw)
	if err != nil {
		return nil, err
	}
	transfers, err := p.store.TransactionsByWallet(ctx, w.ID, ledger.DirectionEither)
	if err != nil {
		return nil, err
	}

	type entry struct {
		txn           ledger.Transaction
		senderName    *string
		recipientName *string
	}

	entries := make([]entry, 0, len(deposits)+len(withdrawals)+len(transfers))
	for _, txn := range deposits {
		entries = append(entries, entry{txn: txn})
	}
	for _, txn := range withdrawals {
		entries = append(entries, entry{txn: txn})
	}
	for _, txn := range transfers {
		e := entry{txn: txn}
		you := "You"
		if txn.SourceWalletID != nil && *txn.SourceWalletID == w.ID {
			e.senderName = &you
			e.recipientName = p.counterpartyName(ctx, txn.TargetWalletID)
		} else {
			e.senderName = p.counterpartyName(ctx, txn.SourceWalletID)
			e.recipientName = &you
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].txn, entries[j].txn
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	out := make([]DisplayTransaction, 0, len(entries))
	for _, e := range entries {
		out = append(out, DisplayTransaction{
			ID:            e.txn.ID,
			Type:          strings.ToLower(string(e.txn.Type)),
			Amount:        e.txn.Amount.StringFixed(p.scale),
			Description:   strValue(e.txn.Description),
			Timestamp:     formatTimestamp(e.txn.CreatedAt),
			BankName:      upper(e.txn.BankName),
			AccountNumber: mask(e.txn.AccountNumber),
			SenderName:    e.senderName,
			RecipientName: e.recipientName,
			Status:        string(e.txn.Status),
		})
	}
	return out, nil
}

// counterpartyName resolves the display name of the user owning the other
// wallet of a transfer. Unresolvable counterparties render as null rather
// than failing the whole view.
func (p *Projector) counterpartyName(ctx context.Context, walletID *string) *string {
	if walletID == nil {
		return nil
	}
	w, err := p.store.WalletByID(ctx, *walletID)
	if err != nil {
		return nil
	}
	user, err := p.users.FindByID(ctx, w.UserID)
	if err != nil {
		return nil
	}
	return &user.Name
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// mask hides all but the last four digits of an account number.
func mask(accountNumber *string) *string {
	if accountNumber == nil {
		return nil
	}
	digits := *accountNumber
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	masked := "****" + digits
	return &masked
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
