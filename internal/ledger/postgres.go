package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/wallet"
)

// PostgresStore persists wallets and transaction records in PostgreSQL. The
// atomic unit maps onto a database transaction; wallet rows are locked with
// SELECT ... FOR UPDATE in ascending wallet-id order, which keeps opposing
// concurrent transfers between the same pair of wallets deadlock-free.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed ledger store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const transactionColumns = `id, type, amount::text, user_id, source_wallet_id, target_wallet_id,
        bank_name, account_number, ifsc_code, description, status, created_at`

// Atomic opens a database transaction, runs fn against it, and commits only
// if fn succeeds. Any error rolls the whole unit back.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(u UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgUnit{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ProvisionWallet inserts the single zero-balance wallet for a new user.
func (s *PostgresStore) ProvisionWallet(ctx context.Context, userID string) (wallet.Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("parse user id: %w", err)
	}
	id := uuid.New()
	now := time.Now().UTC()
	w := wallet.Wallet{
		ID:        id.String(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
        VALUES ($1, $2, 0, $3, $3)`, id, uid, now)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

func (s *PostgresStore) WalletByUser(ctx context.Context, userID string) (wallet.Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return wallet.Wallet{}, &NotFoundError{Side: SideSelf}
	}
	row := s.db.QueryRow(ctx, `SELECT id, user_id, balance::text, created_at, updated_at
        FROM wallets WHERE user_id = $1`, uid)
	return scanWallet(row)
}

func (s *PostgresStore) WalletByID(ctx context.Context, walletID string) (wallet.Wallet, error) {
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return wallet.Wallet{}, &NotFoundError{Side: SideSelf}
	}
	row := s.db.QueryRow(ctx, `SELECT id, user_id, balance::text, created_at, updated_at
        FROM wallets WHERE id = $1`, wid)
	return scanWallet(row)
}

func (s *PostgresStore) TransactionsByUser(ctx context.Context, userID string, kind Kind) ([]Transaction, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+`
        FROM transactions WHERE user_id = $1 AND type = $2 ORDER BY created_at`, uid, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PostgresStore) TransactionsByWallet(ctx context.Context, walletID string, dir Direction) ([]Transaction, error) {
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return nil, nil
	}

	var where string
	switch dir {
	case DirectionOutgoing:
		where = `source_wallet_id = $1`
	case DirectionIncoming:
		where = `target_wallet_id = $1`
	default:
		where = `(source_wallet_id = $1 OR target_wallet_id = $1)`
	}

	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+`
        FROM transactions WHERE `+where+` ORDER BY created_at`, wid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// pgUnit executes the atomic unit's statements on the open transaction.
type pgUnit struct {
	tx pgx.Tx
}

func (u *pgUnit) WalletsByUser(ctx context.Context, userIDs ...string) (map[string]wallet.Wallet, error) {
	ids := make([]uuid.UUID, 0, len(userIDs))
	for _, userID := range userIDs {
		uid, err := uuid.Parse(userID)
		if err != nil {
			continue // unresolvable ids surface as absent wallets
		}
		ids = append(ids, uid)
	}

	// ORDER BY id fixes the lock acquisition order across concurrent units.
	rows, err := u.tx.Query(ctx, `SELECT id, user_id, balance::text, created_at, updated_at
        FROM wallets WHERE user_id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]wallet.Wallet, len(ids))
	for rows.Next() {
		w, err := scanWalletRow(rows)
		if err != nil {
			return nil, err
		}
		out[w.UserID] = w
	}
	return out, rows.Err()
}

func (u *pgUnit) AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error) {
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return decimal.Decimal{}, &NotFoundError{Side: SideSelf}
	}

	// The WHERE guard plus the table's CHECK (balance >= 0) constraint keep
	// the non-negative invariant even if the engine's pre-check raced.
	var balanceText string
	err = u.tx.QueryRow(ctx, `UPDATE wallets
        SET balance = balance + $2::numeric, updated_at = now()
        WHERE id = $1 AND balance + $2::numeric >= 0
        RETURNING balance::text`, wid, delta.String()).Scan(&balanceText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if delta.IsNegative() {
				return decimal.Decimal{}, ErrInsufficientFunds
			}
			return decimal.Decimal{}, &NotFoundError{Side: SideSelf}
		}
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(balanceText)
}

func (u *pgUnit) Append(ctx context.Context, txn *Transaction) error {
	id, err := uuid.Parse(txn.ID)
	if err != nil {
		return fmt.Errorf("parse transaction id: %w", err)
	}
	userID, err := uuid.Parse(txn.UserID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	sourceID, err := parseOptionalUUID(txn.SourceWalletID)
	if err != nil {
		return fmt.Errorf("parse source wallet id: %w", err)
	}
	targetID, err := parseOptionalUUID(txn.TargetWalletID)
	if err != nil {
		return fmt.Errorf("parse target wallet id: %w", err)
	}

	_, err = u.tx.Exec(ctx, `INSERT INTO transactions
        (id, type, amount, user_id, source_wallet_id, target_wallet_id,
         bank_name, account_number, ifsc_code, description, status, created_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, string(txn.Type), txn.Amount.String(), userID, sourceID, targetID,
		txn.BankName, txn.AccountNumber, txn.IFSCCode, txn.Description,
		string(txn.Status), txn.CreatedAt)
	return err
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func scanWallet(row pgx.Row) (wallet.Wallet, error) {
	w, err := scanWalletRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Wallet{}, &NotFoundError{Side: SideSelf}
		}
		return wallet.Wallet{}, err
	}
	return w, nil
}

func scanWalletRow(row pgx.Row) (wallet.Wallet, error) {
	var (
		id          uuid.UUID
		userID      uuid.UUID
		balanceText string
		w           wallet.Wallet
	)
	if err := row.Scan(&id, &userID, &balanceText, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return wallet.Wallet{}, err
	}
	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("parse balance: %w", err)
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.Balance = balance
	return w, nil
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		var (
			id         uuid.UUID
			kind       string
			amountText string
			userID     uuid.UUID
			sourceID   *uuid.UUID
			targetID   *uuid.UUID
			status     string
			txn        Transaction
		)
		if err := rows.Scan(&id, &kind, &amountText, &userID, &sourceID, &targetID,
			&txn.BankName, &txn.AccountNumber, &txn.IFSCCode, &txn.Description,
			&status, &txn.CreatedAt); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		txn.ID = id.String()
		txn.Type = Kind(kind)
		txn.Amount = amount
		txn.UserID = userID.String()
		txn.Status = Status(status)
		if sourceID != nil {
			s := sourceID.String()
			txn.SourceWalletID = &s
		}
		if targetID != nil {
			s := targetID.String()
			txn.TargetWalletID = &s
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}
