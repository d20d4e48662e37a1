package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/wallet"
)

var (
	// ErrNotFound occurs when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail occurs when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	// List returns users visible in the payee directory, excluding the given
	// email (the caller never transfers to themselves via the directory).
	List(ctx context.Context, excludeEmail string) ([]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`, userID, user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

// CreateAccount inserts the user and their zero-balance wallet in one
// database transaction, so a failed wallet insert never leaves a walletless
// user behind.
func (r *PostgresRepository) CreateAccount(ctx context.Context, user User) (wallet.Wallet, error) {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return wallet.Wallet{}, err
	}

	now := time.Now().UTC()
	walletID := uuid.New()
	w := wallet.Wallet{
		ID:        walletID.String(),
		UserID:    user.ID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wallet.Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	_, err = tx.Exec(ctx, `INSERT INTO users (id, name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`, userID, user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return wallet.Wallet{}, ErrDuplicateEmail
		}
		return wallet.Wallet{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
        VALUES ($1, $2, 0, $3, $3)`, walletID, userID, now)
	if err != nil {
		return wallet.Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

// Delete removes a user row. Used to compensate a failed registration.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, email, password_hash, created_at
        FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, name, email, password_hash, created_at
        FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// List returns all users except the one holding excludeEmail.
func (r *PostgresRepository) List(ctx context.Context, excludeEmail string) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email, password_hash, created_at
        FROM users WHERE email <> $1 ORDER BY created_at`, excludeEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Name, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
