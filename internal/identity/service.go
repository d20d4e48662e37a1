package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultpay/vaultpay/internal/wallet"
)

const (
	minNameLength     = 3
	minPasswordLength = 8
	bcryptCost        = 10
)

// ValidationError marks a registration rejected because of bad input.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string { return e.msg }

// WalletProvisioner creates the wallet that accompanies every new user.
// Implemented by the ledger stores.
type WalletProvisioner interface {
	ProvisionWallet(ctx context.Context, userID string) (wallet.Wallet, error)
}

// AccountCreator persists a new user together with their zero-balance wallet.
// Either both exist afterwards or neither does.
type AccountCreator interface {
	CreateAccount(ctx context.Context, user User) (wallet.Wallet, error)
}

// CompensatingAccounts composes a Repository and a WalletProvisioner into an
// AccountCreator for backends without a shared transaction: when provisioning
// fails, the just-created user is deleted again. The Postgres repository does
// not need this; it creates both rows in one database transaction.
type CompensatingAccounts struct {
	Repo    Repository
	Wallets WalletProvisioner
}

func (a CompensatingAccounts) CreateAccount(ctx context.Context, user User) (wallet.Wallet, error) {
	if err := a.Repo.Create(ctx, user); err != nil {
		return wallet.Wallet{}, err
	}
	w, err := a.Wallets.ProvisionWallet(ctx, user.ID)
	if err != nil {
		if derr := a.Repo.Delete(ctx, user.ID); derr != nil {
			return wallet.Wallet{}, fmt.Errorf("provision wallet: %w (orphaned user %s: %v)", err, user.ID, derr)
		}
		return wallet.Wallet{}, fmt.Errorf("provision wallet: %w", err)
	}
	return w, nil
}

// Service manages the account lifecycle: registration and lookups. Sessions
// and credential verification live outside this system.
type Service struct {
	repo     Repository
	accounts AccountCreator
}

// NewService creates a new identity service.
func NewService(repo Repository, accounts AccountCreator) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Register validates the input, then creates the user (with a bcrypt password
// hash) and their zero-balance wallet as one unit.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < minNameLength {
		return User{}, ValidationError{msg: fmt.Sprintf("name must be at least %d characters long", minNameLength)}
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, ValidationError{msg: "invalid email address"}
	}
	if len(input.Password) < minPasswordLength {
		return User{}, ValidationError{msg: fmt.Sprintf("password must be at least %d characters long", minPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.accounts.CreateAccount(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Resolve translates an email address into the internal user id the engine
// operates on.
func (s *Service) Resolve(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Directory lists the users a caller may pick as transfer recipients.
func (s *Service) Directory(ctx context.Context, callerEmail string) ([]User, error) {
	return s.repo.List(ctx, strings.ToLower(strings.TrimSpace(callerEmail)))
}
