package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/wallet"
)

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	store := ledger.NewMemory()
	repo := NewMemoryRepository()
	return NewService(repo, CompensatingAccounts{Repo: repo, Wallets: store}), store
}

type failingProvisioner struct {
	err error
}

func (p failingProvisioner) ProvisionWallet(context.Context, string) (wallet.Wallet, error) {
	return wallet.Wallet{}, p.err
}

func TestRegisterCreatesUserAndWallet(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "Alice@Example.com", Password: "correcthorse"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("correcthorse")))

	w, err := store.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.IsZero())
}

func TestRegisterRollsBackUserWhenWalletFails(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, CompensatingAccounts{
		Repo:    repo,
		Wallets: failingProvisioner{err: errors.New("wallets unavailable")},
	})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "correcthorse"})
	require.Error(t, err)

	// No walletless user may survive the failed registration: the email must
	// be free to register again.
	_, err = repo.FindByEmail(ctx, "alice@example.com")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	store := ledger.NewMemory()
	svc = NewService(repo, CompensatingAccounts{Repo: repo, Wallets: store})
	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "correcthorse"})
	require.NoError(t, err)
	_, err = store.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Name: "Al", Email: "al@example.com", Password: "longenough"},
		{Name: "Alice", Email: "not-an-email", Password: "longenough"},
		{Name: "Alice", Email: "alice@example.com", Password: "short"},
	}
	for _, input := range cases {
		_, err := svc.Register(ctx, input)
		require.Error(t, err, "input %+v", input)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "correcthorse"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Impostor", Email: "alice@example.com", Password: "correcthorse"})
	require.True(t, errors.Is(err, ErrDuplicateEmail), "got %v", err)
}

func TestResolveNormalizesEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "correcthorse"})
	require.NoError(t, err)

	found, err := svc.Resolve(ctx, "  ALICE@example.com ")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.Resolve(ctx, "nobody@example.com")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestDirectoryExcludesCaller(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "correcthorse"})
	require.NoError(t, err)
	bob, err := svc.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "correcthorse"})
	require.NoError(t, err)

	users, err := svc.Directory(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, bob.ID, users[0].ID)
}
