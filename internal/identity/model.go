package identity

import "time"

// User represents a registered account holder. The ledger engine never
// mutates users; it only resolves them to wallets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// RegisterInput carries the data required to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}
