package domain

import "time"

// Account represents a trading account's running ledger.
//
// Invariant: CurrentBalance equals InitialBalance plus the sum of RealizedPnL
// over every terminal trade applied to this account, each counted exactly
// once. Only the ledger reconciler mutates CurrentBalance, and always by a
// delta tied to a specific trade transition, never by an absolute overwrite.
type Account struct {
	ID             string  // Opaque unique identifier (ULID)
	Name           string  // Display name
	InitialBalance float64 // Set once at creation
	CurrentBalance float64 // InitialBalance plus applied realized P&L

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy of the account.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
