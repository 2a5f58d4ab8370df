// Package storage defines the persistence contract for accounts, holdings,
// and ledger entries, implemented by the postgres, sqlite, and memory
// sub-packages.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfeller/stocksim/internal/model"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail indicates an account with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// TradeMutation is the post-trade state of one account, applied in a
// single atomic unit: either all three writes land or none do.
type TradeMutation struct {
	AccountID uuid.UUID
	NewCash   decimal.Decimal   // Account cash after the trade
	Holding   model.Holding     // Holding row after the trade (created if absent)
	Entry     model.LedgerEntry // Ledger entry recording the trade
}

// Store is the persistence contract shared by all backends.
type Store interface {
	// CreateAccount inserts a new account. Returns ErrDuplicateEmail if the
	// email is already registered.
	CreateAccount(ctx context.Context, account model.Account) error

	// AccountByID returns the account with the given id, or ErrNotFound.
	AccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error)

	// AccountByEmail returns the account with the given email, or ErrNotFound.
	AccountByEmail(ctx context.Context, email string) (*model.Account, error)

	// Holding returns the (account, symbol) holding row, or ErrNotFound.
	// Zero-quantity rows are returned as stored.
	Holding(ctx context.Context, accountID uuid.UUID, symbol string) (*model.Holding, error)

	// HoldingsByAccount returns all holding rows for an account, symbols
	// in ascending order.
	HoldingsByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Holding, error)

	// EntriesByAccount returns the account's ledger entries, oldest first.
	EntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.LedgerEntry, error)

	// ExecTrade applies a TradeMutation atomically.
	ExecTrade(ctx context.Context, mut TradeMutation) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
