package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Relational Types
// -----------------------------------------------------------------------------

// Account represents a registered user and their cash balance.
type Account struct {
	ID           uuid.UUID       // Primary key
	Email        string          // Login identity, unique
	PasswordHash string          // bcrypt hash of the login secret
	Cash         decimal.Decimal // Cash balance, always >= 0
	CreatedAt    time.Time       // Registration time
}

// Holding represents a quantity of one symbol owned by an account.
// A row with Quantity == 0 records "previously held, now empty" and is
// never eligible for selling.
type Holding struct {
	AccountID uuid.UUID       // Foreign key to Account
	Symbol    string          // Ticker symbol, uppercase
	Quantity  int64           // Shares held, always >= 0
	LastPrice decimal.Decimal // Price at the most recent trade of this symbol
	UpdatedAt time.Time       // Last trade time for this holding
}

// TradeAction distinguishes the two sides of a ledger entry.
type TradeAction string

const (
	ActionBought TradeAction = "Bought"
	ActionSold   TradeAction = "Sold"
)

// LedgerEntry is the immutable record of one executed trade.
// Entries are append-only and strictly ordered per account.
type LedgerEntry struct {
	ID         uuid.UUID       // Primary key
	AccountID  uuid.UUID       // Foreign key to Account
	Action     TradeAction     // Bought or Sold
	Symbol     string          // Ticker symbol, uppercase
	Quantity   int64           // Shares traded, always > 0
	Price      decimal.Decimal // Executed price per share
	ExecutedAt time.Time       // Commit time of the trade
}

// -----------------------------------------------------------------------------
// External Types
// -----------------------------------------------------------------------------

// Quote is a price for a symbol obtained from the external provider at a
// point in time.
type Quote struct {
	Symbol    string          // Ticker symbol, uppercase
	Price     decimal.Decimal // Quoted price, always > 0
	FetchedAt time.Time       // When the provider was queried
}

// NormalizeSymbol trims surrounding whitespace and uppercases a ticker.
// Returns "" for input that is empty after trimming.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
