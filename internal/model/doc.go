// Package model defines the shared data types of the trading simulator.
//
// Conventions:
//   - Money: decimal.Decimal, never float64
//   - Symbols: uppercase, whitespace-trimmed ticker strings
//   - IDs: uuid.UUID for accounts and ledger entries
package model
