// Package storage defines the persistence contract shared by all backends.
//
// Implementations:
//   - postgres: pgx connection pool, production deployments
//   - sqlite: single-file local storage
//   - memory: in-process maps, tests and development
//
// ExecTrade applies the three records of a trade (cash update, holding
// upsert, ledger append) atomically; a failure leaves no partial state.
package storage
