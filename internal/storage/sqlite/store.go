// Package sqlite implements storage.Store on a local SQLite file via
// database/sql and mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/mfeller/stocksim/internal/model"
	"github.com/mfeller/stocksim/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    cash          TEXT NOT NULL,
    created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
    account_id TEXT NOT NULL REFERENCES accounts (id),
    symbol     TEXT NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity >= 0),
    last_price TEXT NOT NULL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id          TEXT PRIMARY KEY,
    account_id  TEXT NOT NULL REFERENCES accounts (id),
    action      TEXT NOT NULL CHECK (action IN ('Bought', 'Sold')),
    symbol      TEXT NOT NULL,
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    price       TEXT NOT NULL,
    executed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_account
    ON ledger_entries (account_id, executed_at);
`

// Store implements storage.Store backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) CreateAccount(ctx context.Context, account model.Account) error {
	const query = `
		INSERT INTO accounts (id, email, password_hash, cash, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		account.ID.String(), account.Email, account.PasswordHash,
		account.Cash.String(), account.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return storage.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const query = `
		SELECT id, email, password_hash, cash, created_at
		FROM accounts WHERE id = ?`

	return s.scanAccount(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	const query = `
		SELECT id, email, password_hash, cash, created_at
		FROM accounts WHERE email = ?`

	return s.scanAccount(s.db.QueryRowContext(ctx, query, email))
}

func (s *Store) scanAccount(row *sql.Row) (*model.Account, error) {
	var account model.Account
	var id, cash string

	err := row.Scan(&id, &account.Email, &account.PasswordHash, &cash, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if account.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}
	if account.Cash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parse cash: %w", err)
	}
	return &account, nil
}

func (s *Store) Holding(ctx context.Context, accountID uuid.UUID, symbol string) (*model.Holding, error) {
	const query = `
		SELECT account_id, symbol, quantity, last_price, updated_at
		FROM holdings WHERE account_id = ? AND symbol = ?`

	var holding model.Holding
	var id, lastPrice string

	err := s.db.QueryRowContext(ctx, query, accountID.String(), symbol).Scan(
		&id, &holding.Symbol, &holding.Quantity, &lastPrice, &holding.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan holding: %w", err)
	}

	if holding.AccountID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}
	if holding.LastPrice, err = decimal.NewFromString(lastPrice); err != nil {
		return nil, fmt.Errorf("parse last price: %w", err)
	}
	return &holding, nil
}

func (s *Store) HoldingsByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Holding, error) {
	const query = `
		SELECT account_id, symbol, quantity, last_price, updated_at
		FROM holdings WHERE account_id = ? ORDER BY symbol`

	rows, err := s.db.QueryContext(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	var result []model.Holding
	for rows.Next() {
		var holding model.Holding
		var id, lastPrice string
		if err := rows.Scan(&id, &holding.Symbol, &holding.Quantity, &lastPrice, &holding.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		if holding.AccountID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
		if holding.LastPrice, err = decimal.NewFromString(lastPrice); err != nil {
			return nil, fmt.Errorf("parse last price: %w", err)
		}
		result = append(result, holding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings: %w", err)
	}
	return result, nil
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.LedgerEntry, error) {
	const query = `
		SELECT id, account_id, action, symbol, quantity, price, executed_at
		FROM ledger_entries WHERE account_id = ? ORDER BY executed_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var result []model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		var id, acctID, action, price string
		if err := rows.Scan(&id, &acctID, &action, &entry.Symbol, &entry.Quantity, &price, &entry.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if entry.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse entry id: %w", err)
		}
		if entry.AccountID, err = uuid.Parse(acctID); err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
		entry.Action = model.TradeAction(action)
		if entry.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return result, nil
}

// ExecTrade applies the cash update, holding upsert, and ledger append in
// one transaction.
func (s *Store) ExecTrade(ctx context.Context, mut storage.TradeMutation) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trade tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET cash = ? WHERE id = ?`,
		mut.NewCash.String(), mut.AccountID.String(),
	)
	if err != nil {
		return fmt.Errorf("update cash: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cash: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO holdings (account_id, symbol, quantity, last_price, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_id, symbol)
		DO UPDATE SET quantity = excluded.quantity,
		              last_price = excluded.last_price,
		              updated_at = excluded.updated_at`,
		mut.Holding.AccountID.String(), mut.Holding.Symbol, mut.Holding.Quantity,
		mut.Holding.LastPrice.String(), mut.Holding.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, action, symbol, quantity, price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mut.Entry.ID.String(), mut.Entry.AccountID.String(), string(mut.Entry.Action),
		mut.Entry.Symbol, mut.Entry.Quantity, mut.Entry.Price.String(), mut.Entry.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit trade tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)
