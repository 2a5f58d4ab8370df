// Package postgres implements storage.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mfeller/stocksim/internal/model"
	"github.com/mfeller/stocksim/internal/storage"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// Store implements storage.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account model.Account) error {
	const query = `
		INSERT INTO accounts (id, email, password_hash, cash, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		account.ID, account.Email, account.PasswordHash,
		account.Cash.String(), account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const query = `
		SELECT id, email, password_hash, cash::text, created_at
		FROM accounts WHERE id = $1`

	return s.scanAccount(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	const query = `
		SELECT id, email, password_hash, cash::text, created_at
		FROM accounts WHERE email = $1`

	return s.scanAccount(s.pool.QueryRow(ctx, query, email))
}

func (s *Store) scanAccount(row pgx.Row) (*model.Account, error) {
	var account model.Account
	var cash string

	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &cash, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Cash, err = decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("parse cash: %w", err)
	}
	return &account, nil
}

func (s *Store) Holding(ctx context.Context, accountID uuid.UUID, symbol string) (*model.Holding, error) {
	const query = `
		SELECT account_id, symbol, quantity, last_price::text, updated_at
		FROM holdings WHERE account_id = $1 AND symbol = $2`

	var holding model.Holding
	var lastPrice string

	err := s.pool.QueryRow(ctx, query, accountID, symbol).Scan(
		&holding.AccountID, &holding.Symbol, &holding.Quantity, &lastPrice, &holding.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan holding: %w", err)
	}

	holding.LastPrice, err = decimal.NewFromString(lastPrice)
	if err != nil {
		return nil, fmt.Errorf("parse last price: %w", err)
	}
	return &holding, nil
}

func (s *Store) HoldingsByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Holding, error) {
	const query = `
		SELECT account_id, symbol, quantity, last_price::text, updated_at
		FROM holdings WHERE account_id = $1 ORDER BY symbol`

	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	var result []model.Holding
	for rows.Next() {
		var holding model.Holding
		var lastPrice string
		if err := rows.Scan(&holding.AccountID, &holding.Symbol, &holding.Quantity, &lastPrice, &holding.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		holding.LastPrice, err = decimal.NewFromString(lastPrice)
		if err != nil {
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
		SELECT id, account_id, action, symbol, quantity, price::text, executed_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY executed_at, id`

	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var result []model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		var price string
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Action, &entry.Symbol, &entry.Quantity, &price, &entry.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.Price, err = decimal.NewFromString(price)
		if err != nil {
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
func (s *Store) ExecTrade(ctx context.Context, mut storage.TradeMutation) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin trade tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET cash = $2 WHERE id = $1`,
		mut.AccountID, mut.NewCash.String(),
	)
	if err != nil {
		return fmt.Errorf("update cash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO holdings (account_id, symbol, quantity, last_price, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, symbol)
		DO UPDATE SET quantity = EXCLUDED.quantity,
		              last_price = EXCLUDED.last_price,
		              updated_at = EXCLUDED.updated_at`,
		mut.Holding.AccountID, mut.Holding.Symbol, mut.Holding.Quantity,
		mut.Holding.LastPrice.String(), mut.Holding.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, account_id, action, symbol, quantity, price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		mut.Entry.ID, mut.Entry.AccountID, string(mut.Entry.Action), mut.Entry.Symbol,
		mut.Entry.Quantity, mut.Entry.Price.String(), mut.Entry.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit trade tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)
