// Package memory provides an in-memory Store, used by tests and the
// default development configuration.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mfeller/stocksim/internal/model"
	"github.com/mfeller/stocksim/internal/storage"
)

type holdingKey struct {
	accountID uuid.UUID
	symbol    string
}

// Store keeps all rows in mutex-guarded maps.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]model.Account
	byEmail  map[string]uuid.UUID
	holdings map[holdingKey]model.Holding
	entries  []model.LedgerEntry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]model.Account),
		byEmail:  make(map[string]uuid.UUID),
		holdings: make(map[holdingKey]model.Holding),
	}
}

func (s *Store) CreateAccount(ctx context.Context, account model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[account.Email]; exists {
		return storage.ErrDuplicateEmail
	}
	s.accounts[account.ID] = account
	s.byEmail[account.Email] = account.ID
	return nil
}

func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &account, nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *Store) Holding(ctx context.Context, accountID uuid.UUID, symbol string) (*model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holding, ok := s.holdings[holdingKey{accountID, symbol}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &holding, nil
}

func (s *Store) HoldingsByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Holding
	for key, holding := range s.holdings {
		if key.accountID == accountID {
			result = append(result, holding)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.LedgerEntry
	for _, entry := range s.entries {
		if entry.AccountID == accountID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *Store) ExecTrade(ctx context.Context, mut storage.TradeMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[mut.AccountID]
	if !ok {
		return storage.ErrNotFound
	}

	account.Cash = mut.NewCash
	s.accounts[mut.AccountID] = account
	s.holdings[holdingKey{mut.Holding.AccountID, mut.Holding.Symbol}] = mut.Holding
	s.entries = append(s.entries, mut.Entry)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)
