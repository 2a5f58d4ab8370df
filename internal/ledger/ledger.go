package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfeller/stocksim/internal/events"
	"github.com/mfeller/stocksim/internal/model"
	"github.com/mfeller/stocksim/internal/storage"
)

// StartingCash is the balance every account is created with.
var StartingCash = decimal.NewFromInt(500)

// QuoteSource fetches the current price for a symbol. Satisfied by
// *quote.Client.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*model.Quote, error)
}

// TradeResult describes the post-trade state returned to the caller.
type TradeResult struct {
	Balance decimal.Decimal   // Cash after the trade
	Holding model.Holding     // Holding after the trade
	Entry   model.LedgerEntry // The appended ledger entry
}

// PortfolioView is an account's cash plus all of its holdings.
type PortfolioView struct {
	Cash     decimal.Decimal
	Holdings []model.Holding
}

// Service applies buy and sell operations against the store.
type Service struct {
	store     storage.Store
	quotes    QuoteSource
	publisher events.Publisher // nil disables event publishing
	logger    *slog.Logger

	// Per-account locks serialize the read-check-write of a trade.
	muMap map[uuid.UUID]*sync.Mutex
	mapMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPublisher enables best-effort trade-event publishing.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// New creates a ledger service.
func New(store storage.Store, quotes QuoteSource, opts ...Option) *Service {
	s := &Service{
		store:  store,
		quotes: quotes,
		logger: slog.Default(),
		muMap:  make(map[uuid.UUID]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// accountLock returns the mutex serializing trades for one account.
func (s *Service) accountLock(accountID uuid.UUID) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	mu, ok := s.muMap[accountID]
	if !ok {
		mu = &sync.Mutex{}
		s.muMap[accountID] = mu
	}
	return mu
}

// Buy purchases qty shares of symbol at the current quoted price. The
// account is debited price*qty; the purchase is all-or-nothing.
func (s *Service) Buy(ctx context.Context, accountID uuid.UUID, symbol string, qty int64) (*TradeResult, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	// Single fetch: this price is both validated against and committed.
	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, ErrQuoteUnavailable
	}

	mu := s.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	cost := q.Price.Mul(decimal.NewFromInt(qty))
	if account.Cash.LessThan(cost) {
		return nil, ErrInsufficientFunds
	}

	now := time.Now()
	holding := model.Holding{
		AccountID: accountID,
		Symbol:    q.Symbol,
		Quantity:  qty,
		LastPrice: q.Price,
		UpdatedAt: now,
	}

	existing, err := s.store.Holding(ctx, accountID, q.Symbol)
	switch {
	case err == nil:
		holding.Quantity = existing.Quantity + qty
	case errors.Is(err, storage.ErrNotFound):
		// First buy of this symbol.
	default:
		return nil, fmt.Errorf("load holding: %w", err)
	}

	entry := model.LedgerEntry{
		ID:         uuid.New(),
		AccountID:  accountID,
		Action:     model.ActionBought,
		Symbol:     q.Symbol,
		Quantity:   qty,
		Price:      q.Price,
		ExecutedAt: now,
	}

	mut := storage.TradeMutation{
		AccountID: accountID,
		NewCash:   account.Cash.Sub(cost),
		Holding:   holding,
		Entry:     entry,
	}
	if err := s.store.ExecTrade(ctx, mut); err != nil {
		return nil, fmt.Errorf("commit buy: %w", err)
	}

	s.logger.Info("trade executed",
		"action", "buy",
		"account_id", accountID,
		"symbol", q.Symbol,
		"quantity", qty,
		"price", q.Price,
	)
	s.publish(ctx, entry)

	return &TradeResult{
		Balance: mut.NewCash,
		Holding: holding,
		Entry:   entry,
	}, nil
}

// Sell disposes of qty shares of symbol at the current quoted price. A
// holding whose quantity has reached zero is not sellable.
func (s *Service) Sell(ctx context.Context, accountID uuid.UUID, symbol string, qty int64) (*TradeResult, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, ErrQuoteUnavailable
	}

	mu := s.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	existing, err := s.store.Holding(ctx, accountID, q.Symbol)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInsufficientShares
	}
	if err != nil {
		return nil, fmt.Errorf("load holding: %w", err)
	}
	if existing.Quantity == 0 || existing.Quantity < qty {
		return nil, ErrInsufficientShares
	}

	proceeds := q.Price.Mul(decimal.NewFromInt(qty))
	now := time.Now()

	holding := model.Holding{
		AccountID: accountID,
		Symbol:    q.Symbol,
		Quantity:  existing.Quantity - qty,
		LastPrice: q.Price,
		UpdatedAt: now,
	}
	entry := model.LedgerEntry{
		ID:         uuid.New(),
		AccountID:  accountID,
		Action:     model.ActionSold,
		Symbol:     q.Symbol,
		Quantity:   qty,
		Price:      q.Price,
		ExecutedAt: now,
	}

	mut := storage.TradeMutation{
		AccountID: accountID,
		NewCash:   account.Cash.Add(proceeds),
		Holding:   holding,
		Entry:     entry,
	}
	if err := s.store.ExecTrade(ctx, mut); err != nil {
		return nil, fmt.Errorf("commit sell: %w", err)
	}

	s.logger.Info("trade executed",
		"action", "sell",
		"account_id", accountID,
		"symbol", q.Symbol,
		"quantity", qty,
		"price", q.Price,
	)
	s.publish(ctx, entry)

	return &TradeResult{
		Balance: mut.NewCash,
		Holding: holding,
		Entry:   entry,
	}, nil
}

// Portfolio returns the account's cash and holdings.
func (s *Service) Portfolio(ctx context.Context, accountID uuid.UUID) (*PortfolioView, error) {
	account, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	holdings, err := s.store.HoldingsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}

	return &PortfolioView{
		Cash:     account.Cash,
		Holdings: holdings,
	}, nil
}

// History returns the account's ledger entries, oldest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID) ([]model.LedgerEntry, error) {
	entries, err := s.store.EntriesByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}
	return entries, nil
}

// Quote fetches the current price for a symbol without trading.
func (s *Service) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, ErrQuoteUnavailable
	}
	return q, nil
}

// publish sends the trade event if a publisher is configured. Failures
// are logged; the trade has already committed.
func (s *Service) publish(ctx context.Context, entry model.LedgerEntry) {
	if s.publisher == nil {
		return
	}

	event := events.TradeExecuted{
		EntryID:    entry.ID.String(),
		AccountID:  entry.AccountID.String(),
		Action:     string(entry.Action),
		Symbol:     entry.Symbol,
		Quantity:   entry.Quantity,
		Price:      entry.Price,
		ExecutedAt: entry.ExecutedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish trade event failed",
			"entry_id", event.EntryID,
			"error", err,
		)
	}
}
