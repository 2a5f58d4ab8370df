// Package events defines the trade-event publishing contract. Publishing
// is best-effort and never part of a trade's atomicity.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TradeExecuted is emitted after a trade commits.
type TradeExecuted struct {
	EntryID    string          `json:"entry_id"`
	AccountID  string          `json:"account_id"`
	Action     string          `json:"action"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Publisher delivers trade events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, event TradeExecuted) error
	Close() error
}
