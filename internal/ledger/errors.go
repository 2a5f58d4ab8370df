package ledger

import "errors"

var (
	// ErrInvalidQuantity indicates a non-positive share count.
	ErrInvalidQuantity = errors.New("share count must be a positive integer")

	// ErrQuoteUnavailable indicates the price provider failed or the
	// symbol is unknown. The two cases are deliberately not distinguished.
	ErrQuoteUnavailable = errors.New("could not retrieve a price for the symbol")

	// ErrInsufficientFunds indicates the account cannot cover the full
	// cost of a buy. There are no partial buys.
	ErrInsufficientFunds = errors.New("insufficient funds to complete the purchase")

	// ErrInsufficientShares indicates the account holds fewer shares than
	// requested. There is no short selling and no partial sells.
	ErrInsufficientShares = errors.New("insufficient shares to sell")
)
