// Package quote fetches stock prices from the FinancialModelingPrep REST API.
//
// Endpoint: GET {base_url}/quote/{SYMBOL}?apikey={key}
// Response: JSON array with one object per symbol, e.g.
//
//	[{"symbol": "ACME", "price": 12.34, ...}]
//
// Every failure mode (network error, non-2xx status, malformed body,
// unknown symbol, missing or non-positive price) collapses into
// ErrUnavailable. Callers cannot and must not distinguish them.
package quote
