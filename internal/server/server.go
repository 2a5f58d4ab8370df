// Package server is the HTTP boundary: it parses requests into validated
// primitives, invokes the auth gate and ledger, and translates typed
// errors into user-facing responses.
package server

import (
	"log/slog"
	"net/http"

	"github.com/mfeller/stocksim/internal/auth"
	"github.com/mfeller/stocksim/internal/ledger"
	"github.com/mfeller/stocksim/internal/storage"
)

// Server holds the handler dependencies.
type Server struct {
	gate   *auth.Gate
	ledger *ledger.Service
	store  storage.Store
	logger *slog.Logger
}

// New creates a Server.
func New(gate *auth.Gate, ledgerSvc *ledger.Service, store storage.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		gate:   gate,
		ledger: ledgerSvc,
		store:  store,
		logger: logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/quote", s.authenticated(s.handleQuote))
	mux.HandleFunc("POST /api/buy", s.authenticated(s.handleBuy))
	mux.HandleFunc("POST /api/sell", s.authenticated(s.handleSell))
	mux.HandleFunc("GET /api/portfolio", s.authenticated(s.handlePortfolio))
	mux.HandleFunc("GET /api/history", s.authenticated(s.handleHistory))

	return mux
}
