package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfeller/stocksim/internal/ledger"
	"github.com/mfeller/stocksim/internal/model"
)

// authHandler is a handler that runs with a resolved account identity.
type authHandler func(w http.ResponseWriter, r *http.Request, accountID uuid.UUID)

// authenticated resolves the bearer token before the handler runs. Every
// core operation goes through here; there is no unauthenticated path to a
// mutation.
func (s *Server) authenticated(next authHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := s.gate.Resolve(bearerToken(r))
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		next(w, r, accountID)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	account, err := s.gate.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"account_id": account.ID.String(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	token, err := s.gate.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.gate.Logout(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request, _ uuid.UUID) {
	symbol := model.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "no symbol provided")
		return
	}

	q, err := s.ledger.Quote(r.Context(), symbol)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol": q.Symbol,
		"price":  q.Price,
	})
}

// tradeRequest carries the symbol and share count of a buy or sell.
// Shares may arrive as a JSON number or a numeric string; anything else
// is an invalid quantity.
type tradeRequest struct {
	Symbol string          `json:"symbol"`
	Shares json.RawMessage `json:"shares"`
}

// parseShares converts the raw shares field into a positive integer.
func parseShares(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	text = strings.Trim(text, `"`)
	if text == "" {
		return 0, ledger.ErrInvalidQuantity
	}

	qty, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, ledger.ErrInvalidQuantity
	}
	return qty, nil
}

type tradeResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Holding holdingView     `json:"holding"`
}

type holdingView struct {
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	LastPrice decimal.Decimal `json:"last_price"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	s.handleTrade(w, r, accountID, s.ledger.Buy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	s.handleTrade(w, r, accountID, s.ledger.Sell)
}

func (s *Server) handleTrade(
	w http.ResponseWriter,
	r *http.Request,
	accountID uuid.UUID,
	execute func(ctx context.Context, id uuid.UUID, symbol string, qty int64) (*ledger.TradeResult, error),
) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	symbol := model.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "no symbol provided")
		return
	}

	qty, err := parseShares(req.Shares)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	result, err := execute(r.Context(), accountID, symbol, qty)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tradeResponse{
		Balance: result.Balance,
		Holding: holdingView{
			Symbol:    result.Holding.Symbol,
			Quantity:  result.Holding.Quantity,
			LastPrice: result.Holding.LastPrice,
		},
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	view, err := s.ledger.Portfolio(r.Context(), accountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	holdings := make([]holdingView, 0, len(view.Holdings))
	for _, h := range view.Holdings {
		holdings = append(holdings, holdingView{
			Symbol:    h.Symbol,
			Quantity:  h.Quantity,
			LastPrice: h.LastPrice,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"cash":     view.Cash,
		"holdings": holdings,
	})
}

type entryView struct {
	Action     string          `json:"action"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	entries, err := s.ledger.History(r.Context(), accountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			Action:     string(e.Action),
			Symbol:     e.Symbol,
			Quantity:   e.Quantity,
			Price:      e.Price,
			ExecutedAt: e.ExecutedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}
