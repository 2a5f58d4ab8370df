package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mfeller/stocksim/internal/auth"
	"github.com/mfeller/stocksim/internal/ledger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeDomainError maps a typed domain error to its status, kind, and
// human-readable message. Each kind keeps a distinct message; anything
// unrecognized is a storage failure and is logged, never swallowed.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var status int
	var kind string

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, kind = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, auth.ErrNotAuthenticated):
		status, kind = http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, auth.ErrEmailTaken):
		status, kind = http.StatusConflict, "email_taken"
	case errors.Is(err, auth.ErrInvalidRegistration):
		status, kind = http.StatusBadRequest, "invalid_registration"
	case errors.Is(err, ledger.ErrInvalidQuantity):
		status, kind = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, ledger.ErrQuoteUnavailable):
		status, kind = http.StatusBadGateway, "quote_unavailable"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, kind = http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, ledger.ErrInsufficientShares):
		status, kind = http.StatusUnprocessableEntity, "insufficient_shares"
	default:
		s.logger.Error("storage failure", "error", err)
		s.writeError(w, http.StatusInternalServerError, "storage_failure", "the request could not be completed")
		return
	}

	s.writeError(w, status, kind, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
