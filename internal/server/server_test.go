package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mfeller/stocksim/internal/auth"
	"github.com/mfeller/stocksim/internal/ledger"
	"github.com/mfeller/stocksim/internal/model"
	"github.com/mfeller/stocksim/internal/storage/memory"
)

type stubQuotes struct {
	price decimal.Decimal
	err   error
}

func (q *stubQuotes) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	if q.err != nil {
		return nil, q.err
	}
	return &model.Quote{
		Symbol:    model.NormalizeSymbol(symbol),
		Price:     q.price,
		FetchedAt: time.Now(),
	}, nil
}

type testEnv struct {
	server *httptest.Server
	quotes *stubQuotes
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	quotes := &stubQuotes{price: decimal.NewFromInt(12)}
	gate := auth.NewGate(store, auth.WithBcryptCost(bcrypt.MinCost))
	svc := ledger.New(store, quotes)

	ts := httptest.NewServer(New(gate, svc, store, nil).Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, quotes: quotes}
}

// do issues a JSON request and decodes the response body into out.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	creds := map[string]string{"email": email, "password": "hunter2"}
	if status := e.do(t, http.MethodPost, "/api/register", "", creds, &map[string]any{}); status != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", status)
	}

	var login struct {
		Token string `json:"token"`
	}
	if status := e.do(t, http.MethodPost, "/api/login", "", creds, &login); status != http.StatusOK {
		t.Fatalf("login status = %d, want 200", status)
	}
	if login.Token == "" {
		t.Fatal("login returned empty token")
	}
	return login.Token
}

func errKind(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in body: %v", body)
	}
	kind, _ := errObj["kind"].(string)
	return kind
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	token := env.registerAndLogin(t, "alice@example.com")

	t.Run("portfolio starts at 500", func(t *testing.T) {
		var body struct {
			Cash     string           `json:"cash"`
			Holdings []map[string]any `json:"holdings"`
		}
		if status := env.do(t, http.MethodGet, "/api/portfolio", token, nil, &body); status != http.StatusOK {
			t.Fatalf("portfolio status = %d, want 200", status)
		}
		if body.Cash != "500" {
			t.Errorf("cash = %q, want 500", body.Cash)
		}
		if len(body.Holdings) != 0 {
			t.Errorf("len(holdings) = %d, want 0", len(body.Holdings))
		}
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		var body map[string]any
		creds := map[string]string{"email": "alice@example.com", "password": "other"}
		status := env.do(t, http.MethodPost, "/api/register", "", creds, &body)
		if status != http.StatusConflict {
			t.Errorf("status = %d, want 409", status)
		}
		if kind := errKind(t, body); kind != "email_taken" {
			t.Errorf("kind = %q, want email_taken", kind)
		}
	})

	t.Run("wrong password unauthorized", func(t *testing.T) {
		var body map[string]any
		creds := map[string]string{"email": "alice@example.com", "password": "wrong"}
		status := env.do(t, http.MethodPost, "/api/login", "", creds, &body)
		if status != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", status)
		}
		if kind := errKind(t, body); kind != "invalid_credentials" {
			t.Errorf("kind = %q, want invalid_credentials", kind)
		}
	})

	t.Run("logout invalidates token", func(t *testing.T) {
		if status := env.do(t, http.MethodPost, "/api/logout", token, nil, nil); status != http.StatusNoContent {
			t.Fatalf("logout status = %d, want 204", status)
		}
		var body map[string]any
		status := env.do(t, http.MethodGet, "/api/portfolio", token, nil, &body)
		if status != http.StatusUnauthorized {
			t.Errorf("status after logout = %d, want 401", status)
		}
		if kind := errKind(t, body); kind != "not_authenticated" {
			t.Errorf("kind = %q, want not_authenticated", kind)
		}
	})
}

func TestTradeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "bob@example.com")

	t.Run("buy", func(t *testing.T) {
		var body struct {
			Balance string `json:"balance"`
			Holding struct {
				Symbol   string `json:"symbol"`
				Quantity int64  `json:"quantity"`
			} `json:"holding"`
		}
		req := map[string]any{"symbol": "acme", "shares": 10}
		if status := env.do(t, http.MethodPost, "/api/buy", token, req, &body); status != http.StatusOK {
			t.Fatalf("buy status = %d, want 200", status)
		}
		if body.Balance != "380" {
			t.Errorf("balance = %q, want 380", body.Balance)
		}
		if body.Holding.Symbol != "ACME" || body.Holding.Quantity != 10 {
			t.Errorf("holding = %+v, want ACME 10", body.Holding)
		}
	})

	t.Run("shares as string accepted", func(t *testing.T) {
		req := map[string]any{"symbol": "ACME", "shares": "5"}
		if status := env.do(t, http.MethodPost, "/api/buy", token, req, &map[string]any{}); status != http.StatusOK {
			t.Fatalf("buy status = %d, want 200", status)
		}
	})

	t.Run("invalid share counts rejected", func(t *testing.T) {
		for _, shares := range []any{0, -3, "ten", "1.5", ""} {
			var body map[string]any
			req := map[string]any{"symbol": "ACME", "shares": shares}
			status := env.do(t, http.MethodPost, "/api/buy", token, req, &body)
			if status != http.StatusBadRequest {
				t.Errorf("shares=%v: status = %d, want 400", shares, status)
				continue
			}
			if kind := errKind(t, body); kind != "invalid_quantity" {
				t.Errorf("shares=%v: kind = %q, want invalid_quantity", shares, kind)
			}
		}
	})

	t.Run("missing symbol rejected", func(t *testing.T) {
		req := map[string]any{"symbol": "  ", "shares": 1}
		if status := env.do(t, http.MethodPost, "/api/buy", token, req, &map[string]any{}); status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		var body map[string]any
		req := map[string]any{"symbol": "ACME", "shares": 1_000_000}
		status := env.do(t, http.MethodPost, "/api/buy", token, req, &body)
		if status != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", status)
		}
		if kind := errKind(t, body); kind != "insufficient_funds" {
			t.Errorf("kind = %q, want insufficient_funds", kind)
		}
	})

	t.Run("sell more than held", func(t *testing.T) {
		var body map[string]any
		req := map[string]any{"symbol": "ACME", "shares": 100}
		status := env.do(t, http.MethodPost, "/api/sell", token, req, &body)
		if status != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", status)
		}
		if kind := errKind(t, body); kind != "insufficient_shares" {
			t.Errorf("kind = %q, want insufficient_shares", kind)
		}
	})

	t.Run("quote unavailable", func(t *testing.T) {
		env.quotes.err = errors.New("provider down")
		defer func() { env.quotes.err = nil }()

		var body map[string]any
		req := map[string]any{"symbol": "ACME", "shares": 1}
		status := env.do(t, http.MethodPost, "/api/buy", token, req, &body)
		if status != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", status)
		}
		if kind := errKind(t, body); kind != "quote_unavailable" {
			t.Errorf("kind = %q, want quote_unavailable", kind)
		}
	})

	t.Run("history records trades", func(t *testing.T) {
		var body struct {
			Entries []struct {
				Action   string `json:"action"`
				Symbol   string `json:"symbol"`
				Quantity int64  `json:"quantity"`
			} `json:"entries"`
		}
		if status := env.do(t, http.MethodGet, "/api/history", token, nil, &body); status != http.StatusOK {
			t.Fatalf("history status = %d, want 200", status)
		}
		if len(body.Entries) != 2 {
			t.Fatalf("len(entries) = %d, want 2", len(body.Entries))
		}
		if body.Entries[0].Action != "Bought" || body.Entries[0].Quantity != 10 {
			t.Errorf("entries[0] = %+v, want Bought 10", body.Entries[0])
		}
	})

	t.Run("anonymous trade rejected", func(t *testing.T) {
		var body map[string]any
		req := map[string]any{"symbol": "ACME", "shares": 1}
		for _, path := range []string{"/api/buy", "/api/sell"} {
			status := env.do(t, http.MethodPost, path, "", req, &body)
			if status != http.StatusUnauthorized {
				t.Errorf("%s anonymous status = %d, want 401", path, status)
			}
		}
	})
}

func TestQuoteEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "carol@example.com")

	var body struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if status := env.do(t, http.MethodGet, "/api/quote?symbol=acme", token, nil, &body); status != http.StatusOK {
		t.Fatalf("quote status = %d, want 200", status)
	}
	if body.Symbol != "ACME" {
		t.Errorf("symbol = %q, want ACME", body.Symbol)
	}
	if body.Price != "12" {
		t.Errorf("price = %q, want 12", body.Price)
	}

	t.Run("requires auth", func(t *testing.T) {
		status := env.do(t, http.MethodGet, "/api/quote?symbol=acme", "", nil, &map[string]any{})
		if status != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", status)
		}
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	if status := env.do(t, http.MethodGet, "/health", "", nil, &body); status != http.StatusOK {
		t.Fatalf("health status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}
