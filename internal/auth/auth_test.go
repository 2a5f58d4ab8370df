package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mfeller/stocksim/internal/ledger"
	"github.com/mfeller/stocksim/internal/storage/memory"
)

func newTestGate(opts ...Option) *Gate {
	// MinCost keeps hashing fast in tests.
	return NewGate(memory.NewStore(), append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)...)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate()

	account, err := gate.Register(ctx, " Alice@Example.com ", "hunter2")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if account.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized %q", account.Email, "alice@example.com")
	}
	if !account.Cash.Equal(ledger.StartingCash) {
		t.Errorf("Cash = %s, want %s", account.Cash, ledger.StartingCash)
	}
	if account.PasswordHash == "hunter2" {
		t.Error("PasswordHash stores the plain secret")
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := gate.Register(ctx, "alice@example.com", "other")
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Register error = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("empty email", func(t *testing.T) {
		_, err := gate.Register(ctx, "   ", "secret")
		if !errors.Is(err, ErrInvalidRegistration) {
			t.Errorf("Register error = %v, want ErrInvalidRegistration", err)
		}
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := gate.Register(ctx, "bob@example.com", "")
		if !errors.Is(err, ErrInvalidRegistration) {
			t.Errorf("Register error = %v, want ErrInvalidRegistration", err)
		}
	})
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate()

	account, err := gate.Register(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("correct credentials", func(t *testing.T) {
		token, err := gate.Login(ctx, "alice@example.com", "hunter2")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		id, err := gate.Resolve(token)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if id != account.ID {
			t.Errorf("Resolve id = %v, want %v", id, account.ID)
		}

		gate.Logout(token)
		if _, err := gate.Resolve(token); !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("Resolve after logout error = %v, want ErrNotAuthenticated", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := gate.Login(ctx, "alice@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := gate.Login(ctx, "nobody@example.com", "hunter2")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("logout unknown token is a no-op", func(t *testing.T) {
		gate.Logout("not-a-token")
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		gate := newTestGate()
		if _, err := gate.Resolve(""); !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("Resolve error = %v, want ErrNotAuthenticated", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		gate := newTestGate()
		if _, err := gate.Resolve("bogus"); !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("Resolve error = %v, want ErrNotAuthenticated", err)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		gate := newTestGate(WithSessionTTL(-time.Second))
		if _, err := gate.Register(ctx, "carol@example.com", "secret"); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		token, err := gate.Login(ctx, "carol@example.com", "secret")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if _, err := gate.Resolve(token); !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("Resolve error = %v, want ErrNotAuthenticated", err)
		}
	})
}
