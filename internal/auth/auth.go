// Package auth maps credentials to accounts and sessions to identities.
//
// The gate has two states per caller: Anonymous and Authenticated. Login
// issues an opaque session token; Resolve turns a token back into an
// account id and is the only path by which a request gains an identity.
// Session state is held in the Gate, never in process globals.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mfeller/stocksim/internal/ledger"
	"github.com/mfeller/stocksim/internal/model"
	"github.com/mfeller/stocksim/internal/storage"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// secret. Callers cannot tell which.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrNotAuthenticated indicates the request carries no valid session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidRegistration indicates an empty email or secret.
	ErrInvalidRegistration = errors.New("email and password must not be empty")
)

type session struct {
	accountID uuid.UUID
	expiresAt time.Time
}

// Gate authenticates users and tracks their sessions.
type Gate struct {
	store  storage.Store
	cost   int
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]session
}

// Option configures a Gate.
type Option func(*Gate)

// WithBcryptCost sets the bcrypt work factor for new registrations.
func WithBcryptCost(cost int) Option {
	return func(g *Gate) {
		g.cost = cost
	}
}

// WithSessionTTL sets how long an issued session stays valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		g.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates an auth gate over the given store.
func NewGate(store storage.Store, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		cost:     bcrypt.DefaultCost,
		ttl:      24 * time.Hour,
		logger:   slog.Default(),
		sessions: make(map[string]session),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account with a freshly hashed secret and the
// fixed starting balance. The email must not already be registered.
func (g *Gate) Register(ctx context.Context, email, secret string) (*model.Account, error) {
	email = normalizeEmail(email)
	if email == "" || secret == "" {
		return nil, ErrInvalidRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), g.cost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	account := model.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Cash:         ledger.StartingCash,
		CreatedAt:    time.Now(),
	}

	if err := g.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	g.logger.Info("account registered", "account_id", account.ID, "email", email)
	return &account, nil
}

// Login verifies the credentials and, on success, issues a session token:
// Anonymous -> Authenticated. An unknown email and a wrong secret produce
// the same error.
func (g *Gate) Login(ctx context.Context, email, secret string) (string, error) {
	email = normalizeEmail(email)

	account, err := g.store.AccountByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(secret)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()

	g.mu.Lock()
	g.sessions[token] = session{
		accountID: account.ID,
		expiresAt: time.Now().Add(g.ttl),
	}
	g.mu.Unlock()

	g.logger.Info("login", "account_id", account.ID)
	return token, nil
}

// Logout invalidates the session unconditionally. Unknown tokens are a
// no-op: the end state is Anonymous either way.
func (g *Gate) Logout(token string) {
	g.mu.Lock()
	delete(g.sessions, token)
	g.mu.Unlock()
}

// Resolve maps a session token to an account id. Empty, unknown, and
// expired tokens all yield ErrNotAuthenticated.
func (g *Gate) Resolve(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrNotAuthenticated
	}

	g.mu.RLock()
	sess, ok := g.sessions[token]
	g.mu.RUnlock()

	if !ok {
		return uuid.Nil, ErrNotAuthenticated
	}
	if time.Now().After(sess.expiresAt) {
		g.Logout(token)
		return uuid.Nil, ErrNotAuthenticated
	}
	return sess.accountID, nil
}
