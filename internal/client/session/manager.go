// Package session manages the client's authentication lifecycle: acquiring a
// bearer token, attaching it to API requests, revalidating it periodically and
// clearing it on any failure.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/GophNotes/internal/client/api"
	"github.com/atinyakov/GophNotes/internal/client/status"
	"github.com/atinyakov/GophNotes/internal/models"
	"go.uber.org/zap"
)

// DefaultTokenTTL is how long a stored token stays valid without revalidation.
const DefaultTokenTTL = 24 * time.Hour

// State is the authentication state of a Manager.
type State int

const (
	// Unauthenticated means no accepted token is held.
	Unauthenticated State = iota
	// Validating means a stored token is being checked for the first time.
	Validating
	// Authenticated means the held token was accepted by the backend.
	Authenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenTTL overrides DefaultTokenTTL.
func WithTokenTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock overrides time.Now when computing token expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the session state. It is the only writer of the client's
// default Authorization header. All methods are safe for concurrent use;
// overlapping validations resolve as last write wins.
type Manager struct {
	client *api.Client
	tokens TokenStore
	status *status.Status
	log    *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	state   State
	account *models.Account
}

// NewManager creates an Unauthenticated Manager.
func NewManager(client *api.Client, tokens TokenStore, st *status.Status, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		client: client,
		tokens: tokens,
		status: st,
		log:    log,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
		state:  Unauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Authorized reports whether the session is Authenticated.
func (m *Manager) Authorized() bool {
	return m.State() == Authenticated
}

// Account returns the account confirmed by the last successful validation.
func (m *Manager) Account() (models.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.account == nil {
		return models.Account{}, false
	}
	return *m.account, true
}

// Login exchanges email and password for a token, persists it and attaches
// it to subsequent requests. Any failure leaves the session Unauthenticated.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		m.status.SetError(msgLoginFieldsRequired)
		return &AuthError{Op: "login", Err: fmt.Errorf("%w: %s", ErrMissingFields, msgLoginFieldsRequired)}
	}

	done := m.status.Begin()
	defer done()

	tok, err := m.client.Token(ctx, email, password)
	if err != nil {
		return m.fail("login", err)
	}
	if err := m.tokens.Save(tok.AccessToken, m.now().Add(m.ttl)); err != nil {
		return m.fail("login", fmt.Errorf("persist token: %w", err))
	}

	m.client.SetBearer(tok.AccessToken)
	m.mu.Lock()
	m.state = Authenticated
	m.account = nil
	m.mu.Unlock()

	m.log.Info("logged in", zap.String("email", email))
	return nil
}

// Register creates an account. It does not log the new account in.
func (m *Manager) Register(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		m.status.SetError(msgRegisterFieldsRequired)
		return &AuthError{Op: "register", Err: fmt.Errorf("%w: %s", ErrMissingFields, msgRegisterFieldsRequired)}
	}

	done := m.status.Begin()
	defer done()

	acc, err := m.client.CreateUser(ctx, models.Registration{Username: username, Email: email, Password: password})
	if err != nil {
		m.log.Warn("registration failed", zap.String("email", email), zap.Error(err))
		m.status.SetError(api.Message(err))
		return &AuthError{Op: "register", Err: err}
	}

	m.log.Info("registered", zap.Int64("account_id", acc.ID), zap.String("username", acc.Username))
	m.status.SetMessage(msgRegistered)
	return nil
}

// Validate checks the stored token against the backend. Without a stored
// token the session is cleared and no request is made. On success the token
// is stored again with a fresh expiry; on any failure the session is cleared.
// A cancelled ctx aborts the check without changing the session. A ctx
// deadline counts as a cancellation, not as a network failure.
func (m *Manager) Validate(ctx context.Context) error {
	done := m.status.Begin()
	defer done()

	m.mu.Lock()
	if m.state == Unauthenticated {
		m.state = Validating
	}
	m.mu.Unlock()

	token, err := m.tokens.Load()
	if err != nil {
		m.log.Warn("cannot read stored token", zap.Error(err))
		token = ""
	}
	if token == "" {
		m.log.Debug("no stored token")
		m.clear()
		return nil
	}

	acc, err := m.client.Me(ctx, api.WithBearer(token))
	if err != nil {
		if ctx.Err() != nil {
			m.resetValidating()
			return &AuthError{Op: "validate", Err: ctx.Err()}
		}
		return m.fail("validate", err)
	}
	if err := m.tokens.Save(token, m.now().Add(m.ttl)); err != nil {
		return m.fail("validate", fmt.Errorf("persist token: %w", err))
	}

	m.client.SetBearer(token)
	m.mu.Lock()
	m.state = Authenticated
	m.account = &acc
	m.mu.Unlock()

	m.log.Debug("session valid", zap.Int64("account_id", acc.ID))
	return nil
}

// Logout clears the stored token, the request header and the session state.
func (m *Manager) Logout() {
	m.clear()
	m.log.Info("logged out")
}

// AccountID returns the id of the authenticated account, asking the backend
// when the session was established by Login and not yet validated.
func (m *Manager) AccountID(ctx context.Context) (int64, error) {
	if acc, ok := m.Account(); ok {
		return acc.ID, nil
	}
	if !m.Authorized() {
		return 0, &AuthError{Op: "account", Err: ErrNotAuthenticated}
	}

	acc, err := m.client.Me(ctx)
	if err != nil {
		return 0, &AuthError{Op: "account", Err: err}
	}
	m.mu.Lock()
	if m.state == Authenticated {
		m.account = &acc
	}
	m.mu.Unlock()
	return acc.ID, nil
}

// fail clears the session, surfaces err and wraps it.
func (m *Manager) fail(op string, err error) error {
	m.log.Warn("session failure", zap.String("op", op), zap.Error(err))
	m.clear()
	m.status.SetError(api.Message(err))
	return &AuthError{Op: op, Err: err}
}

func (m *Manager) clear() {
	if err := m.tokens.Clear(); err != nil {
		m.log.Error("cannot remove stored token", zap.Error(err))
	}
	m.client.ClearBearer()

	m.mu.Lock()
	m.state = Unauthenticated
	m.account = nil
	m.mu.Unlock()
}

func (m *Manager) resetValidating() {
	m.mu.Lock()
	if m.state == Validating {
		m.state = Unauthenticated
	}
	m.mu.Unlock()
}
