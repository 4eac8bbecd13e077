// Package session owns the client's in-memory session state: restore on
// startup, login, logout, and background re-verification of a restored
// token. All mutations funnel through the Manager so the rest of the
// application only ever observes consistent snapshots.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/ridelinkhq/ridelink/internal/authclient"
	"github.com/ridelinkhq/ridelink/internal/credstore"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/models"
	"go.uber.org/zap"
)

// ErrNotImplemented is returned by operations kept for interface parity with
// older callers. Google sign-in is the only supported flow.
var ErrNotImplemented = errors.New("not implemented, please use Google login")

// Verifier is the slice of the auth client the Manager depends on.
type Verifier interface {
	ExchangeProviderCredential(ctx context.Context, idToken string) (*authclient.LoginResult, error)
	FetchCurrentUser(ctx context.Context, token string) authclient.FetchResult
}

// Snapshot is an immutable view of the session. User == nil means
// unauthenticated. Restoring is true from construction until the initial
// restore attempt has resolved, whatever its outcome.
type Snapshot struct {
	User      *models.User
	Token     string
	Restoring bool
}

// Authenticated reports whether the snapshot represents a logged-in user.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Manager is the single writer of session state.
type Manager struct {
	client Verifier
	store  credstore.Store

	mu        sync.Mutex
	user      *models.User
	token     string
	restoring bool

	initOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a Manager in the Restoring state.
func NewManager(client Verifier, store credstore.Store) *Manager {
	return &Manager{
		client:    client,
		store:     store,
		restoring: true,
	}
}

// Initialize performs the one-time session restore. It reads the credential
// store synchronously: with both a token and a cached user present the
// session becomes authenticated from the cache immediately, before any
// network traffic, so a slow or unreachable backend never forces a login
// prompt. A background verification is then launched for the restored token.
// The restoring flag flips exactly once, here, and never waits for the
// background call.
//
// Store read failures are treated as "no credentials": the session starts
// anonymous rather than crashing or blocking.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		token, err := m.store.Token()
		if err != nil {
			logger.Warn("credential store read failed, starting logged out", zap.Error(err))
			token = ""
		}
		user, err := m.store.User()
		if err != nil {
			logger.Warn("cached user read failed, starting logged out", zap.Error(err))
			user = nil
		}

		restored := token != "" && user != nil

		m.mu.Lock()
		if restored {
			m.user = user
			m.token = token
		}
		m.restoring = false
		m.mu.Unlock()

		if restored {
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.applyVerification(token, m.client.FetchCurrentUser(ctx, token))
			}()
		}
	})
}

// applyVerification folds a background verification outcome into the
// session. issuedFor is the token the request was sent with; if the current
// token no longer matches (a login or logout happened meanwhile) the result
// is stale and dropped, whatever it says.
func (m *Manager) applyVerification(issuedFor string, res authclient.FetchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != issuedFor {
		logger.Debug("dropping stale verification result")
		return
	}

	switch res.Status {
	case authclient.FetchOK:
		m.user = res.User
		if err := m.store.SetToken(m.token); err != nil {
			logger.Warn("failed to persist refreshed token", zap.Error(err))
		}
		if err := m.store.SetUser(res.User); err != nil {
			logger.Warn("failed to persist refreshed user", zap.Error(err))
		}
	case authclient.FetchRejected:
		// The backend says the token is dead. This is the only verification
		// outcome allowed to destroy the session.
		logger.Info("stored session token rejected, logging out")
		if err := m.store.Clear(); err != nil {
			logger.Warn("failed to clear credential store", zap.Error(err))
		}
		m.user = nil
		m.token = ""
	case authclient.FetchIndeterminate:
		// Could be airplane mode, a proxy hiccup, or a 5xx. Keep the session:
		// availability wins over freshness when the outcome is ambiguous.
		logger.Debug("verification indeterminate, keeping cached session",
			zap.Int("status_code", res.StatusCode), zap.Error(res.Err))
	}
}

// Login exchanges a provider credential for a session token. The store
// writes and the in-memory transition happen under one lock: the token
// check in applyVerification only protects what shares its critical
// section, so a store written outside it could still be wiped by a stale
// rejection arriving between the write and the transition. A store write
// failure is logged and the in-memory transition still happens. On any
// exchange error the session is left untouched and the error is propagated
// for user-facing display.
func (m *Manager) Login(ctx context.Context, idToken string) error {
	result, err := m.client.ExchangeProviderCredential(ctx, idToken)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetToken(result.Token); err != nil {
		logger.Warn("failed to persist session token", zap.Error(err))
	}
	if err := m.store.SetUser(result.User); err != nil {
		logger.Warn("failed to persist user snapshot", zap.Error(err))
	}

	m.user = result.User
	m.token = result.Token
	return nil
}

// Logout clears the credential store and the in-memory session, under one
// lock for the same reason as Login: a stale successful verification must
// not be able to rewrite the store after it was cleared. The transition to
// anonymous is unconditional: a store failure is logged, never surfaced as
// a failed logout.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		logger.Warn("failed to clear credential store on logout", zap.Error(err))
	}

	m.user = nil
	m.token = ""
}

// Snapshot returns the current session state. The user record is copied so
// callers cannot mutate shared state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		User:      m.user.Clone(),
		Token:     m.token,
		Restoring: m.restoring,
	}
}

// LoginWithPassword is kept for interface parity with pre-Google clients.
func (m *Manager) LoginWithPassword(ctx context.Context, email, password string) error {
	return ErrNotImplemented
}

// Register is kept for interface parity with pre-Google clients.
func (m *Manager) Register(ctx context.Context, email, password, name, phone string) error {
	return ErrNotImplemented
}

// ToggleRole is kept for interface parity; role flags are server-owned.
func (m *Manager) ToggleRole(ctx context.Context) error {
	return ErrNotImplemented
}
