// Package session owns the authenticated identity for the lifetime of the
// process: startup recovery from the credential store, login, registration,
// logout and profile refresh. Everything else in the client reads session
// state from here.
package session

import (
	"context"
	"sync"

	"github.com/dmarquina/tienda-cli/internal/api"
	"github.com/dmarquina/tienda-cli/internal/logger"
)

// State is an immutable snapshot of the session.
type State struct {
	User           *api.UserProfile
	Initialized    bool
	Authenticating bool
	LastError      string
}

// IsAuthenticated reports whether a user is logged in.
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// Manager reconciles the locally cached profile with server validation and
// applies login/register/logout/refresh transitions. One instance per
// process; construct it explicitly and hand it to the views.
//
// Two concurrent Login calls race: the last response to resolve wins, which
// may not be the last call issued. The caller's UI is expected to disable
// the submit control while a request is in flight; the manager does not
// fence requests.
type Manager struct {
	client *api.Client
	store  *Store

	mu             sync.Mutex
	token          string
	user           *api.UserProfile
	initialized    bool
	authenticating bool
	lastError      string
	onChange       func(State)

	recoverOnce sync.Once
	recovered   chan struct{}
}

// NewManager creates a Manager and registers it as the client's token
// source.
func NewManager(client *api.Client, store *Store) *Manager {
	m := &Manager{
		client:    client,
		store:     store,
		recovered: make(chan struct{}),
	}
	client.SetTokenSource(m)
	return m
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	return State{
		User:           m.user,
		Initialized:    m.initialized,
		Authenticating: m.authenticating,
		LastError:      m.lastError,
	}
}

// OnChange registers a callback invoked after every state transition.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Manager) notify() {
	m.mu.Lock()
	cb := m.onChange
	st := m.snapshotLocked()
	m.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}

// Ensure runs the startup recovery exactly once per process and returns the
// resulting state. Concurrent callers share the same in-flight recovery
// instead of issuing duplicate validation requests.
func (m *Manager) Ensure(ctx context.Context) State {
	m.recoverOnce.Do(func() {
		defer close(m.recovered)
		m.recover(ctx)
	})
	<-m.recovered
	return m.Snapshot()
}

// recover rehydrates the session from the credential store. With a cached
// profile the session is restored optimistically and validated in the
// background; without one the profile fetch is authoritative.
func (m *Manager) recover(ctx context.Context) {
	token := m.store.LoadToken()
	if token == "" {
		m.mu.Lock()
		m.initialized = true
		m.mu.Unlock()
		m.notify()
		return
	}

	if cached := m.store.LoadProfile(); cached != nil {
		m.mu.Lock()
		m.token = token
		m.user = cached
		m.initialized = true
		m.mu.Unlock()
		m.notify()

		// Background validation; deliberately not bound to the caller's
		// context, it runs to completion even if the view goes away.
		go m.validate(token)
		return
	}

	// Token but no readable cached profile (partial write or first run on
	// this machine): the fetch decides.
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	fresh, err := m.client.Me(ctx)

	m.mu.Lock()
	if m.token != token {
		// A login or logout superseded the recovery while the fetch was in
		// flight; its result no longer applies.
		m.initialized = true
		m.mu.Unlock()
		m.notify()
		return
	}
	switch {
	case err == nil:
		m.user = fresh
		if saveErr := m.store.SaveProfile(fresh); saveErr != nil {
			logger.Warn("session: failed to cache profile: %v", saveErr)
		}
	case api.IsUnauthorized(err):
		logger.Info("session: stored token rejected, clearing session")
		m.store.Clear()
		m.token = ""
		m.user = nil
	default:
		logger.Warn("session: startup validation failed: %v", err)
		m.token = ""
		m.lastError = err.Error()
	}
	m.initialized = true
	m.mu.Unlock()
	m.notify()
}

// validate refreshes the profile behind an optimistic restore. The result
// is applied only while tok is still the active token.
func (m *Manager) validate(tok string) {
	fresh, err := m.client.Me(context.Background())

	m.mu.Lock()
	if m.token != tok {
		m.mu.Unlock()
		return
	}
	switch {
	case err == nil:
		m.user = fresh
		if saveErr := m.store.SaveProfile(fresh); saveErr != nil {
			logger.Warn("session: failed to cache profile: %v", saveErr)
		}
	case api.IsUnauthorized(err):
		// Indistinguishable from an expired token in normal operation, so
		// demote silently rather than surfacing a hard error.
		logger.Info("session: cached session invalid, clearing")
		m.store.Clear()
		m.token = ""
		m.user = nil
	default:
		logger.Warn("session: background validation failed: %v", err)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.notify()
}

// Login exchanges credentials for a session. On failure any partial token
// state is purged and the error is also recorded on LastError.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	return m.authenticate(ctx, func() (*api.AuthResponse, error) {
		return m.client.Login(ctx, api.LoginRequest{Email: email, Password: password})
	})
}

// Register creates an account and logs it in.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) error {
	return m.authenticate(ctx, func() (*api.AuthResponse, error) {
		return m.client.Register(ctx, req)
	})
}

func (m *Manager) authenticate(ctx context.Context, exchange func() (*api.AuthResponse, error)) error {
	m.mu.Lock()
	m.authenticating = true
	m.lastError = ""
	m.mu.Unlock()
	m.notify()

	resp, err := exchange()
	if err != nil {
		m.failAuth(err)
		return err
	}

	m.mu.Lock()
	m.token = resp.AccessToken
	m.mu.Unlock()
	if err := m.store.SaveToken(resp.AccessToken); err != nil {
		logger.Warn("session: failed to persist token: %v", err)
	}

	profile := resp.User
	if profile == nil {
		profile, err = m.client.Me(ctx)
		if err != nil {
			m.store.Clear()
			m.failAuth(err)
			return err
		}
	}
	if err := m.store.SaveProfile(profile); err != nil {
		logger.Warn("session: failed to cache profile: %v", err)
	}

	m.mu.Lock()
	m.user = profile
	m.authenticating = false
	m.initialized = true
	m.lastError = ""
	m.mu.Unlock()
	m.notify()

	logger.Info("session: authenticated as %s", profile.Email)
	return nil
}

func (m *Manager) failAuth(err error) {
	m.store.Clear()
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.authenticating = false
	m.initialized = true
	m.lastError = err.Error()
	m.mu.Unlock()
	m.notify()
}

// Logout clears the credential store and the in-memory session. It
// completes without a backend round trip.
func (m *Manager) Logout() {
	m.store.Clear()
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.authenticating = false
	m.initialized = true
	m.lastError = ""
	m.mu.Unlock()
	m.notify()
	logger.Info("session: logged out")
}

// RefreshUser refetches the profile and replaces it wholesale. A no-op when
// no user is logged in; an invalid token runs the same purge path as
// startup validation.
func (m *Manager) RefreshUser(ctx context.Context) error {
	m.mu.Lock()
	tok := m.token
	authed := m.user != nil
	m.mu.Unlock()
	if !authed {
		return nil
	}

	fresh, err := m.client.Me(ctx)

	m.mu.Lock()
	if m.token != tok {
		m.mu.Unlock()
		return nil
	}
	switch {
	case err == nil:
		m.user = fresh
		if saveErr := m.store.SaveProfile(fresh); saveErr != nil {
			logger.Warn("session: failed to cache profile: %v", saveErr)
		}
	case api.IsUnauthorized(err):
		m.store.Clear()
		m.token = ""
		m.user = nil
	default:
		m.lastError = err.Error()
	}
	m.mu.Unlock()
	m.notify()
	return err
}
