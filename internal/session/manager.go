package session

import (
	"context"
	"errors"
	"sync"

	"github.com/jeffersonbalde/syborg-portal/internal/apiclient"
)

// State tracks where the manager is in the restore cycle.
type State int

const (
	// StateStart is the initial state before Restore runs.
	StateStart State = iota
	// StateNoToken means the store held nothing; there is no session.
	StateNoToken
	// StateResolving means a stored token is being checked against the API.
	StateResolving
	// StateResolved means the session carries a verified identity.
	StateResolved
	// StateFailed means the stored token could not be resolved.
	StateFailed
)

// Manager is the single owner of the login session. All reads and writes of
// the current user, role, and token go through it.
type Manager struct {
	mu         sync.Mutex
	store      TokenStore
	resolver   Resolver
	state      State
	session    Session
	generation uint64
}

func NewManager(store TokenStore, resolver Resolver) *Manager {
	return &Manager{store: store, resolver: resolver, state: StateStart}
}

// Restore loads the persisted token and resolves it to an identity. With an
// empty store it settles immediately without touching the network. A token the
// server rejects is purged from the store; a token the server could not be
// asked about is kept for the next attempt.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	token, err := m.store.Read()
	if err != nil {
		m.state = StateNoToken
		m.session = Session{}
		m.mu.Unlock()
		return err
	}
	if token == "" {
		m.state = StateNoToken
		m.session = Session{}
		m.mu.Unlock()
		return nil
	}
	m.state = StateResolving
	m.generation++
	generation := m.generation
	m.mu.Unlock()

	identity, err := m.resolver.Me(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		// The session changed while this resolution was in flight.
		return nil
	}
	if err != nil {
		m.state = StateFailed
		m.session = Session{}
		if errors.Is(err, apiclient.ErrUnauthorized) {
			_ = m.store.Clear()
		}
		return err
	}
	m.state = StateResolved
	m.session = Session{User: &identity.User, Role: identity.Role, Token: token}
	return nil
}

// Login exchanges credentials for a session and persists the token.
func (m *Manager) Login(ctx context.Context, email, password string) (apiclient.Identity, error) {
	result, err := m.resolver.Login(ctx, email, password)
	if err != nil {
		return apiclient.Identity{}, err
	}

	m.mu.Lock()
	m.generation++
	m.state = StateResolved
	user := result.Identity.User
	m.session = Session{User: &user, Role: result.Identity.Role, Token: result.Token}
	m.mu.Unlock()

	if err := m.store.Write(result.Token); err != nil {
		return result.Identity, err
	}
	return result.Identity, nil
}

// Logout tells the server to drop the token, then clears local state no
// matter what the server said. Calling it without a session is a no-op.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.session.Token
	m.generation++
	m.state = StateNoToken
	m.session = Session{}
	m.mu.Unlock()

	_ = m.store.Clear()
	if token != "" {
		_ = m.resolver.Logout(ctx, token)
	}
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loading reports whether a restore is still resolving.
func (m *Manager) Loading() bool {
	return m.State() == StateResolving
}
