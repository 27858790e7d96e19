// Package session holds the authentication state machine. A manager owns the
// session of one store context: at most one authenticated user at a time.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/brandforge/contentpilot/internal/domain"
	"github.com/brandforge/contentpilot/internal/store"
	"github.com/brandforge/contentpilot/pkg/logger"
)

type State int

const (
	Unauthenticated State = iota
	PendingConfirmation
	Authenticated
)

func (s State) String() string {
	switch s {
	case PendingConfirmation:
		return "pending_confirmation"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Manager mediates every session transition and mirrors the result into the
// store so the state survives restarts.
type Manager struct {
	mu    sync.Mutex
	store store.Store

	state        State
	user         *domain.User
	pendingEmail string
	token        string
}

// NewManager restores the initial state from the store. Malformed persisted
// data degrades to Unauthenticated instead of failing.
func NewManager(ctx context.Context, st store.Store) *Manager {
	m := &Manager{store: st, state: Unauthenticated}
	m.restore(ctx)
	return m
}

func (m *Manager) restore(ctx context.Context) {
	if raw, err := m.store.Get(ctx, store.KeyAuthToken); err == nil && raw != nil {
		var token string
		if json.Unmarshal(raw, &token) == nil && token != "" {
			var user domain.User
			rawUser, err := m.store.Get(ctx, store.KeyUserData)
			if err == nil && rawUser != nil && json.Unmarshal(rawUser, &user) == nil && user.ID != "" {
				m.state = Authenticated
				m.user = &user
				m.token = token
				return
			}
		}
		// Unreadable token or user data. Drop the stale keys so a dead
		// session does not linger in the store.
		logger.WarnContext(ctx, "Persisted session unreadable, discarding")
		_ = m.store.Remove(ctx, store.KeyAuthToken)
		_ = m.store.Remove(ctx, store.KeyUserData)
	}

	if raw, err := m.store.Get(ctx, store.KeyNeedsConfirmation); err == nil && raw != nil {
		var flag string
		if json.Unmarshal(raw, &flag) == nil && flag == "true" {
			var email string
			rawEmail, err := m.store.Get(ctx, store.KeyPendingEmail)
			if err == nil && rawEmail != nil && json.Unmarshal(rawEmail, &email) == nil && email != "" {
				m.state = PendingConfirmation
				m.pendingEmail = email
				return
			}
		}
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) User() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) PendingEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingEmail
}

func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) Snapshot() domain.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := domain.SessionInfo{State: m.state.String()}
	if m.user != nil {
		u := *m.user
		info.User = &u
	}
	info.PendingEmail = m.pendingEmail
	return info
}

// Authenticate moves the session to Authenticated, replacing any pending
// confirmation. Valid from every state: a login always supersedes.
func (m *Manager) Authenticate(ctx context.Context, user *domain.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rawToken, err := json.Marshal(token)
	if err != nil {
		return err
	}
	rawUser, err := json.Marshal(user)
	if err != nil {
		return err
	}

	if err := m.store.Set(ctx, store.KeyAuthToken, rawToken); err != nil {
		return fmt.Errorf("failed to persist auth token: %w", err)
	}
	if err := m.store.Set(ctx, store.KeyUserData, rawUser); err != nil {
		return fmt.Errorf("failed to persist user data: %w", err)
	}
	_ = m.store.Remove(ctx, store.KeyPendingEmail)
	_ = m.store.Remove(ctx, store.KeyNeedsConfirmation)

	m.state = Authenticated
	u := *user
	m.user = &u
	m.token = token
	m.pendingEmail = ""
	return nil
}

// MarkPending records that email ownership still has to be proven. Not valid
// while a user is authenticated.
func (m *Manager) MarkPending(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Authenticated {
		return fmt.Errorf("%w: already authenticated", domain.ErrValidation)
	}

	rawEmail, err := json.Marshal(email)
	if err != nil {
		return err
	}

	if err := m.store.Set(ctx, store.KeyPendingEmail, rawEmail); err != nil {
		return fmt.Errorf("failed to persist pending email: %w", err)
	}
	if err := m.store.Set(ctx, store.KeyNeedsConfirmation, []byte(`"true"`)); err != nil {
		return fmt.Errorf("failed to persist confirmation flag: %w", err)
	}

	m.state = PendingConfirmation
	m.pendingEmail = email
	m.user = nil
	m.token = ""
	return nil
}

// Logout clears every session key and returns to Unauthenticated.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.store.Remove(ctx, store.KeyAuthToken)
	_ = m.store.Remove(ctx, store.KeyUserData)
	_ = m.store.Remove(ctx, store.KeyPendingEmail)
	_ = m.store.Remove(ctx, store.KeyNeedsConfirmation)

	m.state = Unauthenticated
	m.user = nil
	m.token = ""
	m.pendingEmail = ""
	return nil
}

// RefreshUser updates the cached authenticated user after a mutation, such
// as a password reset, keeping the persisted copy in sync.
func (m *Manager) RefreshUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Authenticated || m.user == nil || m.user.ID != user.ID {
		return nil
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, store.KeyUserData, rawUser); err != nil {
		return err
	}
	u := *user
	m.user = &u
	return nil
}
