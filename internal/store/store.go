// Package store provides the key/value port behind all persisted state.
// Implementations make no transactional guarantees: every read-then-write
// sequence is last-writer-wins, mirroring browser local storage.
package store

import (
	"context"
	"sync"
)

// Store is the persistence port. Get returns (nil, nil) for an absent key.
// Values are JSON documents; the file backend rejects anything else.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// Well-known keys, matching the persisted state layout.
const (
	KeyAuthToken         = "auth_token"
	KeyUserData          = "user_data"
	KeyRegisteredUsers   = "registered_users"
	KeyPendingEmail      = "pending_email"
	KeyNeedsConfirmation = "needs_email_confirmation"
)

func KeyBusinesses(userID string) string       { return "businesses_" + userID }
func KeySelectedBusiness(userID string) string { return "selected_business_" + userID }
func KeyVerifyCode(email string) string        { return "verify_code_" + email }

// Memory is an in-process Store used in tests and as the default backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
