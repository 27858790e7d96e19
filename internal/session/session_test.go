package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brandforge/contentpilot/internal/domain"
	"github.com/brandforge/contentpilot/internal/session"
	"github.com/brandforge/contentpilot/internal/store"
)

func testUser() *domain.User {
	return &domain.User{
		ID:             "u-1",
		Email:          "user@test.com",
		Name:           "Test User",
		EmailConfirmed: true,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestManager_InitialStateIsUnauthenticated(t *testing.T) {
	m := session.NewManager(context.Background(), store.NewMemory())
	require.Equal(t, session.Unauthenticated, m.State())
	require.Nil(t, m.User())
	require.Empty(t, m.PendingEmail())
}

func TestManager_MarkPendingThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := session.NewManager(ctx, kv)

	require.NoError(t, m.MarkPending(ctx, "user@test.com"))
	require.Equal(t, session.PendingConfirmation, m.State())
	require.Equal(t, "user@test.com", m.PendingEmail())

	flag, err := kv.Get(ctx, store.KeyNeedsConfirmation)
	require.NoError(t, err)
	require.NotNil(t, flag)

	require.NoError(t, m.Authenticate(ctx, testUser(), "tok-1"))
	require.Equal(t, session.Authenticated, m.State())
	require.Equal(t, "tok-1", m.Token())
	require.Empty(t, m.PendingEmail())

	// Pending markers cleared on authentication
	flag, err = kv.Get(ctx, store.KeyNeedsConfirmation)
	require.NoError(t, err)
	require.Nil(t, flag)
}

func TestManager_MarkPendingRejectedWhileAuthenticated(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(ctx, store.NewMemory())

	require.NoError(t, m.Authenticate(ctx, testUser(), "tok-1"))
	err := m.MarkPending(ctx, "other@test.com")
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, session.Authenticated, m.State())
}

func TestManager_LogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := session.NewManager(ctx, kv)

	require.NoError(t, m.Authenticate(ctx, testUser(), "tok-1"))
	require.NoError(t, m.Logout(ctx))

	require.Equal(t, session.Unauthenticated, m.State())
	require.Nil(t, m.User())
	require.Empty(t, m.Token())

	for _, key := range []string{store.KeyAuthToken, store.KeyUserData, store.KeyPendingEmail, store.KeyNeedsConfirmation} {
		v, err := kv.Get(ctx, key)
		require.NoError(t, err)
		require.Nil(t, v, "key %s should be removed", key)
	}
}

func TestManager_RestoresAuthenticatedState(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	m := session.NewManager(ctx, kv)
	require.NoError(t, m.Authenticate(ctx, testUser(), "tok-1"))

	restored := session.NewManager(ctx, kv)
	require.Equal(t, session.Authenticated, restored.State())
	require.NotNil(t, restored.User())
	require.Equal(t, "user@test.com", restored.User().Email)
	require.Equal(t, "tok-1", restored.Token())
}

func TestManager_RestoresPendingState(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	m := session.NewManager(ctx, kv)
	require.NoError(t, m.MarkPending(ctx, "pending@test.com"))

	restored := session.NewManager(ctx, kv)
	require.Equal(t, session.PendingConfirmation, restored.State())
	require.Equal(t, "pending@test.com", restored.PendingEmail())
}

func TestManager_MalformedUserDataFailsSoft(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, store.KeyAuthToken, []byte(`"tok-1"`)))
	require.NoError(t, kv.Set(ctx, store.KeyUserData, []byte(`{{{not json`)))

	m := session.NewManager(ctx, kv)
	require.Equal(t, session.Unauthenticated, m.State())

	// The dead session's keys are cleaned out of the store
	v, err := kv.Get(ctx, store.KeyAuthToken)
	require.NoError(t, err)
	require.Nil(t, v)
	v, err = kv.Get(ctx, store.KeyUserData)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestManager_RefreshUserUpdatesPersistedCopy(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := session.NewManager(ctx, kv)

	u := testUser()
	require.NoError(t, m.Authenticate(ctx, u, "tok-1"))

	u.Name = "Renamed"
	require.NoError(t, m.RefreshUser(ctx, u))
	require.Equal(t, "Renamed", m.User().Name)

	restored := session.NewManager(ctx, kv)
	require.Equal(t, "Renamed", restored.User().Name)
}
