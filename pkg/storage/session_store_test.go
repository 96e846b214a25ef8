package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetSession(t *testing.T) {
	store := setupStore(t)

	created, err := store.CreateSession("Iris experiments")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Iris experiments", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := store.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestCreateSessionDefaultName(t *testing.T) {
	store := setupStore(t)

	created, err := store.CreateSession("  ")
	require.NoError(t, err)
	assert.NotEmpty(t, created.Name)
}

func TestGetSessionNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetSession("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTouchSession(t *testing.T) {
	store := setupStore(t)

	created, err := store.CreateSession("touch me")
	require.NoError(t, err)

	require.NoError(t, store.TouchSession(created.ID))
	assert.ErrorIs(t, store.TouchSession("missing"), ErrNotFound)
}

func TestListSessionsOrder(t *testing.T) {
	store := setupStore(t)

	a, err := store.CreateSession("a")
	require.NoError(t, err)
	_, err = store.CreateSession("b")
	require.NoError(t, err)

	// Touching a session bumps it to the top of the list.
	require.NoError(t, store.TouchSession(a.ID))

	sessions, err := store.ListSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, a.ID, sessions[0].ID)
}
