package credstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck-go/pkg/credstore"
)

func newStore(t *testing.T) *credstore.Store {
	t.Helper()
	store, err := credstore.New(credstore.NewMemoryKV())
	require.NoError(t, err)
	return store
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := credstore.New(nil)
	assert.ErrorIs(t, err, credstore.ErrNoKV)
}

func TestStore_SetSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round-trips the full credential set", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)

		written := credstore.Session{
			AccessToken:  "A",
			RefreshToken: "R",
			User:         &credstore.UserProfile{Email: "jane@example.com", Name: "Jane"},
		}
		require.NoError(t, store.SetSession(ctx, written))

		got, err := store.Session(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A", got.AccessToken)
		assert.Equal(t, "R", got.RefreshToken)
		require.NotNil(t, got.User)
		assert.Equal(t, "jane@example.com", got.User.Email)
	})

	t.Run("rejects refresh token without access token", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)

		err := store.SetSession(ctx, credstore.Session{RefreshToken: "R"})
		assert.ErrorIs(t, err, credstore.ErrInvalidSession)
	})

	t.Run("allows access token without refresh token", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)

		require.NoError(t, store.SetSession(ctx, credstore.Session{AccessToken: "A"}))
		got, err := store.Session(ctx)
		require.NoError(t, err)
		assert.True(t, got.IsAuthenticated())
		assert.Empty(t, got.RefreshToken)
	})
}

func TestStore_SetTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("overwrites pair and keeps the profile", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)

		require.NoError(t, store.SetSession(ctx, credstore.Session{
			AccessToken:  "A1",
			RefreshToken: "R1",
			User:         &credstore.UserProfile{Email: "jane@example.com"},
		}))
		require.NoError(t, store.SetTokens(ctx, "A2", "R2"))

		got, err := store.Session(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A2", got.AccessToken)
		assert.Equal(t, "R2", got.RefreshToken)
		require.NotNil(t, got.User)
		assert.Equal(t, "jane@example.com", got.User.Email)
	})

	t.Run("readers never observe a half-updated pair", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		require.NoError(t, store.SetSession(ctx, credstore.Session{AccessToken: "access-0", RefreshToken: "refresh-0"}))

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				suffix := string(rune('a' + i%26))
				_ = store.SetTokens(ctx, "access-"+suffix, "refresh-"+suffix)
			}(i)
		}
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := store.Session(ctx)
				if err != nil {
					return
				}
				// Pair must match: both tokens carry the same suffix.
				assert.Equal(t, got.AccessToken[len("access-"):], got.RefreshToken[len("refresh-"):])
			}()
		}
		wg.Wait()
	})
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newStore(t)
	require.NoError(t, store.SetSession(ctx, credstore.Session{
		AccessToken:  "A",
		RefreshToken: "R",
		User:         &credstore.UserProfile{Email: "jane@example.com"},
	}))
	require.NoError(t, store.Clear(ctx))

	got, err := store.Session(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.False(t, got.IsAuthenticated())
}

func TestStore_HydratesFromBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A second store over the same backend sees what the first wrote,
	// i.e. persistence survives process restarts.
	kv := credstore.NewMemoryKV()
	first, err := credstore.New(kv)
	require.NoError(t, err)
	require.NoError(t, first.SetSession(ctx, credstore.Session{
		AccessToken:  "A",
		RefreshToken: "R",
		User:         &credstore.UserProfile{Email: "jane@example.com", Company: "Acme"},
	}))

	second, err := credstore.New(kv)
	require.NoError(t, err)
	got, err := second.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", got.AccessToken)
	assert.Equal(t, "R", got.RefreshToken)
	require.NotNil(t, got.User)
	assert.Equal(t, "Acme", got.User.Company)
}
