package credstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck-go/pkg/credstore"
)

func newRedisKV(t *testing.T) *credstore.RedisKV {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return credstore.NewRedisKV(client, "test:credentials")
}

func TestRedisKV(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		kv := newRedisKV(t)
		_, err := kv.Get(ctx, "auth.access_token")
		assert.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("set get remove", func(t *testing.T) {
		t.Parallel()

		kv := newRedisKV(t)
		require.NoError(t, kv.Set(ctx, "auth.access_token", "A"))

		value, err := kv.Get(ctx, "auth.access_token")
		require.NoError(t, err)
		assert.Equal(t, "A", value)

		require.NoError(t, kv.Remove(ctx, "auth.access_token"))
		_, err = kv.Get(ctx, "auth.access_token")
		assert.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("backs a full store", func(t *testing.T) {
		t.Parallel()

		store, err := credstore.New(newRedisKV(t))
		require.NoError(t, err)

		require.NoError(t, store.SetSession(ctx, credstore.Session{
			AccessToken:  "A",
			RefreshToken: "R",
			User:         &credstore.UserProfile{Email: "jane@example.com"},
		}))
		got, err := store.Session(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A", got.AccessToken)
	})
}
