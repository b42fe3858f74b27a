package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "abc", []byte(`{"id":"abc"}`)))
	data, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"abc"}`, string(data))

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Load(ctx, "abc")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "abc"))
	require.NoError(t, store.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute))
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), "s1", []byte("{}")))
	now = now.Add(59 * time.Second)
	_, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = store.Load(context.Background(), "s1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore(0)
	buf := []byte("abc")
	require.NoError(t, store.Save(context.Background(), "s1", buf))
	buf[0] = 'x'
	data, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "kasir:session:", time.Hour)
	exerciseStore(t, store)

	require.NoError(t, store.Save(context.Background(), "ttl", []byte("{}")))
	require.True(t, mr.Exists("kasir:session:ttl"))
	require.Equal(t, time.Hour, mr.TTL("kasir:session:ttl"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Load(context.Background(), "ttl")
	require.ErrorIs(t, err, ErrNotFound)
}
