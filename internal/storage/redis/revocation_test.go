package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRevokeAndCheck(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.True(t, mr.Exists("revoked:jti-1"))
	ttl := mr.TTL("revoked:jti-1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	mr.FastForward(time.Hour + time.Second)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry must expire with the token")
}

func TestRevoke_AlreadyExpired(t *testing.T) {
	store, mr := newStore(t)

	require.NoError(t, store.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked:old"))
}

func TestIsRevoked_ServerError(t *testing.T) {
	store, mr := newStore(t)
	mr.SetError("ERR boom")

	_, err := store.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = New(context.Background(), "redis://%zz")
	assert.Error(t, err)
}
