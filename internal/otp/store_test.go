package otp

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewRedisStore(client, "test:", DefaultTTL)
	ctx := context.Background()

	issued := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Save(ctx, "alice@example.com", Record{Code: "123456", IssuedAt: issued}))

	rec, ok, err := store.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "123456", rec.Code)
	assert.True(t, issued.Equal(rec.IssuedAt))

	deleted, err := store.Delete(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, ok, err = store.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceWithRedisStore(t *testing.T) {
	client := newTestRedisClient(t)
	svc := NewService(NewRedisStore(client, "test:", DefaultTTL), nil, nil, Options{})
	ctx := context.Background()

	res, err := svc.Send(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Verify(ctx, "bob@example.com", "000000"), ErrInvalidCode)
	require.NoError(t, svc.Verify(ctx, "bob@example.com", res.Code))
	assert.ErrorIs(t, svc.Verify(ctx, "bob@example.com", res.Code), ErrNotFound)
}
