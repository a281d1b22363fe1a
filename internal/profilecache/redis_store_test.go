package profilecache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/patient-records-viewer/internal/records"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "test:cache", 0)
	ctx := context.Background()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded, "empty key should load as empty map")

	entries := map[string]Entry{
		"jane": {Status: StatusReady, Summary: records.Summary{ConditionSummary: "Stable."}},
		"bob":  {Status: StatusFailed, Reason: "boom"},
	}
	require.NoError(t, store.Save(ctx, entries))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "Stable.", loaded["jane"].Summary.ConditionSummary)
	require.Equal(t, StatusFailed, loaded["bob"].Status)
}

func TestRedisStoreTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "test:cache", time.Hour)

	require.NoError(t, store.Save(context.Background(), map[string]Entry{}))
	require.Equal(t, time.Hour, mr.TTL("test:cache"))
}

func TestRedisStoreNoTTLByDefault(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "test:cache", 0)

	require.NoError(t, store.Save(context.Background(), map[string]Entry{}))
	require.Zero(t, mr.TTL("test:cache"))
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set("test:cache", "not json"))

	_, err := NewRedisStore(client, "test:cache", 0).Load(context.Background())
	require.Error(t, err)
}

func TestRedisStoreDefaultKey(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "", 0)

	require.NoError(t, store.Save(context.Background(), map[string]Entry{}))
	require.True(t, mr.Exists(defaultRedisKey))
}
