package storage

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	require.NoError(t, store.Ping(context.Background()))
	runStoreContract(t, store)
}

func TestRedisStoreKeyLayout(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Put(context.Background(), sampleVideo("v1", "u1")))

	raw, err := mr.Get("video:v1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"id_video":"v1"`)
	assert.Contains(t, raw, `"status":"UPLOADED"`)
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("video:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	assert.Error(t, err)
}

// repeatScanHook makes every SCAN page report its keys twice, which Redis is
// allowed to do while a rehash is in progress.
type repeatScanHook struct{}

func (repeatScanHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (repeatScanHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if scan, ok := cmd.(*redis.ScanCmd); ok && err == nil {
			page, cursor := scan.Val()
			scan.SetVal(append(append([]string{}, page...), page...), cursor)
		}
		return err
	}
}

func (repeatScanHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisStoreListSkipsRepeatedKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	client.AddHook(repeatScanHook{})
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleVideo("o1", "owner-x")))
	require.NoError(t, store.Put(ctx, sampleVideo("o2", "owner-x")))

	got, err := store.ListByOwner(ctx, "owner-x")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
