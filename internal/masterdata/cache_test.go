package masterdata

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestCacheVersioning(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []string{"A"}, nil
	}
	var out []string
	require.NoError(t, cache.FetchJSON(ctx, &out, loader, "skus"))
	require.NoError(t, cache.FetchJSON(ctx, &out, loader, "skus"))
	require.Equal(t, []string{"A"}, out)
	require.Equal(t, 1, calls)
	require.True(t, mr.Exists("masterdata:skus:1"))

	require.NoError(t, cache.Bump(ctx))
	require.NoError(t, cache.FetchJSON(ctx, &out, loader, "skus"))
	require.Equal(t, 2, calls)
	require.True(t, mr.Exists("masterdata:skus:2"))

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists("masterdata:skus:2"))
}

func TestNilCacheCallsLoader(t *testing.T) {
	var cache *Cache
	var out int
	err := cache.FetchJSON(context.Background(), &out, func(context.Context) (any, error) { return 7, nil }, "n")
	require.NoError(t, err)
	require.Equal(t, 7, out)
	require.NoError(t, cache.Bump(context.Background()))

	require.Error(t, cache.FetchJSON(context.Background(), &out, nil))
}
