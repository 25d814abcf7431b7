package clientauth_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/clientauth"
	"github.com/stretchr/testify/require"
)

func TestJTICacheSingleUse(t *testing.T) {
	cache := clientauth.NewJTICache()
	exp := time.Now().Add(time.Minute)

	require.False(t, cache.SeenOrAdd("jti-1", exp))
	require.True(t, cache.SeenOrAdd("jti-1", exp))
}

func TestJTICacheCleanupDropsExpired(t *testing.T) {
	cache := clientauth.NewJTICache()
	now := time.Now()

	cache.SeenOrAdd("stale", now.Add(-time.Minute))
	cache.SeenOrAdd("live", now.Add(time.Minute))
	require.Equal(t, 2, cache.Len())

	cache.Cleanup(now)
	require.Equal(t, 1, cache.Len())

	// A dropped jti may be presented again.
	require.False(t, cache.SeenOrAdd("stale", now.Add(time.Minute)))
}

func TestJTICacheSweepsDuringInserts(t *testing.T) {
	cache := clientauth.NewJTICache()
	cache.SeenOrAdd("stale", time.Now().Add(-time.Minute))

	// Enough inserts to pass the sweep threshold evict the expired entry
	// without an explicit Cleanup call.
	for i := 0; i < 512; i++ {
		cache.SeenOrAdd(fmt.Sprintf("jti-%d", i), time.Now().Add(time.Minute))
	}
	require.True(t, cache.Len() < 513)
	require.False(t, cache.SeenOrAdd("stale", time.Now().Add(time.Minute)))
}
