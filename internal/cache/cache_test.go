package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MemoryFallback(t *testing.T) {
	viper.Set("cache.redis_addr", "")
	t.Cleanup(viper.Reset)

	store, err := New(context.Background())
	require.NoError(t, err)

	_, ok := store.(*persist.MemoryStore)
	assert.True(t, ok)
}

// Runs against a real server when REDIS_ADDR is set
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}))
	t.Cleanup(func() { s.C.Close() })

	type entry struct {
		Name string
		Size int
	}

	key := "filehub:test:" + time.Now().Format(time.RFC3339Nano)

	var got entry
	assert.ErrorIs(t, s.Get(key, &got), persist.ErrCacheMiss)

	require.NoError(t, s.Set(key, entry{Name: "a", Size: 3}, time.Minute))
	require.NoError(t, s.Get(key, &got))
	assert.Equal(t, entry{Name: "a", Size: 3}, got)

	require.NoError(t, s.Delete(key))
	assert.ErrorIs(t, s.Get(key, &got), persist.ErrCacheMiss)
}
