package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/config"
)

func TestIsNilError(t *testing.T) {
	assert.True(t, IsNilError(redis.Nil))
	assert.True(t, IsNilError(fmt.Errorf("get search:1: %w", redis.Nil)))
	assert.False(t, IsNilError(fmt.Errorf("connection refused")))
	assert.False(t, IsNilError(nil))
}

func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("CS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CS_TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(context.Background(), config.RedisConfig{Addr: addr, PoolSize: 2})
	if err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetGetFlush(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("cs-test-%d:", time.Now().UnixNano())

	for i := 0; i < 150; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("%s%d", prefix, i), "v", time.Minute))
	}
	v, err := c.Get(ctx, prefix+"7")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	n, err := c.FlushByPattern(ctx, prefix+"*")
	require.NoError(t, err)
	assert.Equal(t, int64(150), n)

	_, err = c.Get(ctx, prefix+"7")
	assert.True(t, IsNilError(err))
}
