package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestKey(t *testing.T) {
	assert.Equal(t, "kanso:habits", Key("habits"))
	assert.Equal(t, "kanso:day:2026-10-16", Key("day", "2026-10-16"))
}

func TestOptions(t *testing.T) {
	assert.False(t, Options{}.Enabled())

	opts := Options{Host: "cache.local", Port: "6380"}
	assert.True(t, opts.Enabled())
	assert.Equal(t, "cache.local:6380", opts.Addr())
}

func TestRedisClient_Integration(t *testing.T) {
	_ = godotenv.Load("../../../.env")

	opts := Options{
		Host:     getEnv("KANSO_REDIS_HOST", "localhost"),
		Port:     getEnv("KANSO_REDIS_PORT", "6379"),
		Password: getEnv("KANSO_REDIS_PASSWORD", ""),
		DB:       1,
	}

	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, opts)
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	defer rdb.Close()

	require.NoError(t, rdb.FlushDB(ctx).Err(), "Failed to flush test DB")

	t.Run("Set and Get Value", func(t *testing.T) {
		key := Key("test", "value")

		err := rdb.Set(ctx, key, "hello redis", time.Minute).Err()
		require.NoError(t, err)

		val, err := rdb.Get(ctx, key).Result()
		assert.NoError(t, err)
		assert.Equal(t, "hello redis", val)

		rdb.Del(ctx, key)
	})

	t.Run("Expire Check", func(t *testing.T) {
		key := Key("test", "expire")
		err := rdb.Set(ctx, key, "expire_me", time.Second).Err()
		require.NoError(t, err)

		time.Sleep(1100 * time.Millisecond)

		_, err = rdb.Get(ctx, key).Result()
		assert.ErrorIs(t, err, redis.Nil, "Errors need to be of type 'redis.Nil'")
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		concurrency := 20
		done := make(chan bool)

		for i := 0; i < concurrency; i++ {
			go func(id int) {
				key := Key("concurrent", fmt.Sprint(id))
				err := rdb.Set(ctx, key, "val", 10*time.Second).Err()
				assert.NoError(t, err)

				_, err = rdb.Get(ctx, key).Result()
				assert.NoError(t, err)

				done <- true
			}(i)
		}

		for i := 0; i < concurrency; i++ {
			<-done
		}
	})
}
