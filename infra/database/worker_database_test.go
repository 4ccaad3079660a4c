package database

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgres_InvalidURL(t *testing.T) {
	_, err := NewPostgres(context.Background(), "::not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "http://localhost:6379")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestGetRedisStats(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	stats := GetRedisStats(client)
	require.NotNil(t, stats)
	assert.Zero(t, stats.Hits)
}

func TestDefaultRedisConfig_ReadTimeoutCoversBlock(t *testing.T) {
	assert.Greater(t, DefaultRedisConfig().ReadTimeout.Milliseconds(), int64(5000))
}
