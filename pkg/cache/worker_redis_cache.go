package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"purchase_worker/core/domain"
)

// Key prefixes
const (
	resultKeyPrefix = "extract:result:"
	seenKeyPrefix   = "extract:seen:"
)

// RedisCache Redis 기반 캐시 구현
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 새 Redis 캐시 생성
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// GetJSON JSON으로 저장된 값 조회
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}

	return true, nil
}

// SetJSON 값을 JSON으로 저장
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 캐시에서 키 삭제
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Ping 연결 확인
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// =============================================================================
// Extraction Results
// =============================================================================

// ResultKey is the cache key for a content hash.
func ResultKey(contentHash string) string {
	return resultKeyPrefix + contentHash
}

// SeenKey is the dedup key for an inbound message id.
func SeenKey(messageID string) string {
	return seenKeyPrefix + messageID
}

// GetRecord returns the cached record for contentHash, or nil on a miss.
func (c *RedisCache) GetRecord(ctx context.Context, contentHash string) (*domain.ExtractionRecord, error) {
	var rec domain.ExtractionRecord
	found, err := c.GetJSON(ctx, ResultKey(contentHash), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// SetRecord caches a record under its content hash.
func (c *RedisCache) SetRecord(ctx context.Context, contentHash string, rec *domain.ExtractionRecord, ttl time.Duration) error {
	return c.SetJSON(ctx, ResultKey(contentHash), rec, ttl)
}

// FirstSeen marks messageID as seen with SETNX and reports whether this call
// was the first to do so.
func (c *RedisCache) FirstSeen(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, SeenKey(messageID), time.Now().Unix(), ttl).Result()
}

// Close 연결 종료
func (c *RedisCache) Close() error {
	return c.client.Close()
}
