// Package stream wraps Redis Streams consumer groups for inbound mail and
// parsed results.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"purchase_worker/pkg/logger"
)

// payloadField is the entry field every message body is stored under.
const payloadField = "data"

// HandlerFunc processes one stream entry. Returning an error leaves the entry
// pending so it is redelivered when the consumer restarts.
type HandlerFunc func(ctx context.Context, id string, data []byte) error

type RedisStream struct {
	client *redis.Client
	group  string
	batch  int64
	block  time.Duration
}

func NewRedisStream(client *redis.Client, group string, batch int, block time.Duration) *RedisStream {
	if batch <= 0 {
		batch = 10
	}
	if block <= 0 {
		block = 5 * time.Second
	}
	return &RedisStream{
		client: client,
		group:  group,
		batch:  int64(batch),
		block:  block,
	}
}

func (s *RedisStream) CreateGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", s.group, stream, err)
	}
	return nil
}

func (s *RedisStream) Publish(ctx context.Context, stream string, data any) (string, error) {
	values, err := encodeEntry(data)
	if err != nil {
		return "", err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
}

// Consume blocks until ctx is done. Entries still pending for this consumer
// from a previous run are replayed first, then new entries are read.
func (s *RedisStream) Consume(ctx context.Context, stream, consumer string, handler HandlerFunc) {
	log := logger.WithFields(map[string]any{"stream": stream, "consumer": consumer})

	// "0" = 내 pending 목록, ">" = 새 메시지
	cursor := "0"
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: consumer,
			Streams:  []string{stream, cursor},
			Count:    s.batch,
			Block:    s.block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.WithError(err).Warn("stream read failed")
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}

		delivered := 0
		lastID := ""
		for _, st := range streams {
			for _, msg := range st.Messages {
				delivered++
				lastID = msg.ID
				s.dispatch(ctx, st.Stream, msg, handler, log)
			}
		}

		// pending 재처리는 한 바퀴만: 실패한 항목은 다음 재시작 때 다시 시도
		if cursor != ">" {
			if delivered == 0 {
				cursor = ">"
			} else {
				cursor = lastID
			}
		}
	}
}

func (s *RedisStream) dispatch(ctx context.Context, stream string, msg redis.XMessage, handler HandlerFunc, log *logger.Logger) {
	data, ok := entryData(msg.Values)
	if !ok {
		// 형식 오류는 재시도해도 소용없음
		log.WithField("id", msg.ID).Warn("dropping entry without %q field", payloadField)
		s.ack(ctx, stream, msg.ID, log)
		return
	}

	if err := handler(ctx, msg.ID, data); err != nil {
		log.WithField("id", msg.ID).WithError(err).Error("handler failed, entry left pending")
		return
	}
	s.ack(ctx, stream, msg.ID, log)
}

func (s *RedisStream) ack(ctx context.Context, stream, id string, log *logger.Logger) {
	if err := s.Ack(ctx, stream, id); err != nil {
		log.WithField("id", id).WithError(err).Warn("ack failed")
	}
}

func (s *RedisStream) Ack(ctx context.Context, stream, id string) error {
	return s.client.XAck(ctx, stream, s.group, id).Err()
}

// Pending returns the number of entries delivered to the group and not yet acked.
func (s *RedisStream) Pending(ctx context.Context, stream string) (int64, error) {
	info, err := s.client.XPending(ctx, stream, s.group).Result()
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

func encodeEntry(data any) (map[string]any, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode stream entry: %w", err)
	}
	return map[string]any{payloadField: string(jsonData)}, nil
}

func entryData(values map[string]any) ([]byte, bool) {
	switch v := values[payloadField].(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
