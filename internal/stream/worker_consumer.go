package stream

import (
	"context"
	"fmt"
	"sync"

	"purchase_worker/pkg/logger"
)

// Consumer runs a fixed number of readers against one stream in one group.
type Consumer struct {
	stream      *RedisStream
	name        string
	source      string
	concurrency int
	handler     HandlerFunc
}

func NewConsumer(stream *RedisStream, source, name string, concurrency int, handler HandlerFunc) *Consumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consumer{
		stream:      stream,
		name:        name,
		source:      source,
		concurrency: concurrency,
		handler:     handler,
	}
}

// Run creates the group if needed and blocks until ctx is canceled and all
// readers have returned.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.stream.CreateGroup(ctx, c.source); err != nil {
		return err
	}

	logger.WithFields(map[string]any{
		"stream":      c.source,
		"consumer":    c.name,
		"concurrency": c.concurrency,
	}).Info("stream consumer started")

	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.stream.Consume(ctx, c.source, c.readerName(i), c.handler)
		}(i)
	}
	wg.Wait()

	logger.WithField("stream", c.source).Info("stream consumer stopped")
	return nil
}

// Each reader keeps its own pending list, so names must be stable across restarts.
func (c *Consumer) readerName(i int) string {
	if c.concurrency == 1 {
		return c.name
	}
	return fmt.Sprintf("%s-%d", c.name, i)
}
