package stream

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchase_worker/core/domain"
	"purchase_worker/core/port/out"
	"purchase_worker/pkg/apperr"
)

var _ out.ResultPublisher = (*Producer)(nil)

func TestEncodeEntry(t *testing.T) {
	values, err := encodeEntry(map[string]string{"message_id": "m1"})
	require.NoError(t, err)

	data, ok := entryData(values)
	require.True(t, ok)
	assert.JSONEq(t, `{"message_id":"m1"}`, string(data))
}

func TestEntryData(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		wantOK bool
	}{
		{"string", map[string]any{"data": "{}"}, true},
		{"bytes", map[string]any{"data": []byte("{}")}, true},
		{"missing", map[string]any{"other": "{}"}, false},
		{"wrong type", map[string]any{"data": 42}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := entryData(tt.values)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNewParsedEvent(t *testing.T) {
	rec := &domain.ExtractionRecord{
		ID:          uuid.New(),
		MessageID:   "m1",
		Source:      domain.SourceLLM,
		Parsed:      &domain.ParsedEmail{Vendor: "rev", Type: domain.EmailTypeOrderConfirmation, Confidence: 0.9},
		NeedsReview: false,
		LLMFailure:  "",
		CreatedAt:   time.Date(2024, 1, 8, 10, 15, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(NewParsedEvent(rec))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "m1", decoded["message_id"])
	assert.Equal(t, "llm", decoded["source"])
	assert.NotContains(t, decoded, "llm_failure")
}

func TestPublish_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	p := NewProducer(NewRedisStream(client, "g", 0, 0), "mail:parsed")
	err := p.PublishResult(context.Background(), &domain.ExtractionRecord{ID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeExternalError, apperr.AsAppError(err).Code)
}

func TestConsume_StopsOnCanceledContext(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		NewRedisStream(client, "g", 1, time.Millisecond).Consume(ctx, "s", "c", func(context.Context, string, []byte) error {
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not return after cancel")
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}
