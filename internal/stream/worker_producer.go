package stream

import (
	"context"
	"time"

	"github.com/google/uuid"

	"purchase_worker/core/domain"
	"purchase_worker/pkg/apperr"
)

// ParsedEvent is the message written to the parsed stream for downstream
// order and inventory consumers.
type ParsedEvent struct {
	ID          uuid.UUID               `json:"id"`
	MessageID   string                  `json:"message_id,omitempty"`
	Source      domain.ExtractionSource `json:"source"`
	Parsed      *domain.ParsedEmail     `json:"parsed"`
	NeedsReview bool                    `json:"needs_review"`
	Forwarded   bool                    `json:"forwarded"`
	LLMFailure  string                  `json:"llm_failure,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Producer publishes extraction results. It implements out.ResultPublisher.
type Producer struct {
	stream *RedisStream
	target string
}

func NewProducer(stream *RedisStream, target string) *Producer {
	return &Producer{stream: stream, target: target}
}

func (p *Producer) PublishResult(ctx context.Context, rec *domain.ExtractionRecord) error {
	if _, err := p.stream.Publish(ctx, p.target, NewParsedEvent(rec)); err != nil {
		return apperr.ExternalError("redis stream "+p.target, err)
	}
	return nil
}

func NewParsedEvent(rec *domain.ExtractionRecord) *ParsedEvent {
	return &ParsedEvent{
		ID:          rec.ID,
		MessageID:   rec.MessageID,
		Source:      rec.Source,
		Parsed:      rec.Parsed,
		NeedsReview: rec.NeedsReview,
		Forwarded:   rec.Forwarded,
		LLMFailure:  rec.LLMFailure,
		CreatedAt:   rec.CreatedAt,
	}
}
