package out

import (
	"context"
	"time"

	"purchase_worker/core/domain"

	"github.com/google/uuid"
)

// ExtractionRepository 추출 결과 저장소
type ExtractionRepository interface {
	Save(ctx context.Context, record *domain.ExtractionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
}

// ResultCache caches extraction records by content hash.
type ResultCache interface {
	GetRecord(ctx context.Context, contentHash string) (*domain.ExtractionRecord, error)
	SetRecord(ctx context.Context, contentHash string, record *domain.ExtractionRecord, ttl time.Duration) error
}

// DuplicateGuard reports whether a message id is seen for the first time.
type DuplicateGuard interface {
	FirstSeen(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
}

// ResultPublisher 다운스트림 주문 처리로 결과 전달
type ResultPublisher interface {
	PublishResult(ctx context.Context, record *domain.ExtractionRecord) error
}
