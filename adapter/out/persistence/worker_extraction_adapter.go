package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"purchase_worker/core/domain"
	"purchase_worker/pkg/apperr"
)

// DBTX is the subset of pgxpool.Pool used by the adapter.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS extraction_results (
    id            UUID PRIMARY KEY,
    message_id    TEXT NOT NULL DEFAULT '',
    content_hash  TEXT NOT NULL,
    sender        TEXT NOT NULL DEFAULT '',
    subject       TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL,
    vendor        TEXT NOT NULL,
    email_type    TEXT NOT NULL,
    confidence    DOUBLE PRECISION NOT NULL,
    order_number  TEXT NOT NULL DEFAULT '',
    parsed        JSONB NOT NULL,
    extracted     JSONB,
    llm_error     TEXT NOT NULL DEFAULT '',
    llm_failure   TEXT NOT NULL DEFAULT '',
    needs_review  BOOLEAN NOT NULL DEFAULT FALSE,
    forwarded     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE extraction_results ADD COLUMN IF NOT EXISTS forwarded BOOLEAN NOT NULL DEFAULT FALSE;
CREATE INDEX IF NOT EXISTS idx_extraction_results_hash ON extraction_results (content_hash);
CREATE INDEX IF NOT EXISTS idx_extraction_results_message ON extraction_results (message_id) WHERE message_id <> '';
CREATE INDEX IF NOT EXISTS idx_extraction_results_review ON extraction_results (created_at) WHERE needs_review;
`

const insertSQL = `
INSERT INTO extraction_results (
    id, message_id, content_hash, sender, subject, source, vendor, email_type,
    confidence, order_number, parsed, extracted, llm_error, llm_failure, needs_review, forwarded, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO NOTHING`

const selectByIDSQL = `
SELECT id, message_id, content_hash, sender, subject, source,
       parsed, extracted, llm_error, llm_failure, needs_review, forwarded, created_at
FROM extraction_results
WHERE id = $1`

// ExtractionAdapter implements out.ExtractionRepository on PostgreSQL.
type ExtractionAdapter struct {
	db DBTX
}

func NewExtractionAdapter(db DBTX) *ExtractionAdapter {
	return &ExtractionAdapter{db: db}
}

// EnsureSchema creates the table and indexes if they do not exist.
func (a *ExtractionAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure extraction schema: %w", err)
	}
	return nil
}

func (a *ExtractionAdapter) Save(ctx context.Context, rec *domain.ExtractionRecord) error {
	if rec == nil || rec.Parsed == nil {
		return apperr.MissingField("parsed")
	}

	args, err := insertArgs(rec)
	if err != nil {
		return err
	}
	if _, err := a.db.Exec(ctx, insertSQL, args...); err != nil {
		return apperr.DatabaseError("save extraction", err)
	}
	return nil
}

func (a *ExtractionAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	var row extractionRow
	err := a.db.QueryRow(ctx, selectByIDSQL, id).Scan(
		&row.ID, &row.MessageID, &row.ContentHash, &row.Sender, &row.Subject, &row.Source,
		&row.Parsed, &row.Extracted, &row.LLMError, &row.LLMFailure, &row.NeedsReview, &row.Forwarded,
		&row.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("extraction")
	}
	if err != nil {
		return nil, apperr.DatabaseError("get extraction", err)
	}
	return row.toRecord()
}

// extractionRow represents the database row for extraction results.
type extractionRow struct {
	ID          uuid.UUID
	MessageID   string
	ContentHash string
	Sender      string
	Subject     string
	Source      string
	Parsed      []byte
	Extracted   []byte
	LLMError    string
	LLMFailure  string
	NeedsReview bool
	Forwarded   bool
	CreatedAt   time.Time
}

func (r *extractionRow) toRecord() (*domain.ExtractionRecord, error) {
	rec := &domain.ExtractionRecord{
		ID:          r.ID,
		MessageID:   r.MessageID,
		ContentHash: r.ContentHash,
		Sender:      r.Sender,
		Subject:     r.Subject,
		Source:      domain.ExtractionSource(r.Source),
		LLMError:    r.LLMError,
		LLMFailure:  r.LLMFailure,
		NeedsReview: r.NeedsReview,
		Forwarded:   r.Forwarded,
		CreatedAt:   r.CreatedAt,
	}

	var parsed domain.ParsedEmail
	if err := json.Unmarshal(r.Parsed, &parsed); err != nil {
		return nil, fmt.Errorf("decode parsed column: %w", err)
	}
	rec.Parsed = &parsed

	if len(r.Extracted) > 0 {
		var extracted domain.ExtractedEmail
		if err := json.Unmarshal(r.Extracted, &extracted); err != nil {
			return nil, fmt.Errorf("decode extracted column: %w", err)
		}
		rec.Extracted = &extracted
	}
	return rec, nil
}

func insertArgs(rec *domain.ExtractionRecord) ([]any, error) {
	parsed, err := json.Marshal(rec.Parsed)
	if err != nil {
		return nil, fmt.Errorf("encode parsed: %w", err)
	}

	var extracted []byte
	if rec.Extracted != nil {
		if extracted, err = json.Marshal(rec.Extracted); err != nil {
			return nil, fmt.Errorf("encode extracted: %w", err)
		}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return []any{
		rec.ID, rec.MessageID, rec.ContentHash, rec.Sender, rec.Subject, string(rec.Source),
		rec.Parsed.Vendor, string(rec.Parsed.Type), rec.Parsed.Confidence, rec.Parsed.OrderNumber,
		parsed, extracted, rec.LLMError, rec.LLMFailure, rec.NeedsReview, rec.Forwarded, createdAt,
	}, nil
}
