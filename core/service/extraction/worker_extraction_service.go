package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"purchase_worker/core/agent/llm"
	"purchase_worker/core/domain"
	"purchase_worker/core/port/out"
	"purchase_worker/pkg/apperr"
	"purchase_worker/pkg/logger"
	"purchase_worker/pkg/metrics"
	"purchase_worker/pkg/resilience"
)

// =============================================================================
// Extraction Workflow
// =============================================================================
//
// Service is the caller-side policy around the two extraction paths:
//
//	cache → deterministic pipeline → (LLM via Guard) → pick winner → store/publish
//
// The deterministic result is always computed. The LLM is consulted when the
// deterministic confidence is below the fallback threshold, when the email
// carries a forwarder note, or when the caller forces it.
//
// Results are cached by content hash, except when the LLM failed or was
// switched off for an email it would otherwise have been asked about.

// ReviewThreshold is the confidence below which results are flagged.
const ReviewThreshold = 0.5

// LLM outcome labels beyond llm.FailureKind.
const (
	llmOutcomeSuccess     = "success"
	llmOutcomeCircuitOpen = "circuit_open"
	llmOutcomeRateLimited = "rate_limited"
	llmOutcomeTimeout     = "timeout"
	llmOutcomeCanceled    = "canceled"
)

type ServiceConfig struct {
	FallbackThreshold float64
	LLMEnabled        bool
	CacheTTL          time.Duration
}

// ServiceDeps holds dependencies for creating a Service. Everything except
// Pipeline is optional.
type ServiceDeps struct {
	Pipeline   *Pipeline
	Extractor  *llm.Extractor
	Guard      *resilience.Guard
	Repository out.ExtractionRepository
	Cache      out.ResultCache
	Publisher  out.ResultPublisher
	Metrics    *metrics.Metrics
}

type Service struct {
	cfg        ServiceConfig
	pipeline   *Pipeline
	extractor  *llm.Extractor
	guard      *resilience.Guard
	repository out.ExtractionRepository
	cache      out.ResultCache
	publisher  out.ResultPublisher
	metrics    *metrics.Metrics
}

func NewService(deps ServiceDeps, cfg ServiceConfig) *Service {
	if deps.Pipeline == nil {
		deps.Pipeline = NewPipeline(nil)
	}
	return &Service{
		cfg:        cfg,
		pipeline:   deps.Pipeline,
		extractor:  deps.Extractor,
		guard:      deps.Guard,
		repository: deps.Repository,
		cache:      deps.Cache,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
	}
}

// ProcessOptions tunes a single Process call.
type ProcessOptions struct {
	MessageID  string
	ForceLLM   bool
	DisableLLM bool
	SkipCache  bool
}

// Outcome is the result handed back to callers.
type Outcome struct {
	ID          uuid.UUID               `json:"id"`
	MessageID   string                  `json:"messageId,omitempty"`
	Parsed      *domain.ParsedEmail     `json:"parsed"`
	Source      domain.ExtractionSource `json:"source"`
	Extracted   *domain.ExtractedEmail  `json:"extracted,omitempty"`
	LLMError    string                  `json:"llmError,omitempty"`
	LLMFailure  string                  `json:"llmFailure,omitempty"`
	NeedsReview bool                    `json:"needsReview"`
	Forwarded   bool                    `json:"forwarded"`
	Cached      bool                    `json:"cached"`
}

// LLMAvailable reports whether the LLM path is configured and enabled.
func (s *Service) LLMAvailable() bool {
	return s.extractor != nil && s.cfg.LLMEnabled
}

// Pipeline exposes the deterministic pipeline.
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// Process runs the workflow. It fails only on invalid input or when the
// caller forces the LLM and none is available; every other failure is
// logged and absorbed.
func (s *Service) Process(ctx context.Context, email *domain.EmailContent, opts ProcessOptions) (*Outcome, error) {
	if email == nil {
		return nil, apperr.MissingField("email")
	}
	if opts.ForceLLM && !s.LLMAvailable() {
		return nil, apperr.LLMUnavailable("no model client configured")
	}

	log := logger.WithContext(ctx).WithField("message_id", opts.MessageID)
	hash := ContentHash(email)

	if s.cache != nil && !opts.SkipCache && !opts.ForceLLM {
		rec, err := s.cache.GetRecord(ctx, hash)
		switch {
		case err != nil:
			log.WithError(err).Warn("result cache lookup failed")
		case rec != nil:
			s.countCache("hit")
			cached := outcomeFromRecord(rec)
			cached.Cached = true
			return cached, nil
		default:
			s.countCache("miss")
		}
	}

	start := time.Now()
	pr := s.pipeline.Process(email)
	s.metrics.ObserveStage("deterministic", start)

	record := &domain.ExtractionRecord{
		ID:          uuid.New(),
		MessageID:   opts.MessageID,
		ContentHash: hash,
		Sender:      email.From,
		Subject:     email.Subject,
		Source:      domain.SourceDeterministic,
		Parsed:      pr.Parsed,
		Forwarded:   pr.Forwarded != nil,
		CreatedAt:   time.Now().UTC(),
	}

	if s.shouldConsultLLM(pr, opts) {
		s.consultLLM(ctx, email, record)
	}

	record.NeedsReview = NeedsReview(record.Parsed)
	if record.NeedsReview && s.metrics != nil {
		s.metrics.NeedsReviewTotal.Inc()
	}
	if s.metrics != nil {
		s.metrics.ExtractionsTotal.WithLabelValues(string(record.Source), string(record.Parsed.Type)).Inc()
	}

	// 일시적 LLM 실패나 llm=off로 건너뛴 결과는 캐시하지 않음 (다음 요청에서 재시도)
	cacheable := record.LLMFailure == "" && !(opts.DisableLLM && s.wantsLLM(pr))
	s.persist(ctx, record, cacheable)

	result := outcomeFromRecord(record)

	log.WithFields(map[string]any{
		"vendor":       record.Parsed.Vendor,
		"type":         record.Parsed.Type,
		"confidence":   record.Parsed.Confidence,
		"source":       record.Source,
		"needs_review": record.NeedsReview,
	}).WithDuration(time.Since(start)).Info("email processed")

	return result, nil
}

func (s *Service) shouldConsultLLM(pr *PipelineResult, opts ProcessOptions) bool {
	if opts.DisableLLM || !s.LLMAvailable() {
		return false
	}
	return opts.ForceLLM || s.wantsLLM(pr)
}

// wantsLLM is the default policy: low deterministic confidence or a
// forwarder note.
func (s *Service) wantsLLM(pr *PipelineResult) bool {
	if !s.LLMAvailable() {
		return false
	}
	return pr.Parsed.Confidence < s.cfg.FallbackThreshold || pr.ForwarderNote() != ""
}

// consultLLM runs one guarded extraction and folds it into record. The
// higher-confidence result wins; ties keep the deterministic one.
func (s *Service) consultLLM(ctx context.Context, email *domain.EmailContent, record *domain.ExtractionRecord) {
	start := time.Now()
	defer s.metrics.ObserveStage("llm", start)

	var res llm.AgentResult
	call := func(ctx context.Context) error {
		res = s.extractor.ParseEmail(ctx, email)
		if !res.Success && res.Kind == llm.FailureTransport {
			return errors.New(res.Error)
		}
		return nil
	}

	var err error
	if s.guard != nil {
		err = s.guard.Do(ctx, call)
	} else {
		err = call(ctx)
	}

	outcome := llmOutcomeSuccess
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = llmOutcomeCircuitOpen
		record.LLMError = err.Error()
	case errors.Is(err, resilience.ErrRateLimited):
		outcome = llmOutcomeRateLimited
		record.LLMError = err.Error()
	case errors.Is(err, context.DeadlineExceeded) && res.Kind == "":
		outcome = llmOutcomeTimeout
		record.LLMError = err.Error()
	case !res.Success:
		outcome = string(res.Kind)
		if outcome == "" {
			outcome = llmOutcomeCanceled
		}
		record.LLMError = res.Error
		if record.LLMError == "" && err != nil {
			record.LLMError = err.Error()
		}
	}
	if s.metrics != nil {
		s.metrics.LLMCallsTotal.WithLabelValues(outcome).Inc()
	}
	if outcome != llmOutcomeSuccess {
		record.LLMFailure = outcome
		logger.WithContext(ctx).WithField("kind", outcome).Warn("llm extraction failed, keeping deterministic result: %s", record.LLMError)
		return
	}

	record.Extracted = res.Data
	if candidate := llm.ToParserResult(res.Data); candidate.Confidence > record.Parsed.Confidence {
		record.Parsed = candidate
		record.Source = domain.SourceLLM
	}
}

func (s *Service) persist(ctx context.Context, record *domain.ExtractionRecord, cacheable bool) {
	if s.repository != nil {
		if err := s.repository.Save(ctx, record); err != nil {
			logger.WithContext(ctx).WithError(err).Error("failed to save extraction %s", record.ID)
		}
	}
	if s.cache != nil && s.cfg.CacheTTL > 0 && cacheable {
		if err := s.cache.SetRecord(ctx, record.ContentHash, record, s.cfg.CacheTTL); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("failed to cache extraction %s", record.ID)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishResult(ctx, record); err != nil {
			logger.WithContext(ctx).WithError(err).Error("failed to publish extraction %s", record.ID)
		}
	}
}

// Get loads a stored record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	if s.repository == nil {
		return nil, apperr.NotFound("extraction")
	}
	return s.repository.GetByID(ctx, id)
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// NeedsReview reports whether a result should go to a human before any
// order is created from it.
func NeedsReview(p *domain.ParsedEmail) bool {
	return !p.IsActionable(ReviewThreshold)
}

func outcomeFromRecord(rec *domain.ExtractionRecord) *Outcome {
	return &Outcome{
		ID:          rec.ID,
		MessageID:   rec.MessageID,
		Parsed:      rec.Parsed,
		Source:      rec.Source,
		Extracted:   rec.Extracted,
		LLMError:    rec.LLMError,
		LLMFailure:  rec.LLMFailure,
		NeedsReview: rec.NeedsReview,
		Forwarded:   rec.Forwarded,
	}
}

// ContentHash identifies an email by its content, independent of transport ids.
func ContentHash(email *domain.EmailContent) string {
	h := sha256.New()
	for _, part := range []string{email.From, email.To, email.Subject, email.Text, email.HTML} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
