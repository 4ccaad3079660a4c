package worker

import (
	"context"
	"time"

	"purchase_worker/core/port/out"
	"purchase_worker/core/service/extraction"
	"purchase_worker/pkg/logger"
	"purchase_worker/pkg/metrics"
)

// =============================================================================
// Inbound Mail Processor
// =============================================================================
//
// One stream entry = one email. Malformed entries are logged and acknowledged
// since redelivery cannot fix them. Duplicates (same message id) are skipped.

type EmailProcessor struct {
	service  *extraction.Service
	dedup    out.DuplicateGuard
	dedupTTL time.Duration
	metrics  *metrics.Metrics
}

func NewEmailProcessor(service *extraction.Service, dedup out.DuplicateGuard, dedupTTL time.Duration, m *metrics.Metrics) *EmailProcessor {
	return &EmailProcessor{
		service:  service,
		dedup:    dedup,
		dedupTTL: dedupTTL,
		metrics:  m,
	}
}

// Handle matches stream.HandlerFunc.
func (p *EmailProcessor) Handle(ctx context.Context, entryID string, data []byte) error {
	log := logger.WithContext(ctx).WithField("entry_id", entryID)

	msg, email, err := DecodeInbound(data)
	if err != nil {
		log.WithError(err).Warn("discarding malformed inbound entry")
		return nil
	}

	messageID := msg.MessageID
	if messageID == "" {
		messageID = entryID
	}
	log = log.WithField("message_id", messageID)

	if p.dedup != nil && p.dedupTTL > 0 {
		first, err := p.dedup.FirstSeen(ctx, messageID, p.dedupTTL)
		switch {
		case err != nil:
			// Redis 장애 시 중복 처리보다 유실이 더 나쁨
			log.WithError(err).Warn("dedup check failed, processing anyway")
		case !first:
			if p.metrics != nil {
				p.metrics.DuplicatesTotal.Inc()
			}
			log.Debug("duplicate message skipped")
			return nil
		}
	}

	if p.metrics != nil {
		p.metrics.StreamInFlight.Inc()
		defer p.metrics.StreamInFlight.Dec()
	}

	res, err := p.service.Process(ctx, email, extraction.ProcessOptions{MessageID: messageID})
	if err != nil {
		log.WithError(err).Warn("inbound email rejected")
		return nil
	}

	log.WithFields(map[string]any{
		"extraction_id": res.ID,
		"vendor":        res.Parsed.Vendor,
		"source":        res.Source,
	}).Debug("inbound email processed")
	return nil
}
