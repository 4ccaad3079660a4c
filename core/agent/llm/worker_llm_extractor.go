package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"purchase_worker/core/domain"
	"purchase_worker/core/port/out"
	"purchase_worker/pkg/logger"
)

// AgentResult is the discriminated outcome of one LLM extraction.
// On success Data is set; on failure Error and Kind are set, and RawResponse
// holds the model text when there was any.
type AgentResult struct {
	Success     bool                   `json:"success"`
	Data        *domain.ExtractedEmail `json:"data,omitempty"`
	Error       string                 `json:"error,omitempty"`
	RawResponse string                 `json:"rawResponse,omitempty"`
	Kind        FailureKind            `json:"kind,omitempty"`
}

func failed(kind FailureKind, msg, raw string) AgentResult {
	return AgentResult{Success: false, Error: msg, RawResponse: raw, Kind: kind}
}

// Extractor issues exactly one model call per email.
type Extractor struct {
	client       out.ModelClient
	maxBodyChars int
	maxTokens    int
}

type ExtractorOption func(*Extractor)

func WithMaxBodyChars(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBodyChars = n
		}
	}
}

func WithMaxTokens(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

func NewExtractor(client out.ModelClient, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client:       client,
		maxBodyChars: DefaultMaxBodyChars,
		maxTokens:    DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ParseEmail prompts the model once and validates the reply. It never
// returns an error; every failure is reported through AgentResult.
func (e *Extractor) ParseEmail(ctx context.Context, email *domain.EmailContent) AgentResult {
	if e.client == nil {
		return failed(FailureTransport, "no model client configured", "")
	}

	start := time.Now()
	resp, err := e.client.Complete(ctx, out.ModelRequest{
		System:    SystemPrompt(),
		User:      BuildUserPrompt(email, e.maxBodyChars),
		MaxTokens: e.maxTokens,
	})
	log := logger.WithField("provider", e.client.Provider()).WithDuration(time.Since(start))
	if err != nil {
		log.WithField("kind", string(FailureTransport)).WithError(err).Warn("llm extraction call failed")
		return failed(FailureTransport, fmt.Sprintf("Model request failed: %v", err), "")
	}

	raw, ok := firstText(resp)
	if !ok {
		log.WithField("kind", string(FailureNoTextBlock)).Warn("llm returned no text block")
		return failed(FailureNoTextBlock, "No text response from model", "")
	}

	data, err := ValidateResponse(raw)
	if err != nil {
		var extErr *ExtractionError
		if errors.As(err, &extErr) {
			log.WithField("kind", string(extErr.Kind)).Warn("llm response rejected: %s", extErr.Message)
			return failed(extErr.Kind, extErr.Message, extErr.RawResponse)
		}
		return failed(FailureSchema, err.Error(), raw)
	}

	log.WithFields(map[string]any{
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
		"vendor":        data.Vendor.Name,
	}).Debug("llm extraction succeeded")

	return AgentResult{Success: true, Data: data}
}

func firstText(resp *out.ModelResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, true
		}
	}
	return "", false
}

// ParseEmailWithAgent runs one extraction with a default Anthropic client
// for the given API key.
func ParseEmailWithAgent(ctx context.Context, email *domain.EmailContent, apiKey string) AgentResult {
	client := NewAnthropicClient(AnthropicConfig{APIKey: apiKey})
	return NewExtractor(client).ParseEmail(ctx, email)
}
