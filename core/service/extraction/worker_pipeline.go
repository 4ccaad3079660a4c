// Package extraction turns inbound purchase emails into structured results.
package extraction

import (
	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction/forward"
	"purchase_worker/core/service/extraction/vendor"
)

// =============================================================================
// Deterministic Pipeline
// =============================================================================

// Pipeline orchestrates the deterministic path:
//
//	EmailContent → unwrap (if forwarded) → registry lookup → parser → ParsedEmail
//
// It performs no I/O and holds no mutable state.
type Pipeline struct {
	registry *vendor.Registry
	maxDepth int
}

// maxUnwrapDepth bounds nested forwards (a forward of a forward).
const maxUnwrapDepth = 3

// PipelineResult carries the parse plus what the unwrapper saw.
// Forwarded is the outermost envelope; Unwrapped is the email that was
// finally parsed (nil when the input was not forwarded).
type PipelineResult struct {
	Parsed    *domain.ParsedEmail
	Forwarded *domain.ForwardedEmailContent
	Unwrapped *domain.EmailContent
}

// ForwarderNote returns the text the forwarder wrote above the envelope.
func (r *PipelineResult) ForwarderNote() string {
	if r == nil || r.Forwarded == nil {
		return ""
	}
	return r.Forwarded.Note
}

func NewPipeline(registry *vendor.Registry) *Pipeline {
	if registry == nil {
		registry = vendor.NewDefaultRegistry()
	}
	return &Pipeline{registry: registry, maxDepth: maxUnwrapDepth}
}

func (p *Pipeline) Registry() *vendor.Registry {
	return p.registry
}

// Process never fails: malformed input yields an unknown result.
func (p *Pipeline) Process(email *domain.EmailContent) *PipelineResult {
	result := &PipelineResult{}
	if email == nil {
		result.Parsed = domain.UnknownParsedEmail(domain.VendorUnknown)
		return result
	}

	current := email
	for depth := 0; depth < p.maxDepth && forward.IsForwardedEmail(current); depth++ {
		fwd := forward.ParseForwardedEmail(current)
		if fwd == nil {
			break
		}
		if result.Forwarded == nil {
			result.Forwarded = fwd
		}
		current = forward.ToEmailContent(current, fwd)
	}

	if current == email {
		result.Parsed = p.registry.ParseEmail(email)
		return result
	}

	result.Unwrapped = current
	result.Parsed = p.registry.ParseEmail(current)

	// A forward from an unknown sender may still have been sent by a vendor
	// directly (e.g. a vendor "FW:" of its own notice).
	if result.Parsed.Vendor == domain.VendorUnknown {
		if envelope := p.registry.ParseEmail(email); envelope.Confidence > result.Parsed.Confidence {
			result.Parsed = envelope
		}
	}
	return result
}
