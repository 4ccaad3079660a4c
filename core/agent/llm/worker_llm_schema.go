package llm

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"

	"purchase_worker/core/domain"
)

// FailureKind discriminates LLM extraction failures.
type FailureKind string

const (
	FailureNoTextBlock FailureKind = "no_text_block"
	FailureInvalidJSON FailureKind = "invalid_json"
	FailureSchema      FailureKind = "schema_validation"
	FailureTransport   FailureKind = "transport"
)

// ExtractionError is a typed LLM-path failure.
type ExtractionError struct {
	Kind        FailureKind
	Message     string
	RawResponse string
}

func (e *ExtractionError) Error() string {
	return e.Message
}

const invalidJSONPreviewChars = 200

var (
	schemaOnce     sync.Once
	schemaResolved *jsonschema.Resolved
	schemaErr      error
)

func resolvedSchema() (*jsonschema.Resolved, error) {
	schemaOnce.Do(func() {
		var s jsonschema.Schema
		if err := json.Unmarshal([]byte(ResponseSchema), &s); err != nil {
			schemaErr = fmt.Errorf("failed to parse response schema: %w", err)
			return
		}
		schemaResolved, schemaErr = s.Resolve(nil)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to resolve response schema: %w", schemaErr)
		}
	})
	return schemaResolved, schemaErr
}

// ValidateResponse turns a model reply into an ExtractedEmail: code fences
// are stripped, the JSON is parsed and validated against ResponseSchema, and
// nulls are normalised away. Failures are *ExtractionError.
func ValidateResponse(raw string) (*domain.ExtractedEmail, error) {
	cleaned := stripCodeFence(raw)

	var instance any
	if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
		return nil, &ExtractionError{
			Kind:        FailureInvalidJSON,
			Message:     fmt.Sprintf("Invalid JSON in model response: %s", preview(cleaned, invalidJSONPreviewChars)),
			RawResponse: raw,
		}
	}

	schema, err := resolvedSchema()
	if err != nil {
		return nil, &ExtractionError{Kind: FailureSchema, Message: err.Error(), RawResponse: raw}
	}
	if err := schema.Validate(instance); err != nil {
		return nil, &ExtractionError{
			Kind:        FailureSchema,
			Message:     fmt.Sprintf("Schema validation failed: %v", err),
			RawResponse: raw,
		}
	}

	var wire wireExtraction
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, &ExtractionError{
			Kind:        FailureSchema,
			Message:     fmt.Sprintf("Schema validation failed: %v", err),
			RawResponse: raw,
		}
	}
	return wire.normalize(), nil
}

// stripCodeFence removes a leading ``` line and a trailing ``` line.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// =============================================================================
// Wire Shape
// =============================================================================
//
// Every optional field is a pointer so that null and absent decode the same
// way; normalize converts them to the domain's zero-means-absent form.

type wireVendor struct {
	Name          string  `json:"name"`
	Domain        *string `json:"domain"`
	Website       *string `json:"website"`
	SupportEmail  *string `json:"supportEmail"`
	SupportPhone  *string `json:"supportPhone"`
	AccountNumber *string `json:"accountNumber"`
}

type wireItem struct {
	Name            string   `json:"name"`
	SKU             *string  `json:"sku"`
	Quantity        *float64 `json:"quantity"`
	UnitPriceCents  *float64 `json:"unitPriceCents"`
	TotalPriceCents *float64 `json:"totalPriceCents"`
	ForTeam         *bool    `json:"forTeam"`
	Notes           *string  `json:"notes"`
}

type wireCosts struct {
	SubtotalCents *float64 `json:"subtotalCents"`
	TaxCents      *float64 `json:"taxCents"`
	ShippingCents *float64 `json:"shippingCents"`
	TotalCents    *float64 `json:"totalCents"`
}

type wireTracking struct {
	Carrier           string  `json:"carrier"`
	TrackingNumber    string  `json:"trackingNumber"`
	EstimatedDelivery *string `json:"estimatedDelivery"`
}

type wireExtraction struct {
	Vendor          wireVendor     `json:"vendor"`
	EmailType       string         `json:"emailType"`
	OrderNumber     *string        `json:"orderNumber"`
	OrderDate       *string        `json:"orderDate"`
	Items           []wireItem     `json:"items"`
	Costs           *wireCosts     `json:"costs"`
	Tracking        []wireTracking `json:"tracking"`
	MentorNotes     *string        `json:"mentorNotes"`
	ExtractionNotes *string        `json:"extractionNotes"`
	Confidence      float64        `json:"confidence"`
}

func (w *wireExtraction) normalize() *domain.ExtractedEmail {
	out := &domain.ExtractedEmail{
		Vendor: domain.VendorInfo{
			Name:          strings.TrimSpace(w.Vendor.Name),
			Domain:        str(w.Vendor.Domain),
			Website:       str(w.Vendor.Website),
			SupportEmail:  str(w.Vendor.SupportEmail),
			SupportPhone:  str(w.Vendor.SupportPhone),
			AccountNumber: str(w.Vendor.AccountNumber),
		},
		EmailType:       domain.ExtractedEmailType(w.EmailType),
		OrderNumber:     str(w.OrderNumber),
		OrderDate:       str(w.OrderDate),
		Items:           make([]domain.ExtractedItem, 0, len(w.Items)),
		Tracking:        make([]domain.ExtractedTracking, 0, len(w.Tracking)),
		MentorNotes:     str(w.MentorNotes),
		ExtractionNotes: str(w.ExtractionNotes),
		Confidence:      w.Confidence,
	}

	for _, it := range w.Items {
		item := domain.ExtractedItem{
			Name:            it.Name,
			SKU:             str(it.SKU),
			Quantity:        1,
			UnitPriceCents:  cents(it.UnitPriceCents),
			TotalPriceCents: cents(it.TotalPriceCents),
			ForTeam:         true,
			Notes:           str(it.Notes),
		}
		if it.Quantity != nil {
			item.Quantity = int(math.Round(*it.Quantity))
		}
		if it.ForTeam != nil {
			item.ForTeam = *it.ForTeam
		}
		out.Items = append(out.Items, item)
	}

	if w.Costs != nil {
		costs := &domain.CostBreakdown{
			SubtotalCents: cents(w.Costs.SubtotalCents),
			TaxCents:      cents(w.Costs.TaxCents),
			ShippingCents: cents(w.Costs.ShippingCents),
			TotalCents:    cents(w.Costs.TotalCents),
		}
		if *costs != (domain.CostBreakdown{}) {
			out.Costs = costs
		}
	}

	for _, tr := range w.Tracking {
		out.Tracking = append(out.Tracking, domain.ExtractedTracking{
			Carrier:           domain.Carrier(tr.Carrier),
			TrackingNumber:    strings.TrimSpace(tr.TrackingNumber),
			EstimatedDelivery: str(tr.EstimatedDelivery),
		})
	}

	return out
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func cents(p *float64) *int64 {
	if p == nil {
		return nil
	}
	return domain.Int64Ptr(int64(math.Round(*p)))
}
