package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExtractedEmailType is the richer classification emitted by the LLM path.
type ExtractedEmailType string

const (
	ExtractedOrderConfirmation    ExtractedEmailType = "order_confirmation"
	ExtractedShippingNotification ExtractedEmailType = "shipping_notification"
	ExtractedDeliveryConfirmation ExtractedEmailType = "delivery_confirmation"
	ExtractedInvoice              ExtractedEmailType = "invoice"
	ExtractedOther                ExtractedEmailType = "other"
)

// VendorInfo describes the seller as seen by the model.
type VendorInfo struct {
	Name          string `json:"name"`
	Domain        string `json:"domain,omitempty"`
	Website       string `json:"website,omitempty"`
	SupportEmail  string `json:"supportEmail,omitempty"`
	SupportPhone  string `json:"supportPhone,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
}

// ExtractedItem is a line item with team attribution.
type ExtractedItem struct {
	Name            string `json:"name"`
	SKU             string `json:"sku,omitempty"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  *int64 `json:"unitPriceCents,omitempty"`
	TotalPriceCents *int64 `json:"totalPriceCents,omitempty"`
	ForTeam         bool   `json:"forTeam"`
	Notes           string `json:"notes,omitempty"`
}

// CostBreakdown holds currency amounts in integer cents.
type CostBreakdown struct {
	SubtotalCents *int64 `json:"subtotalCents,omitempty"`
	TaxCents      *int64 `json:"taxCents,omitempty"`
	ShippingCents *int64 `json:"shippingCents,omitempty"`
	TotalCents    *int64 `json:"totalCents,omitempty"`
}

// ExtractedTracking is a tracking entry as asserted by the model.
type ExtractedTracking struct {
	Carrier           Carrier `json:"carrier"`
	TrackingNumber    string  `json:"trackingNumber"`
	EstimatedDelivery string  `json:"estimatedDelivery,omitempty"`
}

// ExtractedEmail is the LLM-path output. Absent source fields stay empty;
// null never survives validation.
type ExtractedEmail struct {
	Vendor          VendorInfo          `json:"vendor"`
	EmailType       ExtractedEmailType  `json:"emailType"`
	OrderNumber     string              `json:"orderNumber,omitempty"`
	OrderDate       string              `json:"orderDate,omitempty"`
	Items           []ExtractedItem     `json:"items"`
	Costs           *CostBreakdown      `json:"costs,omitempty"`
	Tracking        []ExtractedTracking `json:"tracking"`
	MentorNotes     string              `json:"mentorNotes,omitempty"`
	ExtractionNotes string              `json:"extractionNotes,omitempty"`
	Confidence      float64             `json:"confidence"`
}

// ExtractionSource tells which path produced a stored result.
type ExtractionSource string

const (
	SourceDeterministic ExtractionSource = "deterministic"
	SourceLLM           ExtractionSource = "llm"
)

// ExtractionRecord is the audit row kept for every processed email.
type ExtractionRecord struct {
	ID          uuid.UUID        `json:"id"`
	MessageID   string           `json:"messageId,omitempty"`
	ContentHash string           `json:"contentHash"`
	Sender      string           `json:"sender"`
	Subject     string           `json:"subject"`
	Source      ExtractionSource `json:"source"`
	Parsed      *ParsedEmail     `json:"parsed"`
	Extracted   *ExtractedEmail  `json:"extracted,omitempty"`
	LLMError    string           `json:"llmError,omitempty"`
	LLMFailure  string           `json:"llmFailure,omitempty"`
	NeedsReview bool             `json:"needsReview"`
	Forwarded   bool             `json:"forwarded"`
	CreatedAt   time.Time        `json:"createdAt"`
}
