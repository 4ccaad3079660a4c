package domain

// EmailContent is the raw input handed to the extraction pipeline.
// From is an RFC-loose address string ("REV Robotics <orders@revrobotics.com>").
type EmailContent struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// HasBody reports whether at least one body encoding is present.
func (e *EmailContent) HasBody() bool {
	return e != nil && (e.HTML != "" || e.Text != "")
}

// EmailType is the coarse classification of a purchase email.
type EmailType string

const (
	EmailTypeOrderConfirmation    EmailType = "order_confirmation"
	EmailTypeShippingNotification EmailType = "shipping_notification"
	EmailTypeUnknown              EmailType = "unknown"
)

// Carrier identifies a shipping company.
type Carrier string

const (
	CarrierUPS   Carrier = "ups"
	CarrierFedEx Carrier = "fedex"
	CarrierUSPS  Carrier = "usps"
	CarrierDHL   Carrier = "dhl"
	CarrierOther Carrier = "other"
)

// IsValid reports whether c is one of the known carrier ids.
func (c Carrier) IsValid() bool {
	switch c {
	case CarrierUPS, CarrierFedEx, CarrierUSPS, CarrierDHL, CarrierOther:
		return true
	}
	return false
}

// TrackingInfo is a single shipment identifier.
// Carrier is inferred from the number's format or the sending domain.
type TrackingInfo struct {
	Carrier        Carrier `json:"carrier"`
	TrackingNumber string  `json:"trackingNumber"`
	TrackingURL    string  `json:"trackingUrl,omitempty"`
}

// ParsedItem is a purchased line item in the common output contract.
type ParsedItem struct {
	Name           string `json:"name"`
	SKU            string `json:"sku,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents *int64 `json:"unitPriceCents,omitempty"`
	ForTeam        bool   `json:"forTeam"`
}

// VendorUnknown is the vendor id reported when no parser matched.
const VendorUnknown = "unknown"

// ParsedEmail is the common output contract of both extraction paths.
//
// Confidence is 0 exactly when Type is unknown because no parser matched
// or the matched parser failed. TotalCents is nil when no total was found;
// zero is a real total.
type ParsedEmail struct {
	Type              EmailType      `json:"type"`
	Vendor            string         `json:"vendor"`
	OrderNumber       string         `json:"orderNumber,omitempty"`
	TrackingNumbers   []TrackingInfo `json:"trackingNumbers,omitempty"`
	TotalCents        *int64         `json:"totalCents,omitempty"`
	EstimatedDelivery string         `json:"estimatedDelivery,omitempty"`
	Items             []ParsedItem   `json:"items,omitempty"`
	Confidence        float64        `json:"confidence"`
}

// UnknownParsedEmail builds the zero-confidence result for vendor.
func UnknownParsedEmail(vendor string) *ParsedEmail {
	if vendor == "" {
		vendor = VendorUnknown
	}
	return &ParsedEmail{
		Type:       EmailTypeUnknown,
		Vendor:     vendor,
		Confidence: 0,
	}
}

// IsActionable reports whether downstream order logic may act on the result
// without a human looking at it first.
func (p *ParsedEmail) IsActionable(threshold float64) bool {
	return p != nil && p.Type != EmailTypeUnknown && p.Confidence >= threshold
}

// ForwardedEmailContent is the transient result of unwrapping a forwarded
// envelope. It is only used to build a fresh EmailContent for re-parsing.
type ForwardedEmailContent struct {
	OriginalFrom    string `json:"originalFrom"`
	OriginalSubject string `json:"originalSubject,omitempty"`
	OriginalDate    string `json:"originalDate,omitempty"`
	OriginalBody    string `json:"originalBody"`
	IsHTML          bool   `json:"isHtml"`

	// Note is whatever the forwarder typed above the envelope marker.
	Note string `json:"note,omitempty"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
