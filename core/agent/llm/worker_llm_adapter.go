package llm

import (
	"strings"

	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction/pattern"
)

// ToParserResult maps an LLM extraction onto the deterministic output
// contract. Tracking URLs come from the same templates the regex path uses.
func ToParserResult(e *domain.ExtractedEmail) *domain.ParsedEmail {
	if e == nil {
		return domain.UnknownParsedEmail(domain.VendorUnknown)
	}

	result := &domain.ParsedEmail{
		Type:        parsedType(e.EmailType),
		Vendor:      CanonicalVendorID(e.Vendor.Name),
		OrderNumber: e.OrderNumber,
		Confidence:  e.Confidence,
	}
	if e.Costs != nil && e.Costs.TotalCents != nil {
		result.TotalCents = domain.Int64Ptr(*e.Costs.TotalCents)
	}

	for _, tr := range e.Tracking {
		if tr.TrackingNumber == "" {
			continue
		}
		carrier := trackingCarrier(tr)
		result.TrackingNumbers = append(result.TrackingNumbers, domain.TrackingInfo{
			Carrier:        carrier,
			TrackingNumber: tr.TrackingNumber,
			TrackingURL:    pattern.TrackingURL(carrier, tr.TrackingNumber),
		})
		if result.EstimatedDelivery == "" {
			result.EstimatedDelivery = tr.EstimatedDelivery
		}
	}

	for _, it := range e.Items {
		result.Items = append(result.Items, domain.ParsedItem{
			Name:           it.Name,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			ForTeam:        it.ForTeam,
		})
	}

	return result
}

// trackingCarrier trusts the number's format over the model. The model's
// carrier is kept only when the format is inconclusive.
func trackingCarrier(tr domain.ExtractedTracking) domain.Carrier {
	if inferred, ok := pattern.ClassifyTrackingNumber(tr.TrackingNumber); ok {
		return inferred
	}
	if tr.Carrier.IsValid() {
		return tr.Carrier
	}
	return domain.CarrierOther
}

// CanonicalVendorID lower-cases a vendor display name and joins its words
// with underscores: "REV Robotics" -> "rev_robotics".
func CanonicalVendorID(name string) string {
	id := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	if id == "" {
		return domain.VendorUnknown
	}
	return id
}

func parsedType(t domain.ExtractedEmailType) domain.EmailType {
	switch t {
	case domain.ExtractedOrderConfirmation, domain.ExtractedInvoice:
		return domain.EmailTypeOrderConfirmation
	case domain.ExtractedShippingNotification, domain.ExtractedDeliveryConfirmation:
		return domain.EmailTypeShippingNotification
	default:
		return domain.EmailTypeUnknown
	}
}
