package pattern

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"purchase_worker/core/domain"
)

// =============================================================================
// Tracking Number Grammars
// =============================================================================

var (
	trackingUPSPattern         = regexp.MustCompile(`(?i)\b1Z[0-9A-Z]{16,18}\b`)
	trackingUSPSPattern        = regexp.MustCompile(`\b9[2-5]\d{18,20}\b`)
	trackingUSPSExpressPattern = regexp.MustCompile(`\bE[ABC]\d{9}US\b`)
	trackingFedExPattern       = regexp.MustCompile(`\b\d{12,22}\b`)
	trackingFedExLegacyPattern = regexp.MustCompile(`\b\d{34}\b`)
	trackingFedExContext       = regexp.MustCompile(`(?i)fedex|tracking`)

	trackingUPSExact         = regexp.MustCompile(`^1Z[0-9A-Z]{16,18}$`)
	trackingUSPSExact        = regexp.MustCompile(`^(?:9[2-5]\d{18,20}|E[ABC]\d{9}US)$`)
	trackingFedExExact       = regexp.MustCompile(`^\d{12,22}$`)
	trackingFedExLegacyExact = regexp.MustCompile(`^\d{34}$`)
)

// fedexContextWindow is how far (in bytes) from a bare digit run the words
// "fedex" or "tracking" may appear.
const fedexContextWindow = 80

// TrackingOptions tunes the FedEx grammar, which is the only ambiguous one.
type TrackingOptions struct {
	// RequireFedExContext accepts a 12-22 digit run only when "fedex" or
	// "tracking" appears nearby.
	RequireFedExContext bool
	// AllowLegacyFedEx also accepts the 34-digit barcode form.
	AllowLegacyFedEx bool
}

// VendorTrackingOptions is used by vendor parsers.
var VendorTrackingOptions = TrackingOptions{RequireFedExContext: true}

// ExtractTracking applies every carrier grammar to text and returns the
// union, de-duplicated by literal number, each with its tracking URL.
// USPS runs before FedEx so that a 92-95 prefixed number is never claimed
// by the looser FedEx digit grammar.
func ExtractTracking(text string, opts TrackingOptions) []domain.TrackingInfo {
	if text == "" {
		return nil
	}

	var results []domain.TrackingInfo
	seen := make(map[string]bool)
	add := func(carrier domain.Carrier, number string) {
		if seen[number] {
			return
		}
		seen[number] = true
		results = append(results, domain.TrackingInfo{
			Carrier:        carrier,
			TrackingNumber: number,
			TrackingURL:    TrackingURL(carrier, number),
		})
	}

	for _, m := range trackingUPSPattern.FindAllString(text, -1) {
		add(domain.CarrierUPS, strings.ToUpper(m))
	}
	for _, m := range trackingUSPSPattern.FindAllString(text, -1) {
		add(domain.CarrierUSPS, m)
	}
	for _, m := range trackingUSPSExpressPattern.FindAllString(text, -1) {
		add(domain.CarrierUSPS, m)
	}
	for _, loc := range trackingFedExPattern.FindAllStringIndex(text, -1) {
		number := text[loc[0]:loc[1]]
		if trackingUSPSExact.MatchString(number) {
			continue
		}
		if opts.RequireFedExContext && !hasFedExContext(text, loc[0], loc[1]) {
			continue
		}
		add(domain.CarrierFedEx, number)
	}
	if opts.AllowLegacyFedEx {
		for _, m := range trackingFedExLegacyPattern.FindAllString(text, -1) {
			add(domain.CarrierFedEx, m)
		}
	}

	return results
}

func hasFedExContext(text string, start, end int) bool {
	from := start - fedexContextWindow
	if from < 0 {
		from = 0
	}
	to := end + fedexContextWindow
	if to > len(text) {
		to = len(text)
	}
	return trackingFedExContext.MatchString(text[from:to])
}

// ClassifyTrackingNumber infers the carrier from the number's format alone.
func ClassifyTrackingNumber(number string) (domain.Carrier, bool) {
	n := strings.ToUpper(strings.TrimSpace(number))
	switch {
	case trackingUPSExact.MatchString(n):
		return domain.CarrierUPS, true
	case trackingUSPSExact.MatchString(n):
		return domain.CarrierUSPS, true
	case trackingFedExExact.MatchString(n), trackingFedExLegacyExact.MatchString(n):
		return domain.CarrierFedEx, true
	}
	return "", false
}

// =============================================================================
// Tracking URLs
// =============================================================================

var trackingURLTemplates = map[domain.Carrier]string{
	domain.CarrierUPS:   "https://www.ups.com/track?tracknum={n}",
	domain.CarrierFedEx: "https://www.fedex.com/fedextrack/?trknbr={n}",
	domain.CarrierUSPS:  "https://tools.usps.com/go/TrackConfirmAction?tLabels={n}",
	domain.CarrierDHL:   "https://www.dhl.com/en/express/tracking.html?AWB={n}",
}

// TrackingURL fills the carrier's URL template. Unknown carriers and empty
// numbers yield "".
func TrackingURL(carrier domain.Carrier, number string) string {
	tmpl, ok := trackingURLTemplates[carrier]
	if !ok || number == "" {
		return ""
	}
	return strings.Replace(tmpl, "{n}", number, 1)
}

// =============================================================================
// Estimated Delivery
// =============================================================================

var deliveryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)scheduled\s+delivery(?:\s+date)?\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)expected\s+delivery(?:\s+date)?\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)estimated\s+delivery(?:\s+date)?\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)\barriving\s+(?:on\s+|by\s+)?([^\n.!]+)`),
}

const maxDeliveryPhraseRunes = 80

// ExtractEstimatedDelivery returns the first delivery date phrase found.
func ExtractEstimatedDelivery(text string) string {
	for _, re := range deliveryPatterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		phrase := strings.TrimSpace(m[1])
		if phrase == "" {
			continue
		}
		if utf8.RuneCountInString(phrase) > maxDeliveryPhraseRunes {
			phrase = strings.TrimSpace(string([]rune(phrase)[:maxDeliveryPhraseRunes]))
		}
		return phrase
	}
	return ""
}
