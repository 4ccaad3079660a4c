package pattern

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"purchase_worker/core/domain"
)

// =============================================================================
// Email Type
// =============================================================================

var (
	shippingKeywords = []string{
		"shipped",
		"shipping",
		"on its way",
		"tracking number",
	}
	confirmationKeywords = []string{
		"order confirmation",
		"order received",
		"thank you for your order",
	}
)

// ClassifyEmailType applies keyword heuristics to the lower-cased subject
// and body. Shipping language is checked first so that a shipped order's
// leftover confirmation wording never wins.
func ClassifyEmailType(subject, body string) domain.EmailType {
	text := strings.ToLower(subject + "\n" + body)

	for _, kw := range shippingKeywords {
		if strings.Contains(text, kw) {
			return domain.EmailTypeShippingNotification
		}
	}
	for _, kw := range confirmationKeywords {
		if strings.Contains(text, kw) {
			return domain.EmailTypeOrderConfirmation
		}
	}
	return domain.EmailTypeUnknown
}

// =============================================================================
// Order Number
// =============================================================================

var (
	orderSubjectPattern = regexp.MustCompile(`(?i)Order\s*#?\s*(\d+)`)
	orderBodyPattern    = regexp.MustCompile(`(?i)Order\s*(?:#|Number:?)\s*(\d+)`)
)

// ExtractOrderNumber tries the subject pattern, then the generic body
// pattern, then each vendor variant against the body. The first match wins.
// Every variant must capture the number in group 1.
func ExtractOrderNumber(subject, body string, variants ...*regexp.Regexp) string {
	if m := orderSubjectPattern.FindStringSubmatch(subject); len(m) >= 2 {
		return m[1]
	}
	if m := orderBodyPattern.FindStringSubmatch(body); len(m) >= 2 {
		return m[1]
	}
	for _, re := range variants {
		if re == nil {
			continue
		}
		if m := re.FindStringSubmatch(body); len(m) >= 2 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

// =============================================================================
// Totals
// =============================================================================

// TotalPattern matches a dollar amount shortly after a standalone "Total".
// "Subtotal" is excluded by the word boundary.
var TotalPattern = regexp.MustCompile(`(?i)\btotal\b[^$\d]{0,30}\$\s*([\d,]+(?:\.\d{1,2})?)`)

// GrandTotalPattern is preferred by vendors that print both totals.
var GrandTotalPattern = regexp.MustCompile(`(?i)\bgrand\s+total\b[^$\d]{0,30}\$\s*([\d,]+(?:\.\d{1,2})?)`)

// ExtractTotalCents returns the first amount matched by labels, in order,
// falling back to TotalPattern. It returns nil when nothing matched.
func ExtractTotalCents(body string, labels ...*regexp.Regexp) *int64 {
	for _, re := range labels {
		if cents := matchCents(re, body); cents != nil {
			return cents
		}
	}
	return matchCents(TotalPattern, body)
}

func matchCents(re *regexp.Regexp, body string) *int64 {
	if re == nil {
		return nil
	}
	m := re.FindStringSubmatch(body)
	if len(m) < 2 {
		return nil
	}
	if cents, ok := ParseCents(m[1]); ok {
		return domain.Int64Ptr(cents)
	}
	return nil
}

// ParseCents converts "1,234.56" to 123456 using round(amount * 100).
func ParseCents(amount string) (int64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(amount), ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return int64(math.Round(value * 100)), true
}
