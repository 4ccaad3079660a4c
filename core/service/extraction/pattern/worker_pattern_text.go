// Package pattern holds the regex and keyword heuristics shared by the vendor
// parsers, the forward unwrapper and the LLM result adapter.
package pattern

import (
	"regexp"
	"strings"

	"purchase_worker/core/domain"
)

// =============================================================================
// Vendor Domain Table
// =============================================================================

// DomainEntry maps a vendor or carrier id to the sender domains it owns.
type DomainEntry struct {
	VendorID string
	Name     string
	Domains  []string
	Carrier  domain.Carrier // empty for vendors
}

// DomainTable lists known senders in registry priority order.
var DomainTable = []DomainEntry{
	{VendorID: "rev", Name: "REV Robotics", Domains: []string{"revrobotics.com"}},
	{VendorID: "gobilda", Name: "goBILDA", Domains: []string{"gobilda.com"}},
	{VendorID: "andymark", Name: "AndyMark", Domains: []string{"andymark.com"}},
	{VendorID: "ups", Name: "UPS", Domains: []string{"ups.com"}, Carrier: domain.CarrierUPS},
	{VendorID: "fedex", Name: "FedEx", Domains: []string{"fedex.com"}, Carrier: domain.CarrierFedEx},
	{VendorID: "usps", Name: "USPS", Domains: []string{"usps.com", "usps.gov"}, Carrier: domain.CarrierUSPS},
}

// LookupDomain returns the table entry for vendorID.
func LookupDomain(vendorID string) (DomainEntry, bool) {
	for _, entry := range DomainTable {
		if entry.VendorID == vendorID {
			return entry, true
		}
	}
	return DomainEntry{}, false
}

// SenderHints returns the registrable label of every known domain
// ("revrobotics", "ups", ...), deduplicated, in table order.
func SenderHints() []string {
	seen := make(map[string]bool)
	var hints []string
	for _, entry := range DomainTable {
		for _, d := range entry.Domains {
			label := d
			if i := strings.IndexByte(d, '.'); i > 0 {
				label = d[:i]
			}
			if !seen[label] {
				seen[label] = true
				hints = append(hints, label)
			}
		}
	}
	return hints
}

// =============================================================================
// Sender Domain
// =============================================================================

// SenderDomain returns the lower-cased part after '@' of an RFC-loose
// address such as `REV Robotics <orders@revrobotics.com>`.
func SenderDomain(from string) string {
	at := strings.LastIndexByte(from, '@')
	if at < 0 {
		return ""
	}
	d := from[at+1:]
	if end := strings.IndexAny(d, "> \t\r\n\"',;)"); end >= 0 {
		d = d[:end]
	}
	return strings.TrimSuffix(strings.ToLower(d), ".")
}

// DomainMatches reports whether d equals pattern or is a subdomain of it.
func DomainMatches(d, pattern string) bool {
	if d == "" || pattern == "" {
		return false
	}
	pattern = strings.ToLower(pattern)
	return d == pattern || strings.HasSuffix(d, "."+pattern)
}

// =============================================================================
// HTML to Text
// =============================================================================

var (
	textScriptStylePattern = regexp.MustCompile(`(?is)<(?:script|style)[^>]*>.*?</(?:script|style)\s*>`)
	textCommentPattern     = regexp.MustCompile(`(?s)<!--.*?-->`)
	textWhitespacePattern  = regexp.MustCompile(`\s+`)
	textLineBreakPattern   = regexp.MustCompile(`(?i)<br\s*/?>|</(?:div|p|tr)\s*>`)
	textCellBreakPattern   = regexp.MustCompile(`(?i)</td\s*>`)
	textTagPattern         = regexp.MustCompile(`<[^>]*>`)
	textLineTrimPattern    = regexp.MustCompile(`[ \t]*\n[ \t]*`)

	textEntityDecoder = strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&amp;", "&",
	)
	textEntityEncoder = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
)

// HTMLToText flattens an HTML body into line-oriented plain text.
// Source whitespace collapses to single spaces; <br>, </div>, </p> and </tr>
// become newlines and </td> becomes a space. Tags are stripped before
// entities are decoded so that "&lt;addr&gt;" survives as "<addr>".
func HTMLToText(html string) string {
	if html == "" {
		return ""
	}
	text := textScriptStylePattern.ReplaceAllString(html, " ")
	text = textCommentPattern.ReplaceAllString(text, " ")
	text = textWhitespacePattern.ReplaceAllString(text, " ")
	text = textLineBreakPattern.ReplaceAllString(text, "\n")
	text = textCellBreakPattern.ReplaceAllString(text, " ")
	text = textTagPattern.ReplaceAllString(text, "")
	text = textEntityDecoder.Replace(text)
	text = textLineTrimPattern.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// TextToHTML is the inverse of HTMLToText for plain text: entities are
// encoded and every newline becomes a <br>.
func TextToHTML(text string) string {
	lines := strings.Split(NormalizeNewlines(text), "\n")
	for i, line := range lines {
		lines[i] = textEntityEncoder.Replace(line)
	}
	return strings.Join(lines, "<br>\n")
}

// NormalizeNewlines converts CRLF and lone CR to LF.
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// BodyText returns the text body, or the flattened HTML body when no text
// part is present.
func BodyText(email *domain.EmailContent) string {
	if email == nil {
		return ""
	}
	if strings.TrimSpace(email.Text) != "" {
		return NormalizeNewlines(email.Text)
	}
	return HTMLToText(email.HTML)
}
