// Package forward strips mail-client forwarding envelopes so that vendor
// matching runs against the original sender.
package forward

import (
	"regexp"
	"strings"

	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction/pattern"
)

// =============================================================================
// Envelope Markers
// =============================================================================

var (
	forwardSubjectPattern = regexp.MustCompile(`(?i)^\s*fwd?\s*:`)

	// Gmail: "---------- Forwarded message ---------"
	forwardGmailMarker = regexp.MustCompile(`(?i)-{5,}\s*Forwarded message\s*-{5,}`)
	// Outlook: "-----Original Message-----"
	forwardOutlookMarker = regexp.MustCompile(`(?i)-{3,}\s*Original Message\s*-{3,}`)
	// Apple Mail: "Begin forwarded message:"
	forwardAppleMarker = regexp.MustCompile(`(?i)Begin forwarded message:`)

	forwardMarkers = []*regexp.Regexp{
		forwardGmailMarker,
		forwardOutlookMarker,
		forwardAppleMarker,
	}

	// From: line naming a known vendor or carrier inside <...>.
	forwardFallbackFrom = regexp.MustCompile(
		`(?im)^[ \t>*]*From:[^\n]*<[^>\n]*(?:` + strings.Join(pattern.SenderHints(), "|") + `)[^>\n]*>`)
)

// IsForwardedEmail reports whether the subject carries a Fwd:/FW: prefix or
// either body contains a Gmail, Outlook or Apple Mail envelope marker.
func IsForwardedEmail(email *domain.EmailContent) bool {
	if email == nil {
		return false
	}
	if forwardSubjectPattern.MatchString(email.Subject) {
		return true
	}
	for _, body := range []string{email.HTML, email.Text} {
		if body == "" {
			continue
		}
		for _, marker := range forwardMarkers {
			if marker.MatchString(body) {
				return true
			}
		}
	}
	return false
}

// StripForwardPrefix removes repeated Fwd:/FW: prefixes from a subject.
func StripForwardPrefix(subject string) string {
	for {
		loc := forwardSubjectPattern.FindStringIndex(subject)
		if loc == nil {
			return strings.TrimSpace(subject)
		}
		subject = subject[loc[1]:]
	}
}

// locateEnvelope returns where the envelope starts and where header
// scanning should begin. The earliest marker wins; without a marker a From:
// line naming a known sender is used and scanning starts on that line.
func locateEnvelope(text string) (start, headerStart int, ok bool) {
	start = -1
	for _, marker := range forwardMarkers {
		loc := marker.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if start < 0 || loc[0] < start {
			start, headerStart = loc[0], loc[1]
		}
	}
	if start >= 0 {
		return start, headerStart, true
	}

	if loc := forwardFallbackFrom.FindStringIndex(text); loc != nil {
		return loc[0], loc[0], true
	}
	return 0, 0, false
}
