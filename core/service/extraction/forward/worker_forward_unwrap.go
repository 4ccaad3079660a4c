package forward

import (
	"regexp"
	"strings"

	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction/pattern"
)

// Header block limits after the envelope marker.
const (
	maxHeaderLines = 20
	maxHeaderChars = 1000
)

var (
	forwardHeaderLine   = regexp.MustCompile(`(?i)^[>*\s]*(From|Subject|Date|Sent|To|Cc|Reply-To)\s*\*?\s*:\s*\*?\s*(.*)$`)
	forwardBracketEmail = regexp.MustCompile(`<\s*([^<>\s]+@[^<>\s]+?)\s*>`)
	forwardBareEmail    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

type headerBlock struct {
	from    string
	subject string
	date    string
	end     int
}

// ParseForwardedEmail recovers the original sender, subject, date and body
// from a forwarded email. The HTML body is tried first (flattened to text),
// then the text body. It returns nil when no sender address is recovered.
func ParseForwardedEmail(email *domain.EmailContent) *domain.ForwardedEmailContent {
	if email == nil {
		return nil
	}
	if email.HTML != "" {
		if fwd := unwrap(pattern.HTMLToText(email.HTML), true); fwd != nil {
			return fwd
		}
	}
	if email.Text != "" {
		return unwrap(pattern.NormalizeNewlines(email.Text), false)
	}
	return nil
}

func unwrap(text string, isHTML bool) *domain.ForwardedEmailContent {
	start, headerStart, ok := locateEnvelope(text)
	if !ok {
		return nil
	}

	rest := text[headerStart:]
	headers := parseHeaderBlock(rest)
	if headers.from == "" {
		return nil
	}

	return &domain.ForwardedEmailContent{
		OriginalFrom:    headers.from,
		OriginalSubject: headers.subject,
		OriginalDate:    headers.date,
		OriginalBody:    strings.TrimSpace(rest[headers.end:]),
		IsHTML:          isHTML,
		Note:            strings.TrimSpace(text[:start]),
	}
}

// parseHeaderBlock scans up to maxHeaderLines lines or maxHeaderChars bytes.
// Leading blank lines are skipped; the first blank line after a header ends
// the block.
func parseHeaderBlock(block string) headerBlock {
	var h headerBlock
	offset, lines := 0, 0
	seenHeader := false

	for offset < len(block) && lines < maxHeaderLines && offset < maxHeaderChars {
		line := block[offset:]
		next := len(block)
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
			next = offset + nl + 1
		}
		lines++
		offset = next

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if seenHeader {
				break
			}
			continue
		}

		m := forwardHeaderLine.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		seenHeader = true
		value := strings.TrimSpace(m[2])

		switch strings.ToLower(m[1]) {
		case "from":
			if h.from == "" {
				h.from = extractAddress(value)
			}
		case "subject":
			if h.subject == "" {
				h.subject = value
			}
		case "date", "sent":
			if h.date == "" {
				h.date = value
			}
		}
	}

	h.end = offset
	return h
}

// extractAddress prefers an address in angle brackets and falls back to the
// first bare address. The result is lower-cased.
func extractAddress(value string) string {
	if m := forwardBracketEmail.FindStringSubmatch(value); len(m) >= 2 {
		return strings.ToLower(m[1])
	}
	if m := forwardBareEmail.FindString(value); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

// ToEmailContent re-synthesizes an EmailContent from the unwrap result so it
// can be fed back into the vendor registry. The envelope supplies the
// recipient and, when the header block had none, the subject.
func ToEmailContent(envelope *domain.EmailContent, fwd *domain.ForwardedEmailContent) *domain.EmailContent {
	if fwd == nil {
		return envelope
	}

	out := &domain.EmailContent{
		From:    fwd.OriginalFrom,
		Subject: fwd.OriginalSubject,
	}
	if envelope != nil {
		out.To = envelope.To
		if out.Subject == "" {
			out.Subject = StripForwardPrefix(envelope.Subject)
		}
	}

	if fwd.IsHTML {
		out.HTML = pattern.TextToHTML(fwd.OriginalBody)
	} else {
		out.Text = fwd.OriginalBody
	}
	return out
}
