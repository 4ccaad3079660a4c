package llm

import (
	"fmt"
	"strings"

	"purchase_worker/core/domain"
)

// ResponseSchemaVersion names the current response contract.
const ResponseSchemaVersion = "purchase-extraction/v1"

// ResponseSchema is the JSON Schema the model must follow. The same string is
// embedded in the system prompt and used for validation.
const ResponseSchema = `{
  "type": "object",
  "required": ["vendor", "emailType", "confidence"],
  "properties": {
    "vendor": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "domain": {"type": ["string", "null"]},
        "website": {"type": ["string", "null"]},
        "supportEmail": {"type": ["string", "null"]},
        "supportPhone": {"type": ["string", "null"]},
        "accountNumber": {"type": ["string", "null"]}
      }
    },
    "emailType": {
      "enum": ["order_confirmation", "shipping_notification", "delivery_confirmation", "invoice", "other"]
    },
    "orderNumber": {"type": ["string", "null"]},
    "orderDate": {"type": ["string", "null"]},
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "sku": {"type": ["string", "null"]},
          "quantity": {"type": ["integer", "null"], "minimum": 0},
          "unitPriceCents": {"type": ["integer", "null"]},
          "totalPriceCents": {"type": ["integer", "null"]},
          "forTeam": {"type": ["boolean", "null"]},
          "notes": {"type": ["string", "null"]}
        }
      }
    },
    "costs": {
      "type": ["object", "null"],
      "properties": {
        "subtotalCents": {"type": ["integer", "null"]},
        "taxCents": {"type": ["integer", "null"]},
        "shippingCents": {"type": ["integer", "null"]},
        "totalCents": {"type": ["integer", "null"]}
      }
    },
    "tracking": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["carrier", "trackingNumber"],
        "properties": {
          "carrier": {"enum": ["ups", "fedex", "usps", "dhl", "other"]},
          "trackingNumber": {"type": "string", "minLength": 1},
          "estimatedDelivery": {"type": ["string", "null"]}
        }
      }
    },
    "mentorNotes": {"type": ["string", "null"]},
    "extractionNotes": {"type": ["string", "null"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const systemPromptTemplate = `You extract structured purchase data from emails received by a student robotics team.
The emails are order confirmations, shipping notifications, delivery confirmations and invoices
from parts vendors, sometimes forwarded by a mentor who adds notes above the forwarded message.

Rules:
- Respond with a single JSON object and nothing else. Do not wrap it in Markdown.
- All money amounts are integer cents (e.g. $156.99 -> 15699). Never use floats for money.
- Use null for anything the email does not state. Do not guess order numbers or tracking numbers.
- trackingNumber must be copied exactly as printed, without spaces.
- carrier is one of ups, fedex, usps, dhl, other, chosen from the tracking number format or the sender.
- emailType "other" means the email is not about a purchase.
- confidence is your certainty between 0 and 1 that the extraction is complete and correct.

Mentor context:
- Text written by the forwarder above the forwarded message is mentor context, not vendor content.
- Every item is for the team (forTeam: true) unless the mentor explicitly excludes it,
  e.g. "only the USB cam was for the team" means every other item gets forTeam: false.
- Summarise the mentor's instructions in mentorNotes. Put anything you were unsure about in extractionNotes.

The JSON object must conform to this JSON Schema (%s):
%s`

// SystemPrompt returns the fixed system prompt including the schema.
func SystemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate, ResponseSchemaVersion, ResponseSchema)
}

// Prompt body delimiters.
const (
	emailStartDelimiter = "=== EMAIL START ==="
	emailEndDelimiter   = "=== EMAIL END ==="
)

// DefaultMaxBodyChars bounds each body encoding embedded in the prompt.
const DefaultMaxBodyChars = 30000

// BuildUserPrompt embeds the raw email fields between literal delimiters.
func BuildUserPrompt(email *domain.EmailContent, maxBodyChars int) string {
	if email == nil {
		email = &domain.EmailContent{}
	}
	if maxBodyChars <= 0 {
		maxBodyChars = DefaultMaxBodyChars
	}

	var b strings.Builder
	b.WriteString("Extract the purchase data from this email.\n\n")
	b.WriteString(emailStartDelimiter + "\n")
	fmt.Fprintf(&b, "From: %s\n", email.From)
	fmt.Fprintf(&b, "To: %s\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
	if email.Text != "" {
		b.WriteString("\n--- TEXT BODY ---\n")
		b.WriteString(truncateRunes(email.Text, maxBodyChars))
		b.WriteString("\n")
	}
	if email.HTML != "" {
		b.WriteString("\n--- HTML BODY ---\n")
		b.WriteString(truncateRunes(email.HTML, maxBodyChars))
		b.WriteString("\n")
	}
	b.WriteString(emailEndDelimiter)
	return b.String()
}

func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
