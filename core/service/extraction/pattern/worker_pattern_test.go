package pattern

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchase_worker/core/domain"
)

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		from     string
		expected string
	}{
		{"orders@revrobotics.com", "revrobotics.com"},
		{"REV Robotics <Orders@RevRobotics.COM>", "revrobotics.com"},
		{`"goBILDA" <sales@mail.gobilda.com>`, "mail.gobilda.com"},
		{"no-address", ""},
		{"user@example.com.", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			if got := SenderDomain(tt.from); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDomainMatches(t *testing.T) {
	assert.True(t, DomainMatches("revrobotics.com", "revrobotics.com"))
	assert.True(t, DomainMatches("sub.revrobotics.com", "revrobotics.com"))
	assert.False(t, DomainMatches("notrevrobotics.com", "revrobotics.com"))
	assert.False(t, DomainMatches("revrobotics.com.evil.io", "revrobotics.com"))
	assert.False(t, DomainMatches("", "revrobotics.com"))
}

func TestSenderHints(t *testing.T) {
	assert.Equal(t, []string{"revrobotics", "gobilda", "andymark", "ups", "fedex", "usps"}, SenderHints())
}

func TestHTMLToText(t *testing.T) {
	html := `<div>Hello<br>World</div>
	<table><tr><td>Total:</td><td>$1,234.50</td></tr></table>
	<p>From: REV &lt;orders@revrobotics.com&gt; &amp; co</p><style>p{}</style>`

	got := HTMLToText(html)

	assert.Equal(t, "Hello\nWorld\nTotal: $1,234.50\nFrom: REV <orders@revrobotics.com> & co", got)
}

func TestTextToHTMLRoundTrip(t *testing.T) {
	text := "From: A <a@b.com>\nTotal: $5.00 & tax"
	assert.Equal(t, text, HTMLToText(TextToHTML(text)))
}

func TestBodyText(t *testing.T) {
	assert.Equal(t, "plain", BodyText(&domain.EmailContent{Text: "plain", HTML: "<b>html</b>"}))
	assert.Equal(t, "html", BodyText(&domain.EmailContent{HTML: "<b>html</b>"}))
	assert.Equal(t, "a\nb", BodyText(&domain.EmailContent{Text: "a\r\nb"}))
	assert.Equal(t, "", BodyText(nil))
}

func TestClassifyEmailType(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		expected domain.EmailType
	}{
		{"confirmation", "Order Confirmation", "Thank you for your order", domain.EmailTypeOrderConfirmation},
		{"shipped", "Your order has shipped", "", domain.EmailTypeShippingNotification},
		{"shipping wins over confirmation", "Order Confirmation", "Your tracking number is below", domain.EmailTypeShippingNotification},
		{"on its way", "Good news", "Your package is on its way", domain.EmailTypeShippingNotification},
		{"unknown", "Newsletter", "New products this week", domain.EmailTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyEmailType(tt.subject, tt.body); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractOrderNumber(t *testing.T) {
	invoice := regexp.MustCompile(`(?i)Invoice\s*#?\s*(\d+)`)

	tests := []struct {
		name     string
		subject  string
		body     string
		variants []*regexp.Regexp
		expected string
	}{
		{"subject first", "Your Order #123456", "Order Number: 999", nil, "123456"},
		{"body hash", "Thanks", "Order #42424", nil, "42424"},
		{"body number label", "Thanks", "Order Number: 777", nil, "777"},
		{"variant", "Thanks", "Invoice #31337", []*regexp.Regexp{invoice}, "31337"},
		{"none", "Thanks", "nothing here", []*regexp.Regexp{invoice}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractOrderNumber(tt.subject, tt.body, tt.variants...); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractTotalCents(t *testing.T) {
	t.Run("total with thousands separator", func(t *testing.T) {
		got := ExtractTotalCents("Subtotal: $1,000.00\nTotal: $1,234.56")
		require.NotNil(t, got)
		assert.Equal(t, int64(123456), *got)
	})

	t.Run("subtotal alone is not a total", func(t *testing.T) {
		assert.Nil(t, ExtractTotalCents("Subtotal: $10.00"))
	})

	t.Run("zero is a real total", func(t *testing.T) {
		got := ExtractTotalCents("Total: $0.00")
		require.NotNil(t, got)
		assert.Equal(t, int64(0), *got)
	})

	t.Run("grand total preferred when labelled", func(t *testing.T) {
		body := "Total Items: 3\nOrder Total: $90.00\nGrand Total: $99.99"
		got := ExtractTotalCents(body, GrandTotalPattern)
		require.NotNil(t, got)
		assert.Equal(t, int64(9999), *got)
	})

	t.Run("missing", func(t *testing.T) {
		assert.Nil(t, ExtractTotalCents("no money here"))
	})
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"156.99", 15699, true},
		{"1,234.5", 123450, true},
		{"$12", 1200, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCents(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCents(%q) = %d, %v; expected %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractTracking(t *testing.T) {
	t.Run("ups normalised to upper case", func(t *testing.T) {
		got := ExtractTracking("UPS: 1z999aa10123456784", VendorTrackingOptions)
		require.Len(t, got, 1)
		assert.Equal(t, domain.CarrierUPS, got[0].Carrier)
		assert.Equal(t, "1Z999AA10123456784", got[0].TrackingNumber)
		assert.Equal(t, "https://www.ups.com/track?tracknum=1Z999AA10123456784", got[0].TrackingURL)
	})

	t.Run("usps twenty digits", func(t *testing.T) {
		got := ExtractTracking("Tracking: 94001111111111111111", VendorTrackingOptions)
		require.Len(t, got, 1)
		assert.Equal(t, domain.CarrierUSPS, got[0].Carrier)
		assert.Equal(t, "https://tools.usps.com/go/TrackConfirmAction?tLabels=94001111111111111111", got[0].TrackingURL)
	})

	t.Run("usps express", func(t *testing.T) {
		got := ExtractTracking("Priority Mail Express EA123456789US", VendorTrackingOptions)
		require.Len(t, got, 1)
		assert.Equal(t, domain.CarrierUSPS, got[0].Carrier)
	})

	t.Run("fedex needs context", func(t *testing.T) {
		assert.Empty(t, ExtractTracking("Reference 123456789012", VendorTrackingOptions))

		got := ExtractTracking("FedEx tracking: 123456789012", VendorTrackingOptions)
		require.Len(t, got, 1)
		assert.Equal(t, domain.CarrierFedEx, got[0].Carrier)
		assert.Equal(t, "https://www.fedex.com/fedextrack/?trknbr=123456789012", got[0].TrackingURL)
	})

	t.Run("legacy fedex only when allowed", func(t *testing.T) {
		legacy := "1234567890123456789012345678901234"
		assert.Empty(t, ExtractTracking("fedex "+legacy, VendorTrackingOptions))
		got := ExtractTracking(legacy, TrackingOptions{AllowLegacyFedEx: true})
		require.Len(t, got, 1)
		assert.Equal(t, legacy, got[0].TrackingNumber)
	})

	t.Run("deduplicated", func(t *testing.T) {
		got := ExtractTracking("1Z999AA10123456784 and again 1z999aa10123456784", VendorTrackingOptions)
		assert.Len(t, got, 1)
	})
}

func TestClassifyTrackingNumber(t *testing.T) {
	tests := []struct {
		number string
		want   domain.Carrier
		ok     bool
	}{
		{"1Z999AA10123456784", domain.CarrierUPS, true},
		{"94001111111111111111", domain.CarrierUSPS, true},
		{"EB123456789US", domain.CarrierUSPS, true},
		{"123456789012", domain.CarrierFedEx, true},
		{"ABC", "", false},
	}
	for _, tt := range tests {
		got, ok := ClassifyTrackingNumber(tt.number)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ClassifyTrackingNumber(%q) = %q, %v; expected %q, %v", tt.number, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTrackingURL(t *testing.T) {
	assert.Equal(t, "https://www.dhl.com/en/express/tracking.html?AWB=1234567890", TrackingURL(domain.CarrierDHL, "1234567890"))
	assert.Equal(t, "", TrackingURL(domain.CarrierOther, "123"))
	assert.Equal(t, "", TrackingURL(domain.CarrierUPS, ""))
}

func TestExtractEstimatedDelivery(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"Scheduled Delivery: Tuesday, 03/05/2024\nmore", "Tuesday, 03/05/2024"},
		{"Expected Delivery Date: March 7", "March 7"},
		{"Your package is arriving on Friday. Thanks", "Friday"},
		{"nothing", ""},
	}
	for _, tt := range tests {
		if got := ExtractEstimatedDelivery(tt.text); got != tt.expected {
			t.Errorf("ExtractEstimatedDelivery(%q) = %q, expected %q", tt.text, got, tt.expected)
		}
	}
}
