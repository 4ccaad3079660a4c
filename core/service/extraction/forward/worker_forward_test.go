package forward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction/vendor"
)

const gmailForwardText = `Check this out, only the USB cam was for the team.

---------- Forwarded message ---------
From: REV Robotics <orders@revrobotics.com>
Date: Mon, Jan 8, 2024 at 10:15 AM
Subject: Your REV Robotics Order #123456
To: <mentor@example.com>


Hi Team,
Thank you for your order!
Subtotal: $146.99
Total: $156.99
`

const gmailForwardHTML = `<div dir="ltr">FYI<br><br>
<div class="gmail_quote"><div dir="ltr" class="gmail_attr">---------- Forwarded message ---------<br>
From: <strong class="gmail_sendername" dir="auto">REV Robotics</strong> <span dir="auto">&lt;<a href="mailto:orders@revrobotics.com">orders@revrobotics.com</a>&gt;</span><br>
Date: Mon, Jan 8, 2024 at 10:15 AM<br>
Subject: Your REV Robotics Order #123456<br>
To: &lt;<a href="mailto:mentor@example.com">mentor@example.com</a>&gt;<br></div><br><br>
<table><tr><td>Thank you for your order!</td></tr><tr><td>Total:</td><td>$156.99</td></tr></table>
</div></div>`

func TestIsForwardedEmail(t *testing.T) {
	tests := []struct {
		name  string
		email *domain.EmailContent
		want  bool
	}{
		{"fwd subject", &domain.EmailContent{Subject: "Fwd: Your order"}, true},
		{"FW subject", &domain.EmailContent{Subject: "FW: Your order"}, true},
		{"fw lower", &domain.EmailContent{Subject: "fw: hi"}, true},
		{"gmail marker", &domain.EmailContent{Subject: "order", Text: gmailForwardText}, true},
		{"outlook marker", &domain.EmailContent{Subject: "order", Text: "-----Original Message-----\nFrom: a@b.com"}, true},
		{"apple marker", &domain.EmailContent{Subject: "order", HTML: "<div>Begin forwarded message:</div>"}, true},
		{"plain", &domain.EmailContent{Subject: "Your order", Text: "Thanks"}, false},
		{"fwd in middle", &domain.EmailContent{Subject: "Re: Fwd: stuff"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsForwardedEmail(tt.email); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseForwardedEmail_GmailText(t *testing.T) {
	fwd := ParseForwardedEmail(&domain.EmailContent{
		From:    "Mentor <mentor@example.com>",
		Subject: "Fwd: Your REV Robotics Order #123456",
		Text:    gmailForwardText,
	})

	require.NotNil(t, fwd)
	assert.Equal(t, "orders@revrobotics.com", fwd.OriginalFrom)
	assert.Equal(t, "Your REV Robotics Order #123456", fwd.OriginalSubject)
	assert.Equal(t, "Mon, Jan 8, 2024 at 10:15 AM", fwd.OriginalDate)
	assert.False(t, fwd.IsHTML)
	assert.Equal(t, "Hi Team,\nThank you for your order!\nSubtotal: $146.99\nTotal: $156.99", fwd.OriginalBody)
	assert.Equal(t, "Check this out, only the USB cam was for the team.", fwd.Note)
}

func TestParseForwardedEmail_GmailHTML(t *testing.T) {
	fwd := ParseForwardedEmail(&domain.EmailContent{
		Subject: "Fwd: Your REV Robotics Order #123456",
		HTML:    gmailForwardHTML,
	})

	require.NotNil(t, fwd)
	assert.Equal(t, "orders@revrobotics.com", fwd.OriginalFrom)
	assert.Equal(t, "Your REV Robotics Order #123456", fwd.OriginalSubject)
	assert.True(t, fwd.IsHTML)
	assert.Contains(t, fwd.OriginalBody, "Total: $156.99")
	assert.NotContains(t, fwd.OriginalBody, "Subject:")
	assert.Equal(t, "FYI", fwd.Note)
}

func TestParseForwardedEmail_Outlook(t *testing.T) {
	text := "Please order these.\r\n\r\n-----Original Message-----\r\n" +
		"From: goBILDA Sales [mailto:sales@gobilda.com]\r\n" +
		"Sent: Tuesday, March 5, 2024 9:00 AM\r\n" +
		"To: Mentor\r\n" +
		"Subject: Order Confirmation\r\n\r\n" +
		"Order #7001\r\nTotal: $42.00\r\n"

	fwd := ParseForwardedEmail(&domain.EmailContent{Subject: "FW: Order Confirmation", Text: text})

	require.NotNil(t, fwd)
	assert.Equal(t, "sales@gobilda.com", fwd.OriginalFrom)
	assert.Equal(t, "Tuesday, March 5, 2024 9:00 AM", fwd.OriginalDate)
	assert.Equal(t, "Order #7001\nTotal: $42.00", fwd.OriginalBody)
}

func TestParseForwardedEmail_Apple(t *testing.T) {
	text := "Begin forwarded message:\n\n" +
		"From: AndyMark <no-reply@AndyMark.com>\n" +
		"Subject: Order Confirmation\n" +
		"Date: March 1, 2024 at 8:00:00 AM EST\n" +
		"To: coach@example.org\n\n" +
		"Grand Total: $99.99"

	fwd := ParseForwardedEmail(&domain.EmailContent{Subject: "Fwd: Order Confirmation", Text: text})

	require.NotNil(t, fwd)
	assert.Equal(t, "no-reply@andymark.com", fwd.OriginalFrom)
	assert.Equal(t, "Grand Total: $99.99", fwd.OriginalBody)
}

func TestParseForwardedEmail_FallbackFromLine(t *testing.T) {
	text := "see below\n\nFrom: UPS <mcinfo@ups.com>\nSubject: UPS Update\n\nTracking Number: 1Z999AA10123456784"

	fwd := ParseForwardedEmail(&domain.EmailContent{Subject: "Fwd: UPS Update", Text: text})

	require.NotNil(t, fwd)
	assert.Equal(t, "mcinfo@ups.com", fwd.OriginalFrom)
	assert.Equal(t, "Tracking Number: 1Z999AA10123456784", fwd.OriginalBody)
	assert.Equal(t, "see below", fwd.Note)
}

func TestParseForwardedEmail_NoSender(t *testing.T) {
	assert.Nil(t, ParseForwardedEmail(&domain.EmailContent{Subject: "Fwd: hi", Text: "just a note"}))
	assert.Nil(t, ParseForwardedEmail(&domain.EmailContent{
		Subject: "Fwd: hi",
		Text:    "---------- Forwarded message ---------\nSubject: no sender\n\nbody",
	}))
	assert.Nil(t, ParseForwardedEmail(nil))
}

func TestParseForwardedEmail_HeaderCap(t *testing.T) {
	text := "---------- Forwarded message ---------\n"
	for i := 0; i < 25; i++ {
		text += "X-Noise: line\n"
	}
	text += "From: late@revrobotics.com\n\nbody"

	assert.Nil(t, ParseForwardedEmail(&domain.EmailContent{Text: text}))
}

func TestStripForwardPrefix(t *testing.T) {
	assert.Equal(t, "Your order", StripForwardPrefix("Fwd: FW: Your order"))
	assert.Equal(t, "Your order", StripForwardPrefix("Your order"))
}

func TestToEmailContent_RoundTrip(t *testing.T) {
	envelope := &domain.EmailContent{
		From:    "Mentor <mentor@example.com>",
		To:      "purchasing@team.org",
		Subject: "Fwd: Your REV Robotics Order #123456",
		Text:    gmailForwardText,
	}
	require.True(t, IsForwardedEmail(envelope))

	fwd := ParseForwardedEmail(envelope)
	require.NotNil(t, fwd)
	assert.Equal(t, "orders@revrobotics.com", fwd.OriginalFrom)

	unwrapped := ToEmailContent(envelope, fwd)
	assert.Equal(t, "orders@revrobotics.com", unwrapped.From)
	assert.Equal(t, "purchasing@team.org", unwrapped.To)

	parsed := vendor.NewDefaultRegistry().ParseEmail(unwrapped)
	assert.Equal(t, domain.EmailTypeOrderConfirmation, parsed.Type)
	assert.Equal(t, "rev", parsed.Vendor)
	assert.Equal(t, "123456", parsed.OrderNumber)
	require.NotNil(t, parsed.TotalCents)
	assert.Equal(t, int64(15699), *parsed.TotalCents)
}

func TestToEmailContent_HTMLBody(t *testing.T) {
	envelope := &domain.EmailContent{Subject: "Fwd: Your REV Robotics Order #123456", HTML: gmailForwardHTML}
	fwd := ParseForwardedEmail(envelope)
	require.NotNil(t, fwd)

	unwrapped := ToEmailContent(envelope, fwd)
	assert.Empty(t, unwrapped.Text)
	assert.NotEmpty(t, unwrapped.HTML)

	parsed := vendor.NewDefaultRegistry().ParseEmail(unwrapped)
	assert.Equal(t, "rev", parsed.Vendor)
	require.NotNil(t, parsed.TotalCents)
	assert.Equal(t, int64(15699), *parsed.TotalCents)
}
