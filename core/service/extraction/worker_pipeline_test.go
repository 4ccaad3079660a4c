package extraction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchase_worker/core/domain"
)

const revDirectText = `Hi Team,
Thank you for your order!
Order #123456
Total: $156.99`

const mentorForwardText = `Check this out, only the USB cam was for the team.

---------- Forwarded message ---------
From: REV Robotics <orders@revrobotics.com>
Date: Mon, Jan 8, 2024 at 10:15 AM
Subject: Your REV Robotics Order #123456
To: <mentor@example.com>


Hi Team,
Thank you for your order!
Total: $156.99
`

func TestPipeline_Process(t *testing.T) {
	p := NewPipeline(nil)

	tests := []struct {
		name           string
		email          *domain.EmailContent
		wantVendor     string
		wantType       domain.EmailType
		wantConfidence float64
		wantForwarded  bool
		wantNote       string
	}{
		{
			name: "direct vendor email",
			email: &domain.EmailContent{
				From:    "REV Robotics <orders@revrobotics.com>",
				Subject: "Your REV Robotics Order #123456",
				Text:    revDirectText,
			},
			wantVendor:     "rev",
			wantType:       domain.EmailTypeOrderConfirmation,
			wantConfidence: 0.9,
		},
		{
			name: "mentor forward",
			email: &domain.EmailContent{
				From:    "Mentor <mentor@example.com>",
				Subject: "Fwd: Your REV Robotics Order #123456",
				Text:    mentorForwardText,
			},
			wantVendor:     "rev",
			wantType:       domain.EmailTypeOrderConfirmation,
			wantConfidence: 0.9,
			wantForwarded:  true,
			wantNote:       "Check this out, only the USB cam was for the team.",
		},
		{
			name: "forward prefix without envelope",
			email: &domain.EmailContent{
				From:    "UPS <mcinfo@ups.com>",
				Subject: "FW: UPS Update",
				Text:    "Your package has shipped. Tracking Number: 1Z999AA10123456784",
			},
			wantVendor:     "ups",
			wantType:       domain.EmailTypeShippingNotification,
			wantConfidence: 0.9,
		},
		{
			name: "unknown sender",
			email: &domain.EmailContent{
				From:    "someone@random.org",
				Subject: "Hello",
				Text:    "Thank you for your order",
			},
			wantVendor: domain.VendorUnknown,
			wantType:   domain.EmailTypeUnknown,
		},
		{
			name:       "nil email",
			email:      nil,
			wantVendor: domain.VendorUnknown,
			wantType:   domain.EmailTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Process(tt.email)

			require.NotNil(t, res.Parsed)
			assert.Equal(t, tt.wantVendor, res.Parsed.Vendor)
			assert.Equal(t, tt.wantType, res.Parsed.Type)
			assert.Equal(t, tt.wantConfidence, res.Parsed.Confidence)
			assert.Equal(t, tt.wantForwarded, res.Forwarded != nil)
			assert.Equal(t, tt.wantNote, res.ForwarderNote())
			if tt.wantForwarded {
				require.NotNil(t, res.Unwrapped)
				assert.Equal(t, "orders@revrobotics.com", res.Unwrapped.From)
			}
		})
	}
}

func TestPipeline_UnknownOriginalFallsBackToEnvelope(t *testing.T) {
	email := &domain.EmailContent{
		From:    "REV Robotics <orders@revrobotics.com>",
		Subject: "Fwd: Order #5555 confirmation",
		Text: "Thank you for your order!\n\n" +
			"---------- Forwarded message ---------\n" +
			"From: warehouse@random-3pl.com\n\n" +
			"pick list attached",
	}

	res := NewPipeline(nil).Process(email)

	require.NotNil(t, res.Forwarded)
	assert.Equal(t, "rev", res.Parsed.Vendor)
	assert.Equal(t, "5555", res.Parsed.OrderNumber)
}

func TestPipeline_NestedForward(t *testing.T) {
	outer := "FYI from the coach\n\n" +
		"---------- Forwarded message ---------\n" +
		"From: Coach <coach@example.org>\n" +
		"Subject: Fwd: Your REV Robotics Order #123456\n\n" +
		mentorForwardText

	res := NewPipeline(nil).Process(&domain.EmailContent{
		From:    "captain@example.org",
		Subject: "Fwd: Fwd: Your REV Robotics Order #123456",
		Text:    outer,
	})

	assert.Equal(t, "rev", res.Parsed.Vendor)
	assert.Equal(t, "123456", res.Parsed.OrderNumber)
	assert.Equal(t, "FYI from the coach", res.ForwarderNote())
	assert.Equal(t, "orders@revrobotics.com", res.Unwrapped.From)
}

func TestPipeline_ConcurrentAndIdempotent(t *testing.T) {
	p := NewPipeline(nil)
	email := &domain.EmailContent{
		From:    "Mentor <mentor@example.com>",
		Subject: "Fwd: Your REV Robotics Order #123456",
		Text:    mentorForwardText,
	}
	want := p.Process(email).Parsed

	var wg sync.WaitGroup
	results := make([]*domain.ParsedEmail, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Process(email).Parsed
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
