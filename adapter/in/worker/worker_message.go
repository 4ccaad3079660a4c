package worker

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"purchase_worker/adapter/out/mailfile"
	"purchase_worker/core/domain"
)

var (
	ErrEmptyMessage    = errors.New("inbound message has neither email nor raw")
	ErrAmbiguousSource = errors.New("inbound message has both email and raw")
)

// InboundMessage is the payload of a mail:inbound entry. Exactly one of
// Email or Raw is set; Raw is a base64 RFC 5322 message.
type InboundMessage struct {
	MessageID string               `json:"message_id"`
	Email     *domain.EmailContent `json:"email,omitempty"`
	Raw       string               `json:"raw,omitempty"`
}

// DecodeInbound parses an entry payload and resolves it to an email.
func DecodeInbound(data []byte) (*InboundMessage, *domain.EmailContent, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, nil, fmt.Errorf("decode inbound message: %w", err)
	}

	switch {
	case msg.Email != nil && msg.Raw != "":
		return &msg, nil, ErrAmbiguousSource
	case msg.Email != nil:
		return &msg, msg.Email, nil
	case msg.Raw != "":
		raw, err := base64.StdEncoding.DecodeString(msg.Raw)
		if err != nil {
			return &msg, nil, fmt.Errorf("decode raw message: %w", err)
		}
		email, err := mailfile.ReadEmailBytes(raw)
		if err != nil {
			return &msg, nil, err
		}
		return &msg, email, nil
	default:
		return &msg, nil, ErrEmptyMessage
	}
}
