// Package mailfile reads RFC 5322 messages and JSON email fixtures into
// domain.EmailContent.
package mailfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/goccy/go-json"

	"purchase_worker/core/domain"
)

// MaxMessageBytes bounds how much of a message is read.
const MaxMessageBytes = 25 << 20

// ReadEmail parses a MIME message. The first text/plain and first text/html
// inline parts become Text and HTML; attachments are skipped. Unknown
// charsets are tolerated and the raw bytes are kept.
func ReadEmail(r io.Reader) (*domain.EmailContent, error) {
	mr, err := mail.CreateReader(io.LimitReader(r, MaxMessageBytes))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	email := &domain.EmailContent{
		From:    headerText(&mr.Header, "From"),
		To:      headerText(&mr.Header, "To"),
		Subject: headerText(&mr.Header, "Subject"),
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("read part: %w", err)
		}
		if p == nil {
			continue
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		if disp, _, _ := h.ContentDisposition(); disp == "attachment" {
			continue
		}

		ct, _, _ := h.ContentType()
		switch strings.ToLower(ct) {
		case "text/plain", "":
			if email.Text != "" {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("read text part: %w", err)
			}
			email.Text = string(body)
		case "text/html":
			if email.HTML != "" {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("read html part: %w", err)
			}
			email.HTML = string(body)
		}
	}

	return email, nil
}

// ReadEmailBytes is ReadEmail over an in-memory message.
func ReadEmailBytes(raw []byte) (*domain.EmailContent, error) {
	return ReadEmail(bytes.NewReader(raw))
}

// LoadFile reads an .eml file, or a .json file holding an EmailContent object.
func LoadFile(path string) (*domain.EmailContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var email domain.EmailContent
		if err := json.NewDecoder(io.LimitReader(f, MaxMessageBytes)).Decode(&email); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return &email, nil
	}

	email, err := ReadEmail(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return email, nil
}

func headerText(h *mail.Header, key string) string {
	v, err := h.Text(key)
	if err != nil {
		return h.Get(key)
	}
	return v
}
