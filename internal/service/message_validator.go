package service

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"lounge-chat/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

// MessageValidator enforces the send-path contract on drafts
type MessageValidator struct {
	sniffImages bool
}

// NewMessageValidator creates a validator. With sniffImages set, image
// payloads are decoded and their content must detect as an image type.
func NewMessageValidator(sniffImages bool) *MessageValidator {
	return &MessageValidator{sniffImages: sniffImages}
}

// Validate returns the normalized draft or one of the send error kinds
func (v *MessageValidator) Validate(draft domain.Draft) (domain.Draft, error) {
	text := strings.TrimSpace(draft.Text)
	if utf8.RuneCountInString(text) > domain.MaxTextLength {
		return domain.Draft{}, domain.ErrTextTooLong
	}

	image := draft.Image
	if image != "" {
		if !strings.HasPrefix(image, domain.ImageURIPrefix) {
			return domain.Draft{}, domain.ErrInvalidImage
		}
		if len(image) > domain.MaxImageLength {
			return domain.Draft{}, domain.ErrImageTooLarge
		}
		if v.sniffImages && !isImagePayload(image) {
			return domain.Draft{}, domain.ErrInvalidImage
		}
	}

	if text == "" && image == "" {
		return domain.Draft{}, domain.ErrEmptyMessage
	}

	return domain.Draft{Text: text, Image: image}, nil
}

// isImagePayload decodes a base64 data URI and sniffs its content
func isImagePayload(uri string) bool {
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return false
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) == 0 {
		return false
	}

	return strings.HasPrefix(mimetype.Detect(raw).String(), "image/")
}
