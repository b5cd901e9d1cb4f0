package domain

import "errors"

// Error codes surfaced verbatim to clients
const (
	CodeInvalidName     = "invalid_name"
	CodeNameTaken       = "name_taken"
	CodeUnauthenticated = "unauthenticated"
	CodeEmptyMessage    = "empty_message"
	CodeTextTooLong     = "text_too_long"
	CodeInvalidImage    = "invalid_image"
	CodeImageTooLarge   = "image_too_large"
	CodeInternal        = "internal_error"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidName, CodeInvalidName},
	{ErrNameTaken, CodeNameTaken},
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrSessionNotFound, CodeUnauthenticated},
	{ErrSessionExpired, CodeUnauthenticated},
	{ErrEmptyMessage, CodeEmptyMessage},
	{ErrTextTooLong, CodeTextTooLong},
	{ErrInvalidImage, CodeInvalidImage},
	{ErrImageTooLarge, CodeImageTooLarge},
}

// ErrorCode maps an error to its stable client-facing code
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// IsUserError reports whether err is one of the recoverable, user-facing kinds
func IsUserError(err error) bool {
	return err != nil && ErrorCode(err) != CodeInternal
}
