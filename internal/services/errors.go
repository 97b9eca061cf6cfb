package services

import "errors"

// ErrNotFound is returned when a blob does not exist in the store.
var ErrNotFound = errors.New("object not found")

// Stable machine-readable error codes surfaced in JSON responses.
const (
	CodeNoFiles         = "NO_FILES"
	CodeTooManyFiles    = "TOO_MANY_FILES"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeEmptySession    = "EMPTY_SESSION"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

// ValidationError is a client-class error: the request was understood but
// rejected before any durable side effect.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a stable code.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
