package converter

import (
	"context"
	"errors"

	"github.com/morezero/attribute-converter/pkg/service"
)

// Error codes surfaced by the dispatcher.
const (
	CodeConversionNotSupported = "CONVERSION_NOT_SUPPORTED"
	CodeDataNotRetrieved       = "DATA_NOT_RETRIEVED"
	CodeTimeout                = "TIMEOUT"
	CodeCancelled              = "CANCELLED"
	CodeInternal               = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks against *ConversionError values.
var (
	ErrConversionNotSupported = errors.New("conversion not supported")
	ErrDataNotRetrieved       = errors.New("data not retrieved")
)

// ConversionError is a structured dispatcher error about a target attribute.
type ConversionError struct {
	Code    string `json:"code"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (e *ConversionError) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches the package sentinels by code.
func (e *ConversionError) Is(target error) bool {
	switch target {
	case ErrConversionNotSupported:
		return e.Code == CodeConversionNotSupported
	case ErrDataNotRetrieved:
		return e.Code == CodeDataNotRetrieved
	}
	return false
}

// ConversionNotSupported builds the error for a (source, target) pair with no capability.
func ConversionNotSupported(target string) *ConversionError {
	return &ConversionError{
		Code:    CodeConversionNotSupported,
		Target:  target,
		Message: "Target attribute " + target + " is not supported.",
	}
}

// DataNotRetrieved builds the error for a capability that produced no value.
func DataNotRetrieved(target string) *ConversionError {
	return &ConversionError{
		Code:    CodeDataNotRetrieved,
		Target:  target,
		Message: "Target attribute " + target + " not available.",
	}
}

// ErrorCode maps an error returned by Convert to its wire code. It returns "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var se *service.Error
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	}
	return CodeInternal
}

// IsRetryable reports whether a caller may reasonably try the same conversion again.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case service.CodeServiceUnavailable, CodeDataNotRetrieved, CodeTimeout, CodeInternal:
		return true
	}
	return false
}

// isTaxonomy reports whether err already carries a meaning callers can act on.
func isTaxonomy(err error) bool {
	var ce *ConversionError
	var se *service.Error
	return errors.As(err, &ce) || errors.As(err, &se) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
