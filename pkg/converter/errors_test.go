package converter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/morezero/attribute-converter/pkg/service"
)

func TestConversionError_Messages(t *testing.T) {
	if got := ConversionNotSupported("fahrenheit").Error(); got != "CONVERSION_NOT_SUPPORTED: Target attribute fahrenheit is not supported." {
		t.Errorf("converter:errors_test - ConversionNotSupported message = %q", got)
	}
	if got := DataNotRetrieved("inchi").Error(); got != "DATA_NOT_RETRIEVED: Target attribute inchi not available." {
		t.Errorf("converter:errors_test - DataNotRetrieved message = %q", got)
	}
}

func TestConversionError_Is(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", DataNotRetrieved("x"))
	if !errors.Is(wrapped, ErrDataNotRetrieved) {
		t.Errorf("converter:errors_test - wrapped DataNotRetrieved must match its sentinel")
	}
	if errors.Is(wrapped, ErrConversionNotSupported) {
		t.Errorf("converter:errors_test - codes must not cross-match")
	}
	if !errors.Is(ConversionNotSupported("x"), ErrConversionNotSupported) {
		t.Errorf("converter:errors_test - ConversionNotSupported must match its sentinel")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      string
		retryable bool
	}{
		{"nil", nil, "", false},
		{"not supported", ConversionNotSupported("x"), CodeConversionNotSupported, false},
		{"not retrieved", DataNotRetrieved("x"), CodeDataNotRetrieved, true},
		{"unavailable", service.ServiceUnavailable("s", nil), service.CodeServiceUnavailable, true},
		{"unknown service", service.UnknownService("s"), service.CodeUnknownService, false},
		{"invalid request", service.InvalidRequest("s", nil), service.CodeInvalidRequest, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), CodeTimeout, true},
		{"cancelled", context.Canceled, CodeCancelled, false},
		{"other", errors.New("boom"), CodeInternal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("converter:errors_test - ErrorCode() = %q, want %q", got, tt.want)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("converter:errors_test - IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}
