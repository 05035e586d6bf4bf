// Package dispatcher routes incoming COMMS messages to converter methods.
package dispatcher

import (
	"context"
	"encoding/json"
	"time"
)

// ConverterRequest is the JSON envelope for incoming COMMS converter requests.
type ConverterRequest struct {
	ID     string             `json:"id"`
	Type   string             `json:"type,omitempty"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params,omitempty"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// ConverterResponse is the JSON envelope for COMMS converter responses.
type ConverterResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result any          `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	// TimeoutMs is relative to receipt of the request.
	TimeoutMs int64 `json:"timeoutMs,omitempty"`
	// DeadlineMs is an absolute Unix time in milliseconds.
	DeadlineMs int64 `json:"deadlineMs,omitempty"`
}

// RequestContext derives the context a request runs under. The server timeout always
// applies; a caller timeout or deadline can only shorten it.
func RequestContext(parent context.Context, invCtx *InvocationContext, timeout time.Duration, now time.Time) (context.Context, context.CancelFunc) {
	limit := timeout
	bounded := timeout > 0
	shorten := func(d time.Duration) {
		if !bounded || d < limit {
			limit = d
			bounded = true
		}
	}
	if invCtx != nil {
		if invCtx.TimeoutMs > 0 {
			shorten(time.Duration(invCtx.TimeoutMs) * time.Millisecond)
		}
		if invCtx.DeadlineMs > 0 {
			shorten(max(time.UnixMilli(invCtx.DeadlineMs).Sub(now), 0))
		}
	}
	if !bounded {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, limit)
}
